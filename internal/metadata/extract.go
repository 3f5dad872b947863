package metadata

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/deepvision/internal/model"
)

// MaxValueLength caps the length of a single extracted value. Longer
// values are truncated and suffixed with a marker that records the
// original size.
const MaxValueLength = 64 * 1024

// exifTags lists the EXIF tags surfaced as metadata. The full tag dump is
// the job of the exif tool adapter.
var exifTags = map[string]bool{
	"Make":             true,
	"Model":            true,
	"Software":         true,
	"DateTime":         true,
	"DateTimeOriginal": true,
	"Artist":           true,
	"Copyright":        true,
	"ImageDescription": true,
	"UserComment":      true,
	"XPComment":        true,
	"HostComputer":     true,
}

// Source is the view of an ingested image the extractor needs.
type Source interface {
	Format() model.Format
	Bytes() []byte
}

// Extract returns the metadata found in src. It never returns nil.
func Extract(src Source) map[string]string {
	return ExtractWithLogger(src, nil)
}

// ExtractWithLogger is Extract with a logger for parse diagnostics.
func ExtractWithLogger(src Source, logger *slog.Logger) (out map[string]string) {
	out = map[string]string{}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	defer func() {
		// Parsers run on attacker-controlled bytes; keep what was
		// collected before a panic.
		if r := recover(); r != nil {
			logger.Warn("metadata extraction aborted", "panic", fmt.Sprint(r))
		}
	}()

	data := src.Bytes()
	switch src.Format() {
	case model.FormatPNG:
		extractPNG(data, out)
	case model.FormatJPEG:
		extractJPEG(data, out)
	}
	extractEXIF(data, out, logger)

	return out
}

// TrailingBytes returns how many bytes follow the end-of-image marker of a
// PNG or JPEG, or 0 when there are none or the end cannot be located.
func TrailingBytes(src Source) int {
	data := src.Bytes()
	end := -1
	switch src.Format() {
	case model.FormatPNG:
		end, _ = walkPNG(data, nil)
	case model.FormatJPEG:
		end = jpegEnd(data)
	}
	if end < 0 || end > len(data) {
		return 0
	}
	return len(data) - end
}

func extractEXIF(data []byte, out map[string]string, logger *slog.Logger) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		logger.Debug("failed to parse EXIF block", "error", err)
		return
	}
	out["exif"] = fmt.Sprintf("<%d bytes>", len(rawExif))
	for _, entry := range entries {
		if !exifTags[entry.TagName] {
			continue
		}
		set(out, "EXIF:"+entry.TagName, entry.Formatted)
	}
}

// set stores a cleaned value, appending to an existing key rather than
// overwriting it so repeated chunks are all visible.
func set(out map[string]string, key, value string) {
	value = clean(value)
	if prev, ok := out[key]; ok {
		value = prev + "\n" + value
	}
	if len(value) > MaxValueLength {
		cut := MaxValueLength
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = fmt.Sprintf("%s...(truncated, %d bytes)", value[:cut], len(value))
	}
	out[key] = value
}

// clean replaces invalid UTF-8 and drops NUL bytes so values can be
// serialized as JSON strings.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.TrimSpace(s)
}

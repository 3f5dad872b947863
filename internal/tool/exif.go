package tool

import (
	"context"
	"errors"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/deepvision/internal/model"
)

// ExifAdapter dumps every EXIF tag with go-exif. It runs in-process and
// does not need a process slot.
type ExifAdapter struct{}

var _ Adapter = ExifAdapter{}

// NewExif returns the in-process EXIF adapter.
func NewExif() ExifAdapter { return ExifAdapter{} }

// ID implements Adapter.
func (ExifAdapter) ID() string { return "exif" }

// Description implements Adapter.
func (ExifAdapter) Description() string { return "EXIF tags (go-exif)" }

// Kind implements Adapter.
func (ExifAdapter) Kind() Kind { return KindInProcess }

// Run implements Adapter.
func (ExifAdapter) Run(ctx context.Context, in Input) model.ToolResult {
	if err := ctx.Err(); err != nil {
		return model.ErrorResult(err.Error())
	}
	rawExif, err := exif.SearchAndExtractExif(in.Data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return model.DataResult(map[string]string{})
		}
		return model.ErrorResult(err.Error())
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return model.ErrorResult(err.Error())
	}

	data := make(map[string]string, len(entries))
	for _, entry := range entries {
		data[entry.IfdPath+"/"+entry.TagName] = truncate(entry.Formatted, 1024)
	}
	return model.DataResult(data)
}

package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// maxInflated bounds decompression of zTXt/iTXt chunks.
const maxInflated = 1 << 20

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// textPrefix namespaces keywords of text chunks so that they can never
// collide with keys the extractor derives itself.
const textPrefix = "PNG:"

// walkPNG calls fn for every chunk up to and including IEND and returns
// the offset just past IEND. It returns -1 and the type of the offending
// chunk when a declared length runs past the end of the data, and -1 and
// "" when IEND is missing.
func walkPNG(data []byte, fn func(typ string, body []byte)) (int, string) {
	if !bytes.HasPrefix(data, pngSignature) {
		return -1, ""
	}
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		start := pos + 8
		end := start + length
		if length < 0 || end+4 > len(data) || end < start {
			return -1, typ
		}
		if fn != nil {
			fn(typ, data[start:end])
		}
		if typ == "IEND" {
			return end + 4, ""
		}
		pos = end + 4
	}
	return -1, ""
}

// extractPNG collects text and structural chunks. Text chunk keywords are
// stored under textPrefix.
func extractPNG(data []byte, out map[string]string) {
	end, truncated := walkPNG(data, func(typ string, body []byte) {
		switch typ {
		case "tEXt":
			if key, val, ok := bytes.Cut(body, []byte{0}); ok {
				set(out, textPrefix+string(key), string(val))
			}
		case "zTXt":
			parseZTXt(body, out)
		case "iTXt":
			parseITXt(body, out)
		case "tIME":
			if len(body) == 7 {
				set(out, "modification_time", fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
					binary.BigEndian.Uint16(body[0:2]), body[2], body[3], body[4], body[5], body[6]))
			}
		case "pHYs":
			if len(body) == 9 {
				x := binary.BigEndian.Uint32(body[0:4])
				y := binary.BigEndian.Uint32(body[4:8])
				if body[8] == 1 {
					// pixels per metre to dots per inch
					set(out, "dpi", fmt.Sprintf("%dx%d", int(float64(x)*0.0254+0.5), int(float64(y)*0.0254+0.5)))
				} else {
					set(out, "aspect", fmt.Sprintf("%d:%d", x, y))
				}
			}
		case "gAMA":
			if len(body) == 4 {
				set(out, "gamma", strconv.FormatFloat(float64(binary.BigEndian.Uint32(body))/100000, 'f', 5, 64))
			}
		case "iCCP":
			if name, _, ok := bytes.Cut(body, []byte{0}); ok {
				set(out, "icc_profile", string(name))
			}
		}
	})
	if truncated != "" {
		out["png_truncated_chunk"] = clean(truncated)
		return
	}
	if end > 0 {
		if trailing := len(data) - end; trailing > 0 {
			set(out, "trailing_bytes", strconv.Itoa(trailing))
		}
	}
}

func parseZTXt(body []byte, out map[string]string) {
	key, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 1 {
		return
	}
	// rest[0] is the compression method; 0 (deflate) is the only one defined.
	if text, err := inflate(rest[1:]); err == nil {
		set(out, textPrefix+string(key), text)
	}
}

func parseITXt(body []byte, out map[string]string) {
	key, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 2 {
		return
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	// language tag, then translated keyword
	_, rest, ok = bytes.Cut(rest, []byte{0})
	if !ok {
		return
	}
	_, text, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return
	}
	if !compressed {
		set(out, textPrefix+string(key), string(text))
		return
	}
	if s, err := inflate(text); err == nil {
		set(out, textPrefix+string(key), s)
	}
}

func inflate(b []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	defer r.Close()
	text, err := io.ReadAll(io.LimitReader(r, maxInflated))
	if err != nil {
		return "", err
	}
	return string(text), nil
}

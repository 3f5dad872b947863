package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/testimage"
)

type source struct {
	format model.Format
	data   []byte
}

func (s source) Format() model.Format { return s.format }
func (s source) Bytes() []byte        { return s.data }

// pngChunk encodes a PNG chunk with a valid CRC.
func pngChunk(typ string, body []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(body)))
	buf.WriteString(typ)
	buf.Write(body)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(append([]byte(typ), body...)))
	return buf.Bytes()
}

// insertAfterIHDR splices chunks between IHDR and the rest of the file.
func insertAfterIHDR(t *testing.T, png []byte, chunks ...[]byte) []byte {
	t.Helper()
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	out := append([]byte{}, png[:ihdrEnd]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, png[ihdrEnd:]...)
}

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestExtractPNGChunks tests text and structural PNG chunks.
func TestExtractPNGChunks(t *testing.T) {
	t.Parallel()

	base := testimage.PNG(t, testimage.Checkerboard(4, 4, 127, 128))
	ztxt := append([]byte("Description\x00\x00"), deflate(t, "compressed words")...)
	itxt := []byte("Title\x00\x00\x00en\x00Titel\x00hello world")
	phys := []byte{0, 0, 0x0b, 0x13, 0, 0, 0x0b, 0x13, 1}

	data := insertAfterIHDR(t, base,
		pngChunk("tEXt", []byte("Software\x00stegtool 1.0")),
		pngChunk("zTXt", ztxt),
		pngChunk("iTXt", itxt),
		pngChunk("pHYs", phys),
	)
	data = append(data, []byte("PAYLOAD")...)

	got := Extract(source{model.FormatPNG, data})

	expected := map[string]string{
		"PNG:Software":    "stegtool 1.0",
		"PNG:Description": "compressed words",
		"PNG:Title":       "hello world",
		"dpi":             "72x72",
		"trailing_bytes":  "7",
	}
	for k, v := range expected {
		if got[k] != v {
			t.Errorf("metadata[%q] = %q, expected %q", k, got[k], v)
		}
	}
}

// TestExtractPNGKeywordCannotShadowDerivedKeys tests that a text chunk
// named like a derived key neither hides nor corrupts it.
func TestExtractPNGKeywordCannotShadowDerivedKeys(t *testing.T) {
	t.Parallel()

	base := testimage.PNG(t, testimage.Checkerboard(4, 4, 127, 128))
	data := insertAfterIHDR(t, base,
		pngChunk("tEXt", []byte("trailing_bytes\x00none")),
		pngChunk("tEXt", []byte("dpi\x00300x300")),
	)
	data = append(data, bytes.Repeat([]byte{0xaa}, 4096)...)
	src := source{model.FormatPNG, data}

	got := Extract(src)
	if got["trailing_bytes"] != "4096" {
		t.Errorf("trailing_bytes = %q, expected %q", got["trailing_bytes"], "4096")
	}
	if got["PNG:trailing_bytes"] != "none" {
		t.Errorf("PNG:trailing_bytes = %q, expected %q", got["PNG:trailing_bytes"], "none")
	}
	if _, ok := got["dpi"]; ok {
		t.Errorf("text chunk leaked into derived key dpi = %q", got["dpi"])
	}
	if n := TrailingBytes(src); n != 4096 {
		t.Errorf("TrailingBytes() = %d, expected 4096", n)
	}
}

// TestTrailingBytes tests locating the end of an image.
func TestTrailingBytes(t *testing.T) {
	t.Parallel()

	carrier := testimage.JPEG(t, testimage.Checkerboard(64, 64, 10, 200))
	hidden := testimage.JPEG(t, testimage.Checkerboard(8, 8, 0, 255))
	png := testimage.PNG(t, testimage.Checkerboard(4, 4, 1, 2))

	testCases := []struct {
		name     string
		src      source
		expected int
	}{
		{"jpeg", source{model.FormatJPEG, carrier}, 0},
		{"jpeg with appended jpeg", source{model.FormatJPEG, append(append([]byte{}, carrier...), hidden...)}, len(hidden)},
		{"jpeg with appended text", source{model.FormatJPEG, append(append([]byte{}, carrier...), "PK\x03\x04"...)}, 4},
		{
			// stuffed 0xff, a restart marker, and an EOI inside the tail
			"scan escapes",
			source{model.FormatJPEG, []byte{
				0xff, 0xd8,
				0xff, 0xda, 0x00, 0x02, 0x12, 0xff, 0x00, 0x34, 0xff, 0xd3, 0x56,
				0xff, 0xd9,
				'A', 'B', 0xff, 0xd9,
			}},
			4,
		},
		{
			"progressive scans",
			source{model.FormatJPEG, []byte{
				0xff, 0xd8,
				0xff, 0xda, 0x00, 0x02, 0x11, 0x22,
				0xff, 0xc4, 0x00, 0x03, 0x00,
				0xff, 0xda, 0x00, 0x02, 0x33, 0xff, 0xff, 0xd9,
				'X', 0xff, 0xd9,
			}},
			3,
		},
		{"jpeg without EOI", source{model.FormatJPEG, []byte{0xff, 0xd8, 0xff, 0xda, 0x00, 0x02, 0x12}}, 0},
		{"png", source{model.FormatPNG, png}, 0},
		{"png with appended data", source{model.FormatPNG, append(append([]byte{}, png...), "PAYLOAD"...)}, 7},
		{"gif", source{model.FormatGIF, []byte("GIF89a")}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if n := TrailingBytes(tc.src); n != tc.expected {
				t.Errorf("TrailingBytes() = %d, expected %d", n, tc.expected)
			}
			got := Extract(tc.src)
			if tc.expected > 0 && got["trailing_bytes"] != strconv.Itoa(tc.expected) {
				t.Errorf("trailing_bytes = %q, expected %d", got["trailing_bytes"], tc.expected)
			}
		})
	}
}

// TestExtractJPEGSegments tests JFIF and comment segments.
func TestExtractJPEGSegments(t *testing.T) {
	t.Parallel()

	base := testimage.JPEG(t, testimage.Checkerboard(8, 8, 10, 200))
	comment := []byte("secret note")
	seg := []byte{0xff, markerCOM, 0, byte(len(comment) + 2)}
	seg = append(seg, comment...)
	data := append([]byte{0xff, markerSOI}, seg...)
	data = append(data, base[2:]...)

	got := Extract(source{model.FormatJPEG, data})
	if got["comment"] != "secret note" {
		t.Errorf("comment = %q, expected %q", got["comment"], "secret note")
	}
	if _, ok := got["trailing_bytes"]; ok {
		t.Errorf("unexpected trailing_bytes = %q", got["trailing_bytes"])
	}
}

// TestExtractNeverFails tests that absent or malformed metadata yields a map.
func TestExtractNeverFails(t *testing.T) {
	t.Parallel()

	png := testimage.PNG(t, testimage.Checkerboard(4, 4, 1, 2))

	testCases := []struct {
		name string
		src  source
	}{
		{"plain png", source{model.FormatPNG, png}},
		{"garbage", source{model.FormatPNG, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0xff, 0xff, 0xff, 0xff, 't', 'E', 'X', 't'}}},
		{"empty jpeg", source{model.FormatJPEG, []byte{0xff, 0xd8}}},
		{"unknown format", source{model.FormatWEBP, []byte("RIFF")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Extract(tc.src)
			if got == nil {
				t.Fatal("Extract() returned nil")
			}
		})
	}
}

// TestSetTruncatesAndAppends tests value normalization.
func TestSetTruncatesAndAppends(t *testing.T) {
	t.Parallel()

	out := map[string]string{}
	set(out, "k", "a\x00b")
	set(out, "k", "c")
	if out["k"] != "ab\nc" {
		t.Errorf("got %q", out["k"])
	}

	set(out, "big", strings.Repeat("x", MaxValueLength+10))
	if !strings.HasSuffix(out["big"], "(truncated, 65546 bytes)") {
		t.Errorf("expected truncation marker, got suffix %q", out["big"][len(out["big"])-30:])
	}

	// 'é' is two bytes, so MaxValueLength falls inside a rune at an odd offset
	set(out, "wide", "x"+strings.Repeat("é", MaxValueLength))
	if !utf8.ValidString(out["wide"]) {
		t.Error("truncation split a multi-byte rune")
	}
	if !strings.Contains(out["wide"], "é...(truncated") {
		t.Errorf("expected a whole rune before the marker, got suffix %q", out["wide"][len(out["wide"])-40:])
	}
}

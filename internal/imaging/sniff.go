package imaging

import (
	"bytes"

	"github.com/nao1215/deepvision/internal/model"
)

var (
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	gif87Sig  = []byte("GIF87a")
	gif89Sig  = []byte("GIF89a")
	bmpSig    = []byte("BM")
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
)

// Sniff detects the container format from the leading bytes of data.
// It returns an empty Format when nothing matches.
func Sniff(data []byte) model.Format {
	switch {
	case bytes.HasPrefix(data, jpegSig):
		return model.FormatJPEG
	case bytes.HasPrefix(data, pngSig):
		return model.FormatPNG
	case bytes.HasPrefix(data, gif87Sig), bytes.HasPrefix(data, gif89Sig):
		return model.FormatGIF
	case len(data) >= 12 && bytes.HasPrefix(data, riffSig) && bytes.Equal(data[8:12], webpSig):
		return model.FormatWEBP
	case bytes.HasPrefix(data, tiffSigLE), bytes.HasPrefix(data, tiffSigBE):
		return model.FormatTIFF
	case len(data) >= 14 && bytes.HasPrefix(data, bmpSig):
		// "BM" alone is too weak; require the reserved header words to be zero.
		if data[6] == 0 && data[7] == 0 && data[8] == 0 && data[9] == 0 {
			return model.FormatBMP
		}
	}
	return ""
}

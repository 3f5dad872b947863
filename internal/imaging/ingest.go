package imaging

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/crypto/sha3"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/nao1215/deepvision/internal/model"
)

// DefaultMaxPixels bounds the decoded size of an image (a 100 megapixel
// image decodes to roughly 400 MiB of RGBA).
const DefaultMaxPixels = 100_000_000

type decoder struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

var decoders = map[model.Format]decoder{
	model.FormatJPEG: {jpeg.Decode, jpeg.DecodeConfig},
	model.FormatPNG:  {png.Decode, png.DecodeConfig},
	model.FormatGIF:  {gif.Decode, gif.DecodeConfig},
	model.FormatBMP:  {bmp.Decode, bmp.DecodeConfig},
	model.FormatWEBP: {webp.Decode, webp.DecodeConfig},
	model.FormatTIFF: {tiff.Decode, tiff.DecodeConfig},
}

// Handle is an ingested image. It is immutable after Ingest returns.
type Handle struct {
	info model.ImageInfo
	img  image.Image
	raw  []byte
}

// Option configures Ingest.
type Option func(*options)

type options struct {
	maxPixels int
}

// WithMaxPixels sets the pixel limit. Zero or negative disables the check.
func WithMaxPixels(n int) Option {
	return func(o *options) {
		o.maxPixels = n
	}
}

// Ingest detects the format of data, decodes it, and returns a Handle.
// On failure the returned error is always a *DecodeError.
func Ingest(filename string, data []byte, opts ...Option) (*Handle, error) {
	o := &options{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(o)
	}

	if len(data) == 0 {
		return nil, &DecodeError{Filename: filename, Err: ErrEmptyInput}
	}

	format := Sniff(data)
	dec, ok := decoders[format]
	if !ok {
		return nil, &DecodeError{Filename: filename, Err: ErrUnsupportedFormat}
	}

	cfg, err := dec.config(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: ErrCorruptImage, Detail: err.Error()}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Filename: filename, Err: ErrZeroDimension}
	}
	if o.maxPixels > 0 && cfg.Width*cfg.Height > o.maxPixels {
		return nil, &DecodeError{Filename: filename, Err: ErrImageTooLarge}
	}

	img, err := dec.decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: ErrCorruptImage, Detail: err.Error()}
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &DecodeError{Filename: filename, Err: ErrZeroDimension}
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	sum := sha3.Sum256(raw)

	return &Handle{
		info: model.ImageInfo{
			Filename:    filename,
			Format:      format,
			Mode:        colorMode(img),
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			SizeBytes:   int64(len(raw)),
			Fingerprint: hex.EncodeToString(sum[:]),
		},
		img: img,
		raw: raw,
	}, nil
}

// Info returns the image descriptors.
func (h *Handle) Info() model.ImageInfo { return h.info }

// Format returns the detected container format.
func (h *Handle) Format() model.Format { return h.info.Format }

// Image returns the decoded pixels. Callers must not modify them.
func (h *Handle) Image() image.Image { return h.img }

// Bytes returns the raw upload. Callers must not modify it.
func (h *Handle) Bytes() []byte { return h.raw }

// colorMode names the decoded color model using the conventional
// imaging-library mode strings.
func colorMode(img image.Image) string {
	switch m := img.(type) {
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	case *image.NYCbCrA:
		return "RGBA"
	case *image.RGBA:
		return opaqueMode(m.Opaque())
	case *image.NRGBA:
		return opaqueMode(m.Opaque())
	case *image.RGBA64:
		return opaqueMode(m.Opaque())
	case *image.NRGBA64:
		return opaqueMode(m.Opaque())
	default:
		return "RGB"
	}
}

func opaqueMode(opaque bool) string {
	if opaque {
		return "RGB"
	}
	return "RGBA"
}

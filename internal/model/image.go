package model

import "strings"

// Format identifies the container format of an image as detected from its
// content, never from the upload's filename.
type Format string

const (
	// FormatJPEG is a JPEG/JFIF image.
	FormatJPEG Format = "JPEG"
	// FormatPNG is a PNG image.
	FormatPNG Format = "PNG"
	// FormatGIF is a GIF image. Only the first frame is analyzed.
	FormatGIF Format = "GIF"
	// FormatBMP is a Windows bitmap.
	FormatBMP Format = "BMP"
	// FormatWEBP is a WebP image.
	FormatWEBP Format = "WEBP"
	// FormatTIFF is a TIFF image.
	FormatTIFF Format = "TIFF"
)

// Lossless reports whether the format stores pixel values exactly.
// LSB embedding only survives in lossless containers, so several tools
// restrict themselves to these formats.
func (f Format) Lossless() bool {
	switch f {
	case FormatPNG, FormatBMP, FormatGIF, FormatTIFF:
		return true
	default:
		return false
	}
}

// Extension returns the conventional file extension for the format,
// including the leading dot. External tools occasionally dispatch on it.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case "":
		return ".bin"
	default:
		return "." + strings.ToLower(string(f))
	}
}

// ImageInfo holds the descriptors of an ingested image.
// Dimensions are in pixels and SizeBytes is the length of the raw upload.
type ImageInfo struct {
	// Filename is the client-supplied name. It is informational only and
	// never used to build filesystem paths.
	Filename string `json:"filename"`

	// Format is the detected container format.
	Format Format `json:"format"`

	// Mode is the decoded color mode (RGB, RGBA, L, LA, P, CMYK, YCbCr, I;16).
	Mode string `json:"mode"`

	// Width in pixels.
	Width int `json:"width"`

	// Height in pixels.
	Height int `json:"height"`

	// SizeBytes is the size of the raw upload.
	SizeBytes int64 `json:"size_bytes"`

	// Fingerprint is the hex SHA3-256 digest of the raw bytes.
	Fingerprint string `json:"sha3_256"`
}

// Pixels returns the pixel count of the image.
func (i ImageInfo) Pixels() int {
	return i.Width * i.Height
}

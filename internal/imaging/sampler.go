package imaging

import (
	"image"
	"image/color"
)

// RGBFunc returns the 8-bit red, green, and blue values of the pixel at
// (x, y), where (0, 0) is the top-left corner of the image bounds.
// Alpha is ignored and values are non-premultiplied.
type RGBFunc func(x, y int) (r, g, b uint8)

// RGBSampler returns an RGBFunc for img with fast paths for the concrete
// types the decoders produce.
func RGBSampler(img image.Image) RGBFunc {
	b := img.Bounds()
	ox, oy := b.Min.X, b.Min.Y

	switch m := img.(type) {
	case *image.Gray:
		return func(x, y int) (uint8, uint8, uint8) {
			v := m.Pix[m.PixOffset(ox+x, oy+y)]
			return v, v, v
		}
	case *image.NRGBA:
		return func(x, y int) (uint8, uint8, uint8) {
			i := m.PixOffset(ox+x, oy+y)
			return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
		}
	case *image.YCbCr:
		return func(x, y int) (uint8, uint8, uint8) {
			yi := m.YOffset(ox+x, oy+y)
			ci := m.COffset(ox+x, oy+y)
			return color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
		}
	case *image.RGBA:
		if m.Opaque() {
			return func(x, y int) (uint8, uint8, uint8) {
				i := m.PixOffset(ox+x, oy+y)
				return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
			}
		}
	}

	return func(x, y int) (uint8, uint8, uint8) {
		c := color.NRGBAModel.Convert(img.At(ox+x, oy+y)).(color.NRGBA)
		return c.R, c.G, c.B
	}
}

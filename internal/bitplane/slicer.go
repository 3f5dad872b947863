package bitplane

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/deepvision/internal/imaging"
)

// Channel selects the source of a bit plane.
type Channel string

const (
	// Red is the red channel.
	Red Channel = "red"
	// Green is the green channel.
	Green Channel = "green"
	// Blue is the blue channel.
	Blue Channel = "blue"
	// Luminance is ITU-R 601-2 luma, as used by grayscale conversion.
	Luminance Channel = "luminance"
)

// ErrInvalidBit is returned when a bit index is outside 0..7.
var ErrInvalidBit = errors.New("bit index must be between 0 and 7")

// ErrInvalidChannel is returned for an unknown channel name.
var ErrInvalidChannel = errors.New("unknown channel")

// ParseChannel converts a case-insensitive name into a Channel.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case Red, Green, Blue, Luminance:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, s)
	}
}

// Title returns the display name of the channel, e.g. "Red".
// A Caser is stateful, so one is created per call.
func (c Channel) Title() string {
	return cases.Title(language.English).String(string(c))
}

// Options selects which planes Slice renders.
type Options struct {
	Channels []Channel
	Bits     []int
}

// DefaultOptions renders bits 0 and 1 of the red, green, and blue channels.
func DefaultOptions() Options {
	return Options{
		Channels: []Channel{Red, Green, Blue},
		Bits:     []int{0, 1},
	}
}

// Validate checks every channel and bit index.
func (o Options) Validate() error {
	for _, c := range o.Channels {
		if _, err := ParseChannel(string(c)); err != nil {
			return err
		}
	}
	for _, b := range o.Bits {
		if b < 0 || b > 7 {
			return fmt.Errorf("%w: %d", ErrInvalidBit, b)
		}
	}
	return nil
}

// Plane is one rendered bit plane.
type Plane struct {
	Channel Channel
	Bit     int
	Image   *image.Gray
}

// Name returns the human label of the plane, e.g. "Red Channel - Bit 0 (LSB)".
func (p Plane) Name() string {
	name := fmt.Sprintf("%s Channel - Bit %d", p.Channel.Title(), p.Bit)
	switch p.Bit {
	case 0:
		name += " (LSB)"
	case 7:
		name += " (MSB)"
	}
	return name
}

// FileName returns the artifact file name of the plane, e.g. "Red_Bit0.png".
func (p Plane) FileName() string {
	return fmt.Sprintf("%s_Bit%d.png", p.Channel.Title(), p.Bit)
}

// Slice renders the selected planes of img, channels outermost and bits
// innermost. Invalid channels or bits are skipped; call Options.Validate
// beforehand to reject them instead.
func Slice(img image.Image, opts Options) []Plane {
	planes, _ := SliceContext(context.Background(), img, opts) //nolint:errcheck // never cancelled
	return planes
}

// SliceContext is Slice that checks ctx before every row and returns
// ctx.Err() and no planes once it is done.
func SliceContext(ctx context.Context, img image.Image, opts Options) ([]Plane, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	sample := imaging.RGBSampler(img)

	planes := make([]Plane, 0, len(opts.Channels)*len(opts.Bits))
	var pickers []func(r, g, b uint8) uint8
	for _, c := range opts.Channels {
		pick := channelPicker(c)
		if pick == nil {
			continue
		}
		for _, bit := range opts.Bits {
			if bit < 0 || bit > 7 {
				continue
			}
			planes = append(planes, Plane{Channel: c, Bit: bit, Image: image.NewGray(image.Rect(0, 0, w, h))})
			pickers = append(pickers, pick)
		}
	}
	if len(planes) == 0 {
		return planes, nil
	}

	for y := range h {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := range w {
			r, g, bl := sample(x, y)
			for i := range planes {
				v := pickers[i](r, g, bl)
				if v>>uint(planes[i].Bit)&1 == 1 {
					planes[i].Image.Pix[y*planes[i].Image.Stride+x] = 0xff
				}
			}
		}
	}
	return planes, nil
}

func channelPicker(c Channel) func(r, g, b uint8) uint8 {
	switch c {
	case Red:
		return func(r, _, _ uint8) uint8 { return r }
	case Green:
		return func(_, g, _ uint8) uint8 { return g }
	case Blue:
		return func(_, _, b uint8) uint8 { return b }
	case Luminance:
		return func(r, g, b uint8) uint8 {
			return uint8((uint32(r)*299 + uint32(g)*587 + uint32(b)*114 + 500) / 1000)
		}
	default:
		return nil
	}
}

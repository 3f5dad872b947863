package lsb

import (
	"context"
	"image"
	"math"

	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
)

// DefaultMaxSamples caps the number of pixels read per image.
const DefaultMaxSamples = 4_000_000

// Band maps deviations up to and including MaxDeviation onto Level.
type Band struct {
	MaxDeviation float64
	Level        model.SuspicionLevel
}

// Thresholds is an ordered list of bands. Deviations beyond the last band
// are classified as model.SuspicionHigh.
type Thresholds []Band

// DefaultThresholds classifies |mean-0.5| <= 0.10 as Low and <= 0.25 as
// Medium.
var DefaultThresholds = Thresholds{
	{MaxDeviation: 0.10, Level: model.SuspicionLow},
	{MaxDeviation: 0.25, Level: model.SuspicionMedium},
}

// Classify returns the level for a deviation.
func (t Thresholds) Classify(deviation float64) model.SuspicionLevel {
	for _, b := range t {
		if deviation <= b.MaxDeviation {
			return b.Level
		}
	}
	return model.SuspicionHigh
}

// Analyzer computes LSB statistics.
type Analyzer struct {
	thresholds Thresholds
	maxSamples int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds replaces the threshold table.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		if len(t) > 0 {
			a.thresholds = t
		}
	}
}

// WithMaxSamples sets the pixel sampling cap.
func WithMaxSamples(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxSamples = n
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: DefaultThresholds,
		maxSamples: DefaultMaxSamples,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// checkEvery is how many samples are read between context checks.
const checkEvery = 1 << 14

// Analyze computes the statistics of img. An image with pixels always
// yields a mean within [0, 1].
func (a *Analyzer) Analyze(img image.Image) model.LSBStats {
	stats, _ := a.AnalyzeContext(context.Background(), img) //nolint:errcheck // never cancelled
	return stats
}

// AnalyzeContext is Analyze that gives up with ctx.Err() once ctx is done.
func (a *Analyzer) AnalyzeContext(ctx context.Context, img image.Image) (model.LSBStats, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	total := w * h
	if total <= 0 {
		return model.LSBStats{Mean: 0.5, Level: a.thresholds.Classify(0)}, nil
	}

	stride := 1
	if total > a.maxSamples {
		stride = (total + a.maxSamples - 1) / a.maxSamples
	}

	sample := imaging.RGBSampler(img)
	var ones [3]int
	n := 0
	for i := 0; i < total; i += stride {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return model.LSBStats{}, err
			}
		}
		r, g, bl := sample(i%w, i/w)
		ones[0] += int(r & 1)
		ones[1] += int(g & 1)
		ones[2] += int(bl & 1)
		n++
	}

	all := ones[0] + ones[1] + ones[2]
	mean := float64(all) / float64(3*n)
	deviation := math.Abs(mean - 0.5)

	return model.LSBStats{
		Mean:      mean,
		Deviation: deviation,
		Level:     a.thresholds.Classify(deviation),
		Entropy:   entropy(mean),
		Channels: model.ChannelMeans{
			Red:   float64(ones[0]) / float64(n),
			Green: float64(ones[1]) / float64(n),
			Blue:  float64(ones[2]) / float64(n),
		},
		SampledPixels: n,
		Stride:        stride,
	}, nil
}

// entropy returns the binary Shannon entropy of p.
func entropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

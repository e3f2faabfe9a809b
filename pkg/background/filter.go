// Package background decides whether an extracted tile carries tissue or is
// dominated by the bright, near-uniform glass area of the slide.
package background

import (
	"image"
	"image/color"
)

const (
	// DefaultCutoff is the gray level at and above which a pixel counts as
	// background.
	DefaultCutoff = 220
	// minGrayLevels is the emptiness test: a tile whose gray histogram
	// occupies this many bins or fewer holds no usable texture.
	minGrayLevels = 10
)

// Strategy computes the background fraction of a tile, in [0,1]. Alternative
// classifiers (saturation-based, stain-aware) plug in here without touching
// the extractor.
type Strategy interface {
	Fraction(img image.Image) float64
}

// LumaThreshold classifies a pixel as background when its BT.601 luma
// reaches the cutoff.
type LumaThreshold struct {
	Cutoff uint8
}

func (s LumaThreshold) Fraction(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 1.0
	}

	cutoff := s.Cutoff
	if cutoff == 0 {
		cutoff = DefaultCutoff
	}

	background := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if grayLevel(img.At(x, y)) >= cutoff {
				background++
			}
		}
	}
	return float64(background) / float64(total)
}

// Filter rejects tiles whose background fraction exceeds the configured
// threshold (a percentage) or whose gray histogram is too narrow to contain
// tissue. Acceptance is a pure function of pixel content.
type Filter struct {
	strategy  Strategy
	threshold float64
}

func NewFilter(strategy Strategy, thresholdPercent float64) *Filter {
	if strategy == nil {
		strategy = LumaThreshold{Cutoff: DefaultCutoff}
	}
	return &Filter{strategy: strategy, threshold: thresholdPercent}
}

// Accept reports the verdict and the computed background fraction.
func (f *Filter) Accept(img image.Image) (bool, float64) {
	fraction := f.strategy.Fraction(img)
	if fraction*100.0 > f.threshold {
		return false, fraction
	}
	if occupiedGrayLevels(img) <= minGrayLevels {
		return false, fraction
	}
	return true, fraction
}

// occupiedGrayLevels counts the distinct gray values present in the tile.
func occupiedGrayLevels(img image.Image) int {
	var hist [256]int
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[grayLevel(img.At(x, y))]++
		}
	}

	occupied := 0
	for _, count := range hist {
		if count > 0 {
			occupied++
		}
	}
	return occupied
}

func grayLevel(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

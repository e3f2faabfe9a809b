package background

import (
	"image"
	"image/color"
	"testing"
)

// tissueTile paints a textured dark tile: every pixel below the background
// cutoff with a wide spread of gray levels.
func tissueTile(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8((x*17 + y*31) % 200)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// backgroundTile paints a tile with the given fraction of near-white pixels,
// the remainder textured.
func backgroundTile(size int, fraction float64) *image.NRGBA {
	img := tissueTile(size)
	limit := int(fraction * float64(size*size))
	painted := 0
	for y := 0; y < size && painted < limit; y++ {
		for x := 0; x < size && painted < limit; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
			painted++
		}
	}
	return img
}

func TestLumaThreshold_Fraction(t *testing.T) {
	cases := []struct {
		name      string
		img       image.Image
		want      float64
		tolerance float64
	}{
		{"all tissue", tissueTile(32), 0.0, 0.001},
		{"half background", backgroundTile(32, 0.5), 0.5, 0.01},
		{"all background", backgroundTile(32, 1.0), 1.0, 0.001},
	}

	strategy := LumaThreshold{Cutoff: DefaultCutoff}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := strategy.Fraction(tc.img)
			if got < tc.want-tc.tolerance || got > tc.want+tc.tolerance {
				t.Errorf("Fraction = %v, want %v ± %v", got, tc.want, tc.tolerance)
			}
		})
	}
}

func TestFilter_RejectsAboveThreshold(t *testing.T) {
	filter := NewFilter(LumaThreshold{}, 25.0)

	if accepted, fraction := filter.Accept(backgroundTile(32, 0.5)); accepted {
		t.Errorf("tile with background fraction %v accepted at threshold 25%%", fraction)
	}
	if accepted, _ := filter.Accept(tissueTile(32)); !accepted {
		t.Error("pure tissue tile rejected")
	}
}

func TestFilter_ThresholdIsExclusive(t *testing.T) {
	// ровно на пороге плитка ещё принимается
	filter := NewFilter(LumaThreshold{}, 50.0)
	img := backgroundTile(10, 0.5)
	if accepted, fraction := filter.Accept(img); !accepted {
		t.Errorf("tile at exactly the threshold rejected (fraction %v)", fraction)
	}
}

func TestFilter_RejectsEmptyTiles(t *testing.T) {
	// Однотонная тёмная плитка: фон 0%, но текстуры нет
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}

	filter := NewFilter(LumaThreshold{}, 50.0)
	if accepted, _ := filter.Accept(img); accepted {
		t.Error("near-uniform tile accepted despite emptiness test")
	}
}

func TestFilter_DefaultsStrategyWhenNil(t *testing.T) {
	filter := NewFilter(nil, 25.0)
	if accepted, _ := filter.Accept(tissueTile(32)); !accepted {
		t.Error("default strategy rejected tissue tile")
	}
}

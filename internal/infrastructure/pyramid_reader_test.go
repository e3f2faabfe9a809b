package infrastructure

import (
	"errors"
	"histotile/internal/domain"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestImagePyramid_LevelGeometry(t *testing.T) {
	p := newImagePyramid(gradientImage(1000, 600), 20.0)

	w, h := p.Dimensions(0)
	if w != 1000 || h != 600 {
		t.Errorf("level 0 = %dx%d, want 1000x600", w, h)
	}
	w, h = p.Dimensions(1)
	if w != 500 || h != 300 {
		t.Errorf("level 1 = %dx%d, want 500x300", w, h)
	}
	// глубочайший уровень сводится к 1x1
	w, h = p.Dimensions(p.Levels() - 1)
	if w != 1 || h != 1 {
		t.Errorf("deepest level = %dx%d, want 1x1", w, h)
	}

	if mag := p.Magnification(0); mag != 20.0 {
		t.Errorf("level 0 magnification = %v, want 20", mag)
	}
	if mag := p.Magnification(2); mag != 5.0 {
		t.Errorf("level 2 magnification = %v, want 5", mag)
	}
}

func TestImagePyramid_ResolveLevel(t *testing.T) {
	p := newImagePyramid(gradientImage(1024, 1024), 20.0)

	cases := []struct {
		target    float64
		wantLevel int
		wantScale float64
	}{
		{20.0, 0, 1.0},
		{10.0, 1, 1.0},
		{5.0, 2, 1.0},
		// между уровнями выбираем уровень выше цели
		{15.0, 0, 20.0 / 15.0},
		{7.5, 1, 10.0 / 7.5},
		// выше объектива остаётся только нативный уровень
		{40.0, 0, 0.5},
	}
	for _, tc := range cases {
		level, scale := p.ResolveLevel(tc.target)
		if level != tc.wantLevel || math.Abs(scale-tc.wantScale) > 1e-9 {
			t.Errorf("ResolveLevel(%v) = (%d, %v), want (%d, %v)",
				tc.target, level, scale, tc.wantLevel, tc.wantScale)
		}
	}
}

func TestImagePyramid_ReadRegionNativeLevel(t *testing.T) {
	p := newImagePyramid(gradientImage(64, 64), 1.0)

	region, err := p.ReadRegion(0, 10, 20, 4, 4)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if region.Bounds().Dx() != 4 || region.Bounds().Dy() != 4 {
		t.Fatalf("region bounds = %v, want 4x4", region.Bounds())
	}
	got := region.NRGBAAt(0, 0)
	if got.R != 10 || got.G != 20 {
		t.Errorf("pixel (0,0) = %+v, want R=10 G=20", got)
	}
}

func TestImagePyramid_ReadRegionOutOfBounds(t *testing.T) {
	p := newImagePyramid(gradientImage(64, 64), 1.0)

	cases := []struct {
		name       string
		level      int
		x, y, w, h int
	}{
		{"negative origin", 0, -1, 0, 4, 4},
		{"beyond width", 0, 62, 0, 4, 4},
		{"zero size", 0, 0, 0, 0, 4},
		{"bad level", 9000, 0, 0, 4, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.ReadRegion(tc.level, tc.x, tc.y, tc.w, tc.h); !errors.Is(err, domain.ErrRegionRead) {
				t.Errorf("got %v, want ErrRegionRead", err)
			}
		})
	}
}

func TestImagePyramid_ReadRegionAtDownsamples(t *testing.T) {
	p := newImagePyramid(gradientImage(256, 256), 20.0)

	// target 10x: уровень 1 (128x128), scale 1 → регион читается нативно
	tile, err := p.ReadRegionAt(10.0, 0, 0, 32)
	if err != nil {
		t.Fatalf("ReadRegionAt: %v", err)
	}
	if tile.Bounds().Dx() != 32 || tile.Bounds().Dy() != 32 {
		t.Errorf("tile bounds = %v, want 32x32", tile.Bounds())
	}

	// target 15x: уровень 0, scale 4/3 → регион даунсэмплится до запрошенного
	tile, err = p.ReadRegionAt(15.0, 0, 0, 32)
	if err != nil {
		t.Fatalf("ReadRegionAt scaled: %v", err)
	}
	if tile.Bounds().Dx() != 32 || tile.Bounds().Dy() != 32 {
		t.Errorf("scaled tile bounds = %v, want 32x32", tile.Bounds())
	}
}

func TestImagePyramid_DimensionsAt(t *testing.T) {
	p := newImagePyramid(gradientImage(1024, 512), 20.0)

	w, h := p.DimensionsAt(10.0)
	if w != 512 || h != 256 {
		t.Errorf("DimensionsAt(10) = %dx%d, want 512x256", w, h)
	}
}

func TestPyramidOpener_ObjectiveByExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want float64
	}{
		{".tiff", 20.0},
		{".svs", 20.0},
		{".TIF", 20.0},
		{".png", 1.0},
		{".jpeg", 1.0},
	}
	for _, tc := range cases {
		if got := objectiveForExtension(tc.ext); got != tc.want {
			t.Errorf("objectiveForExtension(%s) = %v, want %v", tc.ext, got, tc.want)
		}
	}
}

func TestPyramidOpener_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(path, []byte("definitely not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	opener := NewPyramidOpener(zap.NewNop())
	if _, err := opener.Open(path); !errors.Is(err, domain.ErrCorruptSlide) {
		t.Errorf("got %v, want ErrCorruptSlide", err)
	}
}

func TestPyramidOpener_OpensDecodableImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slide.png")
	if err := imaging.Save(gradientImage(32, 32), path); err != nil {
		t.Fatalf("save: %v", err)
	}

	opener := NewPyramidOpener(zap.NewNop())
	reader, err := opener.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	if w, h := reader.Dimensions(0); w != 32 || h != 32 {
		t.Errorf("dimensions = %dx%d, want 32x32", w, h)
	}
}

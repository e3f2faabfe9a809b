package app

import (
	"histotile/internal/domain"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

func TestAugmentationFactors(t *testing.T) {
	counts := map[string]int{"0": 483, "1": 1120, "2": 197}
	factors := AugmentationFactors(counts)

	want := map[string]int{"0": 3, "1": 1, "2": 8}
	for label, factor := range want {
		if factors[label] != factor {
			t.Errorf("factor[%s] = %d, want %d", label, factors[label], factor)
		}
	}
}

func TestAugmentationFactors_EqualClassesAllGetMax(t *testing.T) {
	factors := AugmentationFactors(map[string]int{"0": 100, "1": 100})
	if factors["0"] != 8 || factors["1"] != 8 {
		t.Errorf("factors = %v, want both 8", factors)
	}
}

func writeTestTile(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestAugmenter_BalanceClassesWritesVariants(t *testing.T) {
	dir := t.TempDir()

	var entries []domain.ManifestEntry
	// класс "1" меньше — получает максимальный фактор
	for i, tc := range []struct{ label, slide string }{
		{"0", "a"}, {"0", "a"}, {"0", "b"}, {"0", "b"}, {"1", "c"},
	} {
		path := filepath.Join(dir, tc.label, tc.slide+"_"+string(rune('0'+i))+"_0.jpeg")
		writeTestTile(t, path)
		entries = append(entries, domain.ManifestEntry{
			TileID:  tc.slide,
			Path:    path,
			Label:   tc.label,
			SlideID: tc.slide,
		})
	}

	augmenter := NewAugmenter(zap.NewNop(), 85)
	added, err := augmenter.BalanceClasses(entries)
	if err != nil {
		t.Fatalf("BalanceClasses: %v", err)
	}

	// класс "1": 1 плитка, фактор 8 → 7 вариантов
	// класс "0": 4 плитки, фактор round(1*8/4)=2 → 1 вариант каждая
	countByLabel := make(map[string]int)
	for _, e := range added {
		countByLabel[e.Label]++
		if _, err := os.Stat(e.Path); err != nil {
			t.Errorf("variant %s not written: %v", e.Path, err)
		}
	}
	if countByLabel["1"] != 7 {
		t.Errorf("class 1 got %d variants, want 7", countByLabel["1"])
	}
	if countByLabel["0"] != 4 {
		t.Errorf("class 0 got %d variants, want 4", countByLabel["0"])
	}
}

func TestAugmenter_IsIdempotent(t *testing.T) {
	dir := t.TempDir()

	var entries []domain.ManifestEntry
	for i, label := range []string{"0", "0", "1"} {
		path := filepath.Join(dir, label, "s"+string(rune('0'+i))+"_0_0.jpeg")
		writeTestTile(t, path)
		entries = append(entries, domain.ManifestEntry{
			TileID: "s", Path: path, Label: label, SlideID: "s",
		})
	}

	augmenter := NewAugmenter(zap.NewNop(), 85)
	first, err := augmenter.BalanceClasses(entries)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := augmenter.BalanceClasses(entries)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("runs differ: %d vs %d variants", len(first), len(second))
	}
	for i := range first {
		if first[i].Path != second[i].Path {
			t.Errorf("variant %d path differs: %s vs %s", i, first[i].Path, second[i].Path)
		}
	}
}

func TestAugmenter_SingleClassIsLeftAlone(t *testing.T) {
	augmenter := NewAugmenter(zap.NewNop(), 85)
	added, err := augmenter.BalanceClasses([]domain.ManifestEntry{
		{TileID: "s", Path: "/nonexistent.jpeg", Label: "0", SlideID: "s"},
	})
	if err != nil {
		t.Fatalf("BalanceClasses: %v", err)
	}
	if added != nil {
		t.Errorf("got %d variants for a single class, want none", len(added))
	}
}

func TestRotateAndMirror_PreservesDimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for _, degrees := range []int{0, 90, 180, 270} {
		out := rotateAndMirror(img, degrees, true)
		if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 4 {
			t.Errorf("rotation %d: bounds %v, want 4x4", degrees, out.Bounds())
		}
	}
}

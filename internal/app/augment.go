package app

import (
	"fmt"
	"histotile/internal/domain"
	"image"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// maxAugmentationFactor is how many variants (rotations plus mirrored
// rotations) one tile can yield, including the original.
const maxAugmentationFactor = 8

// AugmentationFactors normalizes the tile count across classes: the smallest
// class gets the maximum factor, larger classes proportionally less.
func AugmentationFactors(tileCounts map[string]int) map[string]int {
	smallest := math.MaxInt
	for _, count := range tileCounts {
		if count < smallest {
			smallest = count
		}
	}

	factors := make(map[string]int, len(tileCounts))
	for label, count := range tileCounts {
		if count == smallest {
			factors[label] = maxAugmentationFactor
		} else {
			factors[label] = int(math.Round(float64(smallest) * maxAugmentationFactor / float64(count)))
		}
	}
	return factors
}

// Augmenter balances class representation in the training subset by writing
// rotated and mirrored copies of existing tiles.
type Augmenter struct {
	logger  *zap.Logger
	quality int
}

func NewAugmenter(logger *zap.Logger, quality int) *Augmenter {
	return &Augmenter{logger: logger, quality: quality}
}

// BalanceClasses replicates training tiles according to the per-class
// augmentation factor. Variant i gets a (90*i)%360 rotation and, for i > 3,
// a horizontal mirror. Existing variant files are reused, which keeps the
// step idempotent. Returns the entries for the written variants.
func (a *Augmenter) BalanceClasses(entries []domain.ManifestEntry) ([]domain.ManifestEntry, error) {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Label]++
	}
	if len(counts) < 2 {
		return nil, nil
	}
	factors := AugmentationFactors(counts)

	a.logger.Info("Balancing classes",
		zap.Any("tile_counts", counts),
		zap.Any("factors", factors))

	var added []domain.ManifestEntry
	for _, e := range entries {
		factor := factors[e.Label]
		if factor <= 1 {
			continue
		}

		var img image.Image
		for i := 1; i < factor; i++ {
			degrees := (90 * i) % 360
			mirror := i > 3
			path := augmentedPath(e.Path, degrees, mirror)

			if _, err := os.Stat(path); os.IsNotExist(err) {
				if img == nil {
					var err error
					img, err = imaging.Open(e.Path)
					if err != nil {
						return nil, fmt.Errorf("tile %s: %w", e.Path, err)
					}
				}
				variant := rotateAndMirror(img, degrees, mirror)
				if err := imaging.Save(variant, path, imaging.JPEGQuality(a.quality)); err != nil {
					return nil, fmt.Errorf("%w: %s: %v", domain.ErrWrite, path, err)
				}
			}

			added = append(added, domain.ManifestEntry{
				TileID:  fmt.Sprintf("%s_%d%s", e.TileID, degrees, mirrorSuffix(mirror)),
				Path:    path,
				Label:   e.Label,
				SlideID: e.SlideID,
				X:       e.X,
				Y:       e.Y,
			})
		}
	}

	a.logger.Info("Augmentation finished", zap.Int("added", len(added)))
	return added, nil
}

func rotateAndMirror(img image.Image, degrees int, mirror bool) *image.NRGBA {
	var out *image.NRGBA
	switch degrees {
	case 90:
		out = imaging.Rotate90(img)
	case 180:
		out = imaging.Rotate180(img)
	case 270:
		out = imaging.Rotate270(img)
	default:
		out = imaging.Clone(img)
	}
	if mirror {
		out = imaging.FlipH(out)
	}
	return out
}

func augmentedPath(path string, degrees int, mirror bool) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return fmt.Sprintf("%s_%d%s", path, degrees, mirrorSuffix(mirror))
	}
	return fmt.Sprintf("%s_%d%s%s", path[:idx], degrees, mirrorSuffix(mirror), path[idx:])
}

func mirrorSuffix(mirror bool) string {
	if mirror {
		return "_mirror"
	}
	return ""
}

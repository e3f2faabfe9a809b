package infrastructure

import (
	"fmt"
	"histotile/internal/domain"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// PyramidOpener opens slide files as magnification pyramids. Every call
// returns a fresh handle; handles are never shared between workers.
type PyramidOpener struct {
	logger *zap.Logger
}

func NewPyramidOpener(logger *zap.Logger) *PyramidOpener {
	return &PyramidOpener{logger: logger}
}

func (o *PyramidOpener) Open(path string) (domain.SlideReader, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptSlide, path, err)
	}

	objective := objectiveForExtension(filepath.Ext(path))
	p := newImagePyramid(imaging.Clone(img), objective)

	o.logger.Debug("Opened slide",
		zap.String("path", path),
		zap.Float64("objective", objective),
		zap.Int("levels", p.Levels()))

	return p, nil
}

// objectiveForExtension falls back by file extension when no scanner
// metadata is available: pyramid TIFF formats are scanned at 20x, plain
// raster images are taken at face value.
func objectiveForExtension(ext string) float64 {
	switch strings.ToLower(ext) {
	case ".tif", ".tiff", ".btf", ".svs":
		return 20.0
	default:
		return 1.0
	}
}

type pyramidLevel struct {
	width, height int
	downsample    int
}

// ImagePyramid models a DeepZoom-style pyramid over a decoded base image:
// level 0 is native resolution and each deeper level halves both dimensions.
type ImagePyramid struct {
	base      *image.NRGBA
	objective float64
	levels    []pyramidLevel
}

func newImagePyramid(base *image.NRGBA, objective float64) *ImagePyramid {
	w := base.Bounds().Dx()
	h := base.Bounds().Dy()

	var levels []pyramidLevel
	ds := 1
	for {
		levels = append(levels, pyramidLevel{width: w, height: h, downsample: ds})
		if w <= 1 && h <= 1 {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
		ds *= 2
	}

	return &ImagePyramid{base: base, objective: objective, levels: levels}
}

func (p *ImagePyramid) Levels() int {
	return len(p.levels)
}

func (p *ImagePyramid) Dimensions(level int) (int, int) {
	if level < 0 || level >= len(p.levels) {
		return 0, 0
	}
	return p.levels[level].width, p.levels[level].height
}

// Magnification returns the native magnification of a level.
func (p *ImagePyramid) Magnification(level int) float64 {
	return p.objective / float64(p.levels[level].downsample)
}

// ResolveLevel picks the pyramid level whose native magnification is closest
// to the target, preferring the lowest level still at or above the target so
// that tiles are produced by downsampling rather than upsampling. The
// returned scale is levelMagnification / target.
func (p *ImagePyramid) ResolveLevel(target float64) (level int, scale float64) {
	level = 0
	for i := range p.levels {
		if p.Magnification(i) >= target {
			level = i
		} else {
			break
		}
	}
	return level, p.Magnification(level) / target
}

func (p *ImagePyramid) ReadRegion(level, x, y, w, h int) (*image.NRGBA, error) {
	if level < 0 || level >= len(p.levels) {
		return nil, fmt.Errorf("%w: level %d of %d", domain.ErrRegionRead, level, len(p.levels))
	}
	lv := p.levels[level]
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x+w > lv.width || y+h > lv.height {
		return nil, fmt.Errorf("%w: region (%d,%d,%d,%d) outside level %d (%dx%d)",
			domain.ErrRegionRead, x, y, w, h, level, lv.width, lv.height)
	}

	rect := image.Rect(x*lv.downsample, y*lv.downsample, (x+w)*lv.downsample, (y+h)*lv.downsample)
	rect = rect.Intersect(p.base.Bounds())
	region := imaging.Crop(p.base, rect)
	if level > 0 {
		region = imaging.Resize(region, w, h, imaging.Lanczos)
	}
	return region, nil
}

func (p *ImagePyramid) DimensionsAt(magnification float64) (int, int) {
	level, scale := p.ResolveLevel(magnification)
	w, h := p.Dimensions(level)
	return int(float64(w) / scale), int(float64(h) / scale)
}

func (p *ImagePyramid) ReadRegionAt(magnification float64, x, y, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: non-positive tile size %d", domain.ErrRegionRead, size)
	}
	level, scale := p.ResolveLevel(magnification)
	lv := p.levels[level]

	lx := int(math.Round(float64(x) * scale))
	ly := int(math.Round(float64(y) * scale))
	lsize := int(math.Round(float64(size) * scale))
	if lsize < 1 {
		lsize = 1
	}
	// Rounding at the far edge may overshoot the level by a pixel; shift the
	// window back instead of failing the tile.
	if lx+lsize > lv.width {
		lx = lv.width - lsize
	}
	if ly+lsize > lv.height {
		ly = lv.height - lsize
	}

	region, err := p.ReadRegion(level, lx, ly, lsize, lsize)
	if err != nil {
		return nil, err
	}
	if lsize != size {
		region = imaging.Resize(region, size, size, imaging.Lanczos)
	}
	return region, nil
}

func (p *ImagePyramid) Close() error {
	p.base = nil
	return nil
}

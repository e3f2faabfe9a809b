package app

import (
	"fmt"
	"histotile/internal/domain"

	"go.uber.org/zap"
)

// TileExtractor runs the full extraction for one slide: grid computation,
// region reads, background filtering and tile persistence. Each invocation
// opens its own reader handle, so extractors are safe to run from multiple
// workers as long as slides are disjoint.
type TileExtractor struct {
	logger *zap.Logger
	opener domain.SlideOpener
	filter domain.TileFilter
	writer domain.TileWriter
	config *domain.Config
}

func NewTileExtractor(logger *zap.Logger, opener domain.SlideOpener, filter domain.TileFilter, writer domain.TileWriter, config *domain.Config) *TileExtractor {
	return &TileExtractor{
		logger: logger,
		opener: opener,
		filter: filter,
		writer: writer,
		config: config,
	}
}

// ExtractSlide produces manifest entries for every accepted tile of the
// slide. The grid is a pure function of slide geometry and configuration, so
// re-running a failed slide is safe.
func (e *TileExtractor) ExtractSlide(slide domain.Slide) ([]domain.ManifestEntry, error) {
	reader, err := e.opener.Open(slide.Path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	level, _ := reader.ResolveLevel(e.config.Magnification)
	width, height := reader.DimensionsAt(e.config.Magnification)
	coords := domain.TileGrid(slide.ID, level, width, height, e.config.TileSize, e.config.Overlap)

	e.logger.Debug("Computed tile grid",
		zap.String("slide", slide.ID),
		zap.Int("level", level),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("tiles", len(coords)))

	entries := make([]domain.ManifestEntry, 0, len(coords))
	rejected := 0
	for _, c := range coords {
		pixels, err := reader.ReadRegionAt(e.config.Magnification, c.X, c.Y, e.config.TileSize)
		if err != nil {
			return nil, err
		}

		tile := domain.Tile{Coord: c, Pixels: pixels}
		tile.Accepted, tile.BackgroundFraction = e.filter.Accept(pixels)
		if !tile.Accepted {
			rejected++
			e.logger.Debug("Rejected background tile",
				zap.String("slide", slide.ID),
				zap.Int("x", c.X),
				zap.Int("y", c.Y),
				zap.Float64("background_fraction", tile.BackgroundFraction))
			continue
		}

		path, err := e.writer.WriteTile(slide.Label, slide.ID, c, tile.Pixels)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.ManifestEntry{
			TileID:  fmt.Sprintf("%s_%d_%d", slide.ID, c.X, c.Y),
			Path:    path,
			Label:   slide.Label,
			SlideID: slide.ID,
			X:       c.X,
			Y:       c.Y,
		})
	}

	e.logger.Info("Extracted slide",
		zap.String("slide", slide.ID),
		zap.String("label", slide.Label),
		zap.Int("accepted", len(entries)),
		zap.Int("rejected", rejected))

	return entries, nil
}

package infrastructure

import (
	"fmt"
	"histotile/internal/domain"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// JPEGTileWriter persists accepted tiles under the output folder, one
// directory per label so downstream consumers can infer the class from the
// path.
type JPEGTileWriter struct {
	logger  *zap.Logger
	root    string
	quality int
}

func NewJPEGTileWriter(logger *zap.Logger, root string, quality int) *JPEGTileWriter {
	return &JPEGTileWriter{logger: logger, root: root, quality: quality}
}

// TilePath returns the output path for a tile without writing it.
func (w *JPEGTileWriter) TilePath(label, slideID string, coord domain.TileCoordinate) string {
	name := fmt.Sprintf("%s_%d_%d.jpeg", slideID, coord.X, coord.Y)
	return filepath.Join(w.root, label, name)
}

func (w *JPEGTileWriter) WriteTile(label, slideID string, coord domain.TileCoordinate, img image.Image) (string, error) {
	path := w.TilePath(label, slideID, coord)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrWrite, err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(w.quality)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrWrite, path, err)
	}

	w.logger.Debug("Wrote tile",
		zap.String("path", path),
		zap.String("slide", slideID))

	return path, nil
}

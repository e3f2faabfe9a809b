package domain

import (
	"context"
	"image"
)

// SlideReader интерфейс для чтения регионов пирамиды одного слайда
type SlideReader interface {
	// Levels reports how many pyramid levels are available.
	Levels() int
	// Dimensions returns the pixel dimensions of one level.
	Dimensions(level int) (width, height int)
	// DimensionsAt returns the slide dimensions as seen at the target
	// magnification.
	DimensionsAt(magnification float64) (width, height int)
	// ResolveLevel picks the level whose native magnification is closest
	// to the target, preferring a higher-resolution level over upsampling.
	ResolveLevel(magnification float64) (level int, scale float64)
	// ReadRegion reads native-level pixels.
	ReadRegion(level, x, y, w, h int) (*image.NRGBA, error)
	// ReadRegionAt reads a size×size tile at the target magnification,
	// downsampling from a higher-resolution level when necessary.
	ReadRegionAt(magnification float64, x, y, size int) (*image.NRGBA, error)
	Close() error
}

// SlideOpener opens one reader handle per call. Handles must not be shared
// across workers.
type SlideOpener interface {
	Open(path string) (SlideReader, error)
}

// TileFilter интерфейс фильтра фоновых плиток
type TileFilter interface {
	// Accept reports whether a tile is informative, along with the
	// background fraction in [0,1] it computed.
	Accept(img image.Image) (bool, float64)
}

// TileWriter интерфейс для записи принятых плиток
type TileWriter interface {
	WriteTile(label, slideID string, coord TileCoordinate, img image.Image) (string, error)
}

// ConfigReader интерфейс для чтения конфигурации
type ConfigReader interface {
	ReadConfig(path string) (*Config, error)
}

// Trainer is the opaque model-update collaborator. Epochs are sequential;
// model state carried between calls belongs to the implementation.
type Trainer interface {
	TrainEpoch(ctx context.Context, samples []TrainingSample) error
	Score(ctx context.Context, sample TrainingSample) (float64, error)
}

// MetricSink receives evaluation scalars. The tensorboard kwargs string is
// parsed at the boundary and attached by the implementation; the core never
// interprets it.
type MetricSink interface {
	RecordScalar(name string, step int, value float64)
}

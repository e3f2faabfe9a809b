package domain

import (
	"errors"
	"fmt"
	"image"
)

// Slide представляет один файл слайда
type Slide struct {
	ID    string
	Path  string
	Label string
}

// TileCoordinate адрес плитки в пирамиде
type TileCoordinate struct {
	SlideID string
	Level   int
	X, Y    int
	Width   int
	Height  int
}

// Tile представляет извлечённую плитку
type Tile struct {
	Coord              TileCoordinate
	Pixels             *image.NRGBA
	BackgroundFraction float64
	Accepted           bool
}

// ManifestEntry одна принятая плитка в манифесте
type ManifestEntry struct {
	TileID  string `yaml:"tile_id"`
	Path    string `yaml:"path"`
	Label   string `yaml:"label"`
	SlideID string `yaml:"slide_id"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
}

// DatasetManifest is the append-only record of every accepted tile. It is
// built during extraction and must not change once splitting begins.
type DatasetManifest struct {
	Entries []ManifestEntry
}

// Append adds accepted tiles to the manifest.
func (m *DatasetManifest) Append(entries ...ManifestEntry) {
	m.Entries = append(m.Entries, entries...)
}

// SlideIDs returns the distinct slide identifiers present in the manifest,
// in first-seen order.
func (m *DatasetManifest) SlideIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range m.Entries {
		if !seen[e.SlideID] {
			seen[e.SlideID] = true
			ids = append(ids, e.SlideID)
		}
	}
	return ids
}

// Split разбиение манифеста на обучающую и валидационную части
type Split struct {
	Train            []ManifestEntry
	Validation       []ManifestEntry
	TrainSlides      []string
	ValidationSlides []string
}

// TrainingSample одна плитка, подготовленная для обучения
type TrainingSample struct {
	Path    string
	SlideID string
	Label   string
	Pixels  *image.NRGBA
}

// SlideFailure records one slide whose extraction job failed.
type SlideFailure struct {
	SlideID string
	Err     error
}

func (f SlideFailure) Error() string {
	return fmt.Sprintf("slide %s: %v", f.SlideID, f.Err)
}

var (
	ErrConfiguration      = errors.New("invalid configuration")
	ErrMissingLabel       = errors.New("slide has no label entry")
	ErrNoSlidesFound      = errors.New("no slide files found")
	ErrCorruptSlide       = errors.New("cannot open slide")
	ErrRegionRead         = errors.New("region read failed")
	ErrWrite              = errors.New("write failed")
	ErrInsufficientSlides = errors.New("not enough slides to split")
	ErrExtractionFailed   = errors.New("all slide extractions failed")
	ErrSchedulerStopped   = errors.New("scheduler is stopped")
)

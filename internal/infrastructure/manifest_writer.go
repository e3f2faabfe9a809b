package infrastructure

import (
	"bufio"
	"fmt"
	"histotile/internal/domain"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// manifestDocument is the on-disk shape of a finalized extraction run.
type manifestDocument struct {
	Tiles            []domain.ManifestEntry `yaml:"tiles"`
	TrainSlides      []string               `yaml:"train_slides"`
	ValidationSlides []string               `yaml:"validation_slides"`
}

// ManifestWriter persists the dataset manifest and split for downstream
// consumers.
type ManifestWriter struct {
	logger *zap.Logger
}

func NewManifestWriter(logger *zap.Logger) *ManifestWriter {
	return &ManifestWriter{logger: logger}
}

func (w *ManifestWriter) WriteManifest(path string, manifest *domain.DatasetManifest, split *domain.Split) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWrite, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	doc := manifestDocument{
		Tiles:            manifest.Entries,
		TrainSlides:      split.TrainSlides,
		ValidationSlides: split.ValidationSlides,
	}
	enc := yaml.NewEncoder(writer)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrWrite, path, err)
	}

	w.logger.Info("Wrote manifest",
		zap.String("path", path),
		zap.Int("tiles", len(manifest.Entries)))

	return nil
}

// ReadManifest loads a previously written manifest document.
func (w *ManifestWriter) ReadManifest(path string) (*domain.DatasetManifest, *domain.Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var doc manifestDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	manifest := &domain.DatasetManifest{Entries: doc.Tiles}
	validation := make(map[string]bool, len(doc.ValidationSlides))
	for _, id := range doc.ValidationSlides {
		validation[id] = true
	}
	split := &domain.Split{
		TrainSlides:      doc.TrainSlides,
		ValidationSlides: doc.ValidationSlides,
	}
	for _, e := range doc.Tiles {
		if validation[e.SlideID] {
			split.Validation = append(split.Validation, e)
		} else {
			split.Train = append(split.Train, e)
		}
	}
	return manifest, split, nil
}

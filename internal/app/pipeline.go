package app

import (
	"fmt"
	"histotile/internal/domain"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Pipeline fans slide extraction jobs out over a bounded worker pool and
// assembles the dataset manifest once every job has joined.
type Pipeline struct {
	logger    *zap.Logger
	extractor *TileExtractor
	config    *domain.Config
}

func NewPipeline(logger *zap.Logger, extractor *TileExtractor, config *domain.Config) *Pipeline {
	return &Pipeline{
		logger:    logger,
		extractor: extractor,
		config:    config,
	}
}

type extractionResult struct {
	Slide   domain.Slide
	Entries []domain.ManifestEntry
	Err     error
}

// Run processes every slide at most once with up to config.Workers jobs in
// flight. A failed slide does not abort the others; failures are collected
// and returned after the join barrier. Only when every slide fails does Run
// report ErrExtractionFailed.
func (p *Pipeline) Run(slides []domain.Slide) (*domain.DatasetManifest, []domain.SlideFailure, error) {
	var wg sync.WaitGroup
	taskChan := make(chan domain.Slide, p.config.Workers*2)
	resultChan := make(chan extractionResult, len(slides))

	// Запускаем воркеры
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		p.logger.Info("Starting worker", zap.Int("id", i))
		go p.worker(i, taskChan, resultChan, &wg)
	}

	// Отправляем задачи
	go func() {
		for _, slide := range slides {
			taskChan <- slide
		}
		close(taskChan)
	}()

	// Собираем результаты
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	manifest := &domain.DatasetManifest{}
	var failures []domain.SlideFailure
	for result := range resultChan {
		if result.Err != nil {
			p.logger.Error("Slide extraction failed",
				zap.String("slide", result.Slide.ID),
				zap.Error(result.Err))
			failures = append(failures, domain.SlideFailure{SlideID: result.Slide.ID, Err: result.Err})
			continue
		}
		manifest.Append(result.Entries...)
	}

	if len(slides) > 0 && len(failures) == len(slides) {
		return nil, failures, fmt.Errorf("%w: %d slide(s)", domain.ErrExtractionFailed, len(slides))
	}

	// Results arrive in completion order; sort so the manifest is identical
	// across runs.
	sort.Slice(manifest.Entries, func(i, j int) bool {
		a, b := manifest.Entries[i], manifest.Entries[j]
		if a.SlideID != b.SlideID {
			return a.SlideID < b.SlideID
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	p.logger.Info("Extraction finished",
		zap.Int("slides", len(slides)),
		zap.Int("failed", len(failures)),
		zap.Int("tiles", len(manifest.Entries)))

	return manifest, failures, nil
}

func (p *Pipeline) worker(id int, tasks <-chan domain.Slide, results chan<- extractionResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for slide := range tasks {
		p.logger.Debug("Processing slide",
			zap.Int("worker", id),
			zap.String("slide", slide.ID))

		entries, err := p.extractor.ExtractSlide(slide)

		results <- extractionResult{
			Slide:   slide,
			Entries: entries,
			Err:     err,
		}
	}
}

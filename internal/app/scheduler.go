package app

import (
	"context"
	"fmt"
	"histotile/internal/domain"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// SchedulerState is the phase of the round state machine.
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateRunningRound
	StateEvaluating
	StateStopped
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningRound:
		return "running_round"
	case StateEvaluating:
		return "evaluating"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// AUCFunc computes the slide-level AUC; injected so tests can observe calls.
type AUCFunc func(slideIDs []string, scores []float64, positives []bool) float64

// RoundScheduler drives sequential training rounds over a finalized split.
// Each round runs epochs_per_round epochs with the configured flip
// augmentation applied uniformly to the training subset; whenever the
// cumulative epoch count crosses a multiple of num_epoch_per_auc_calc, a
// slide-level AUC evaluation is emitted to the metric sink. Stop requests
// take effect between rounds only.
type RoundScheduler struct {
	logger  *zap.Logger
	trainer domain.Trainer
	sink    domain.MetricSink
	config  *domain.Config
	split   *domain.Split
	auc     AUCFunc

	mu               sync.Mutex
	state            SchedulerState
	stopRequested    bool
	round            int
	cumulativeEpochs int
	evaluations      int
}

func NewRoundScheduler(logger *zap.Logger, trainer domain.Trainer, sink domain.MetricSink, config *domain.Config, split *domain.Split, auc AUCFunc) *RoundScheduler {
	return &RoundScheduler{
		logger:  logger,
		trainer: trainer,
		sink:    sink,
		config:  config,
		split:   split,
		auc:     auc,
		state:   StateIdle,
	}
}

func (s *RoundScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *RoundScheduler) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

func (s *RoundScheduler) CumulativeEpochs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cumulativeEpochs
}

// Stop requests termination. A round already running finishes normally; the
// next RunRound call returns ErrSchedulerStopped.
func (s *RoundScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequested = true
	if s.state == StateIdle {
		s.state = StateStopped
	}
}

func (s *RoundScheduler) setState(state SchedulerState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// RunRound executes one full round: load, train epochs_per_round epochs,
// then evaluate if the AUC cadence is due.
func (s *RoundScheduler) RunRound(ctx context.Context) error {
	s.mu.Lock()
	if s.stopRequested || s.state == StateStopped {
		s.state = StateStopped
		s.mu.Unlock()
		return domain.ErrSchedulerStopped
	}
	s.state = StateRunningRound
	round := s.round
	s.mu.Unlock()

	samples, err := s.loadSamples(s.split.Train, s.config.GetFlipMode())
	if err != nil {
		s.setState(StateIdle)
		return err
	}

	s.logger.Info("Starting round",
		zap.Int("round", round),
		zap.Int("epochs", s.config.EpochsPerRound),
		zap.String("flipmode", s.config.FlipMode),
		zap.Int("samples", len(samples)))

	// Эпохи строго последовательные: состояние модели одной эпохи питает
	// следующую
	for epoch := 0; epoch < s.config.EpochsPerRound; epoch++ {
		if err := s.trainer.TrainEpoch(ctx, samples); err != nil {
			s.setState(StateIdle)
			return fmt.Errorf("round %d epoch %d: %w", round, epoch, err)
		}
		s.mu.Lock()
		s.cumulativeEpochs++
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.round++
	cumulative := s.cumulativeEpochs
	cadence := s.config.NumEpochPerAUCCalc
	due := cadence > 0 && cumulative/cadence > s.evaluations
	s.mu.Unlock()

	if due {
		s.setState(StateEvaluating)
		if err := s.evaluate(ctx, cumulative); err != nil {
			s.setState(StateIdle)
			return err
		}
		s.mu.Lock()
		s.evaluations = cumulative / cadence
		s.mu.Unlock()
	}

	s.setState(StateIdle)
	return nil
}

// evaluate scores both subsets, aggregates tile predictions per slide and
// reports ROC-AUC to the metric sink at the cumulative-epoch step.
func (s *RoundScheduler) evaluate(ctx context.Context, step int) error {
	trainAUC, err := s.subsetAUC(ctx, s.split.Train)
	if err != nil {
		return err
	}
	validAUC, err := s.subsetAUC(ctx, s.split.Validation)
	if err != nil {
		return err
	}

	s.sink.RecordScalar("train slide-level ROC-AUC", step, trainAUC)
	s.sink.RecordScalar("validation slide-level ROC-AUC", step, validAUC)

	s.logger.Info("Evaluation",
		zap.Int("epoch", step),
		zap.Float64("train_auc", trainAUC),
		zap.Float64("validation_auc", validAUC))

	return nil
}

func (s *RoundScheduler) subsetAUC(ctx context.Context, entries []domain.ManifestEntry) (float64, error) {
	samples, err := s.loadSamples(entries, domain.FlipNone)
	if err != nil {
		return 0, err
	}

	negative := s.negativeLabel()
	slideIDs := make([]string, len(samples))
	scores := make([]float64, len(samples))
	positives := make([]bool, len(samples))
	for i, sample := range samples {
		score, err := s.trainer.Score(ctx, sample)
		if err != nil {
			return 0, err
		}
		slideIDs[i] = sample.SlideID
		scores[i] = score
		positives[i] = sample.Label != negative
	}
	return s.auc(slideIDs, scores, positives), nil
}

// negativeLabel picks the lexically first label of the split as the negative
// class; every other label counts as positive.
func (s *RoundScheduler) negativeLabel() string {
	seen := make(map[string]bool)
	var labels []string
	for _, e := range s.split.Train {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	for _, e := range s.split.Validation {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	sort.Strings(labels)
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

// loadSamples reads tiles from disk and applies the flip mode uniformly.
func (s *RoundScheduler) loadSamples(entries []domain.ManifestEntry, mode domain.FlipMode) ([]domain.TrainingSample, error) {
	samples := make([]domain.TrainingSample, 0, len(entries))
	for _, e := range entries {
		img, err := imaging.Open(e.Path)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", e.Path, err)
		}
		pixels := imaging.Clone(img)
		switch mode {
		case domain.FlipHorizontal:
			pixels = imaging.FlipH(pixels)
		case domain.FlipVertical:
			pixels = imaging.FlipV(pixels)
		case domain.FlipBoth:
			pixels = imaging.FlipV(imaging.FlipH(pixels))
		}
		samples = append(samples, domain.TrainingSample{
			Path:    e.Path,
			SlideID: e.SlideID,
			Label:   e.Label,
			Pixels:  pixels,
		})
	}
	return samples, nil
}

// Package training holds the default model collaborator. The real model and
// its gradient computation live outside this system; MeanIntensityModel is
// the stand-in that lets the binary drive the round loop end to end.
package training

import (
	"context"
	"math"

	"histotile/internal/domain"

	"go.uber.org/zap"
)

// MeanIntensityModel is a one-feature logistic classifier over the mean tile
// intensity. Tissue-dense tiles are darker than sparse ones, which gives the
// feature just enough signal to exercise the scheduler and the AUC path.
type MeanIntensityModel struct {
	logger        *zap.Logger
	positiveLabel string
	weight        float64
	bias          float64
	learningRate  float64
}

func NewMeanIntensityModel(logger *zap.Logger, positiveLabel string) *MeanIntensityModel {
	return &MeanIntensityModel{
		logger:        logger,
		positiveLabel: positiveLabel,
		learningRate:  0.1,
	}
}

func (m *MeanIntensityModel) TrainEpoch(ctx context.Context, samples []domain.TrainingSample) error {
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}

		x := meanIntensity(sample)
		p := sigmoid(m.weight*x + m.bias)
		y := 0.0
		if sample.Label == m.positiveLabel {
			y = 1.0
		}

		grad := p - y
		m.weight -= m.learningRate * grad * x
		m.bias -= m.learningRate * grad
	}

	m.logger.Debug("Epoch finished",
		zap.Int("samples", len(samples)),
		zap.Float64("weight", m.weight),
		zap.Float64("bias", m.bias))

	return nil
}

func (m *MeanIntensityModel) Score(ctx context.Context, sample domain.TrainingSample) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return sigmoid(m.weight*meanIntensity(sample) + m.bias), nil
}

// meanIntensity averages the RGB channels over the tile, normalized to [0,1].
func meanIntensity(sample domain.TrainingSample) float64 {
	img := sample.Pixels
	if img == nil {
		return 0
	}
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			sum += float64(c.R) + float64(c.G) + float64(c.B)
		}
	}
	return sum / (3.0 * 255.0 * float64(total))
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

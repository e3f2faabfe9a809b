// Package evaluation computes the slide-level ROC-AUC used for periodic
// model checkpoints. Tile predictions from one slide are averaged before the
// curve is built, so the metric reflects whole-slide calls rather than the
// (much larger and correlated) tile population.
package evaluation

import (
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// SlideScore is one slide's aggregated prediction and ground truth.
type SlideScore struct {
	SlideID  string
	Score    float64
	Positive bool
}

// AggregateBySlide averages tile-level scores per slide. The label of a
// slide is the label its tiles carry; tiles of one slide always agree.
func AggregateBySlide(slideIDs []string, scores []float64, positives []bool) []SlideScore {
	type acc struct {
		sum      float64
		count    int
		positive bool
	}
	bySlide := make(map[string]*acc)
	var order []string
	for i, id := range slideIDs {
		a, ok := bySlide[id]
		if !ok {
			a = &acc{positive: positives[i]}
			bySlide[id] = a
			order = append(order, id)
		}
		a.sum += scores[i]
		a.count++
	}

	sort.Strings(order)
	result := make([]SlideScore, 0, len(order))
	for _, id := range order {
		a := bySlide[id]
		result = append(result, SlideScore{
			SlideID:  id,
			Score:    a.sum / float64(a.count),
			Positive: a.positive,
		})
	}
	return result
}

// AUC computes the area under the ROC curve for binary ground truth. It
// returns NaN-free 0.5 when only one class is present, since the curve is
// undefined there.
func AUC(scores []float64, positives []bool) float64 {
	if len(scores) == 0 || len(scores) != len(positives) {
		return 0.5
	}
	hasPos, hasNeg := false, false
	for _, p := range positives {
		if p {
			hasPos = true
		} else {
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		return 0.5
	}

	// stat.ROC требует отсортированные по score данные
	y := make([]float64, len(scores))
	classes := make([]bool, len(positives))
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	for i, j := range idx {
		y[i] = scores[j]
		classes[i] = positives[j]
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// SlideAUC aggregates tile scores per slide and computes the AUC over the
// aggregated slide calls.
func SlideAUC(slideIDs []string, scores []float64, positives []bool) float64 {
	agg := AggregateBySlide(slideIDs, scores, positives)
	s := make([]float64, len(agg))
	p := make([]bool, len(agg))
	for i, a := range agg {
		s[i] = a.Score
		p[i] = a.Positive
	}
	return AUC(s, p)
}

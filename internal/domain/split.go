package domain

import (
	"fmt"
	"math"
	"sort"
)

// SplitManifest partitions a finalized manifest into train and validation
// subsets. The partition is slide-level: tiles from one slide are highly
// correlated, so a slide never contributes to both subsets. Slides are
// ordered lexically by identifier and a prefix of round(split*N) slides goes
// to validation, which makes the partition reproducible across runs.
func SplitManifest(m *DatasetManifest, validationSplit float64) (*Split, error) {
	if validationSplit < 0 || validationSplit >= 1 {
		return nil, fmt.Errorf("%w: validation_split %v outside [0,1)", ErrConfiguration, validationSplit)
	}

	slides := m.SlideIDs()
	if len(slides) < 2 {
		return nil, fmt.Errorf("%w: have %d slide(s)", ErrInsufficientSlides, len(slides))
	}
	sort.Strings(slides)

	numValidation := int(math.Round(validationSplit * float64(len(slides))))
	validationSet := make(map[string]bool, numValidation)
	for _, id := range slides[:numValidation] {
		validationSet[id] = true
	}

	split := &Split{
		TrainSlides:      slides[numValidation:],
		ValidationSlides: slides[:numValidation],
	}
	for _, e := range m.Entries {
		if validationSet[e.SlideID] {
			split.Validation = append(split.Validation, e)
		} else {
			split.Train = append(split.Train, e)
		}
	}
	return split, nil
}

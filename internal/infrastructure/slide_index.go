package infrastructure

import (
	"bufio"
	"fmt"
	"histotile/internal/domain"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// SlideIndex discovers slide files under the dataset root and associates
// each with its label from the labels file.
type SlideIndex struct {
	logger *zap.Logger
}

func NewSlideIndex(logger *zap.Logger) *SlideIndex {
	return &SlideIndex{logger: logger}
}

// Scan enumerates files with the given extension directly under root and
// resolves their labels. The slide identifier is the base file name without
// the extension.
func (s *SlideIndex) Scan(root, extension, labelsPath string) ([]domain.Slide, error) {
	labels, err := s.readLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSlidesFound, err)
	}

	var slides []domain.Slide
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), extension)
		label, ok := labels[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s (labels file %s)", domain.ErrMissingLabel, id, labelsPath)
		}
		slides = append(slides, domain.Slide{
			ID:    id,
			Path:  filepath.Join(root, entry.Name()),
			Label: label,
		})
	}

	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no *%s files under %s", domain.ErrNoSlidesFound, extension, root)
	}

	sort.Slice(slides, func(i, j int) bool { return slides[i].ID < slides[j].ID })

	s.logger.Info("Indexed slides",
		zap.Int("count", len(slides)),
		zap.String("extension", extension))

	return slides, nil
}

// readLabels parses the labels file: one slide per line, the first field is
// the slide identifier and the remainder of the line is the label.
func (s *SlideIndex) readLabels(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: labels file: %v", domain.ErrConfiguration, err)
	}
	defer file.Close()

	labels := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			s.logger.Warn("Skipping malformed labels line", zap.String("line", line))
			continue
		}
		// Метка может содержать пробелы
		labels[fields[0]] = strings.Join(fields[1:], " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: labels file: %v", domain.ErrConfiguration, err)
	}

	return labels, nil
}

package infrastructure

import (
	"flag"
	"fmt"
	"histotile/internal/domain"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type YAMLConfigReader struct {
	logger *zap.Logger
}

func NewYAMLConfigReader(logger *zap.Logger) *YAMLConfigReader {
	return &YAMLConfigReader{logger: logger}
}

func (r *YAMLConfigReader) ReadConfig(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	var config domain.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	// Применяем аргументы командной строки
	r.applyCommandLineFlags(&config)

	// Устанавливаем значения по умолчанию
	r.setDefaults(&config)

	if err := r.validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (r *YAMLConfigReader) applyCommandLineFlags(config *domain.Config) {
	workers := flag.Int("workers", config.Workers, "Number of extraction workers")
	magnification := flag.Float64("magnification", config.Magnification, "Target magnification")
	background := flag.Float64("background", config.Background, "Background rejection threshold, percent")
	rounds := flag.Int("rounds", config.Rounds, "Training rounds to run")
	logLevel := flag.String("log-level", config.LogLevel, "Log level")

	flag.Parse()

	config.Workers = *workers
	config.Magnification = *magnification
	config.Background = *background
	config.Rounds = *rounds
	config.LogLevel = *logLevel
}

func (r *YAMLConfigReader) setDefaults(config *domain.Config) {
	if config.TileSize == 0 {
		config.TileSize = 299
	}
	if config.Magnification == 0 {
		config.Magnification = 20.0
	}
	if config.Background == 0 {
		config.Background = 25.0
	}
	if config.Quality == 0 {
		config.Quality = 85
	}
	if config.Workers == 0 {
		config.Workers = max(1, runtime.NumCPU()-1)
	}
	if config.OutputFolder == "" {
		config.OutputFolder = "tiles"
	}
	if config.SlideExtension == "" {
		config.SlideExtension = ".tiff"
	}
	if config.ValidationSplit == 0 {
		config.ValidationSplit = 0.2
	}
	if config.EpochsPerRound == 0 {
		config.EpochsPerRound = 1
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

func (r *YAMLConfigReader) validate(config *domain.Config) error {
	if config.TileSize <= 0 {
		return fmt.Errorf("%w: tile_size must be positive", domain.ErrConfiguration)
	}
	if config.Overlap < 0 || config.Overlap >= config.TileSize {
		return fmt.Errorf("%w: overlap must be in [0, tile_size)", domain.ErrConfiguration)
	}
	if config.Background < 0 || config.Background > 100 {
		return fmt.Errorf("%w: background must be in [0, 100]", domain.ErrConfiguration)
	}
	if config.Quality < 0 || config.Quality > 100 {
		return fmt.Errorf("%w: quality must be in [0, 100]", domain.ErrConfiguration)
	}
	if config.ValidationSplit < 0 || config.ValidationSplit >= 1 {
		return fmt.Errorf("%w: validation_split must be in [0, 1)", domain.ErrConfiguration)
	}
	if config.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", domain.ErrConfiguration)
	}
	if config.EpochsPerRound < 1 {
		return fmt.Errorf("%w: epochs_per_round must be at least 1", domain.ErrConfiguration)
	}
	if config.NumEpochPerAUCCalc < 0 {
		return fmt.Errorf("%w: num_epoch_per_auc_calc must not be negative", domain.ErrConfiguration)
	}
	switch config.FlipMode {
	case "", "none", "horizontal", "vertical", "horizontal_and_vertical":
	default:
		return fmt.Errorf("%w: unknown flipmode %q", domain.ErrConfiguration, config.FlipMode)
	}
	return nil
}

// ResolvePaths expands the environment-variable indirection of the
// configuration into concrete absolute paths. This runs once at startup; the
// core components never read environment variables themselves.
func (r *YAMLConfigReader) ResolvePaths(config *domain.Config) (*domain.ResolvedPaths, error) {
	if config.DatasetPathEnvVar == "" {
		return nil, fmt.Errorf("%w: dataset_path_env_var is required", domain.ErrConfiguration)
	}
	root := os.Getenv(config.DatasetPathEnvVar)
	if root == "" {
		return nil, fmt.Errorf("%w: environment variable %s is not set", domain.ErrConfiguration, config.DatasetPathEnvVar)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if config.LabelsFile == "" {
		return nil, fmt.Errorf("%w: labels_file is required", domain.ErrConfiguration)
	}

	paths := &domain.ResolvedPaths{
		DatasetRoot: root,
		OutputDir:   filepath.Join(root, config.OutputFolder),
		LabelsPath:  filepath.Join(root, config.LabelsFile),
	}
	if config.BaseImageEnvVar != "" {
		paths.BaseImage = os.Getenv(config.BaseImageEnvVar)
	}

	r.logger.Info("Resolved dataset paths",
		zap.String("root", paths.DatasetRoot),
		zap.String("output", paths.OutputDir),
		zap.String("labels", paths.LabelsPath))

	return paths, nil
}

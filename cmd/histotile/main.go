package main

import (
	"context"
	"flag"
	"histotile/internal/app"
	"histotile/internal/domain"
	"histotile/internal/infrastructure"
	"histotile/internal/training"
	"histotile/pkg/background"
	"histotile/pkg/evaluation"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// Инициализация логгера
	logger := initLogger("info")
	defer logger.Sync()

	// Чтение конфигурации
	configReader := infrastructure.NewYAMLConfigReader(logger)
	config, err := configReader.ReadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to read config", zap.Error(err))
	}

	// Обновляем уровень логирования
	logger = initLogger(config.LogLevel, config.LogFile)

	paths, err := configReader.ResolvePaths(config)
	if err != nil {
		logger.Fatal("Failed to resolve dataset paths", zap.Error(err))
	}

	// Инициализация компонентов
	index := infrastructure.NewSlideIndex(logger)
	opener := infrastructure.NewPyramidOpener(logger)
	filter := background.NewFilter(background.LumaThreshold{}, config.Background)
	tileWriter := infrastructure.NewJPEGTileWriter(logger, paths.OutputDir, config.Quality)
	extractor := app.NewTileExtractor(logger, opener, filter, tileWriter, config)
	pipeline := app.NewPipeline(logger, extractor, config)

	slides, err := index.Scan(paths.DatasetRoot, config.SlideExtension, paths.LabelsPath)
	if err != nil {
		logger.Fatal("Failed to index slides", zap.Error(err))
	}

	logger.Info("Starting tile extraction",
		zap.Int("slides", len(slides)),
		zap.Int("tile_size", config.TileSize),
		zap.Float64("magnification", config.Magnification),
		zap.Int("workers", config.Workers))

	manifest, failures, err := pipeline.Run(slides)
	if err != nil {
		logger.Fatal("Extraction failed", zap.Error(err))
	}
	for _, failure := range failures {
		logger.Warn("Slide skipped", zap.String("slide", failure.SlideID), zap.Error(failure.Err))
	}

	split, err := domain.SplitManifest(manifest, config.ValidationSplit)
	if err != nil {
		logger.Fatal("Failed to split dataset", zap.Error(err))
	}
	logger.Info("Dataset split",
		zap.Strings("validation_slides", split.ValidationSlides),
		zap.Int("train_tiles", len(split.Train)),
		zap.Int("validation_tiles", len(split.Validation)))

	manifestWriter := infrastructure.NewManifestWriter(logger)
	manifestPath := filepath.Join(paths.OutputDir, "manifest.yaml")
	if err := manifestWriter.WriteManifest(manifestPath, manifest, split); err != nil {
		logger.Fatal("Failed to write manifest", zap.Error(err))
	}

	// Балансировка классов выполняется только на обучающей части
	if config.AugmentTiles {
		augmenter := app.NewAugmenter(logger, config.Quality)
		added, err := augmenter.BalanceClasses(split.Train)
		if err != nil {
			logger.Fatal("Augmentation failed", zap.Error(err))
		}
		split.Train = append(split.Train, added...)
	}

	if config.Rounds > 0 {
		runTraining(logger, config, split)
	}

	logger.Info("Pipeline completed successfully")
}

func runTraining(logger *zap.Logger, config *domain.Config, split *domain.Split) {
	kwargs := infrastructure.ParseTensorboardKwargs(config.Tensorboard)
	sink := infrastructure.NewLogMetricSink(logger, kwargs)
	trainer := training.NewMeanIntensityModel(logger, positiveLabel(split))
	scheduler := app.NewRoundScheduler(logger, trainer, sink, config, split, evaluation.SlideAUC)

	ctx := context.Background()
	for round := 0; round < config.Rounds; round++ {
		if err := scheduler.RunRound(ctx); err != nil {
			logger.Fatal("Round failed", zap.Int("round", round), zap.Error(err))
		}
	}
}

// positiveLabel treats every label except the lexically first one as the
// positive class.
func positiveLabel(split *domain.Split) string {
	seen := make(map[string]bool)
	var labels []string
	for _, e := range append(split.Train, split.Validation...) {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	sort.Strings(labels)
	if len(labels) < 2 {
		return ""
	}
	return labels[len(labels)-1]
}

// initLogger initializes the logger with the specified level and log file name.
func initLogger(level string, logfileName ...string) *zap.Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	outputPath := []string{"stderr"}
	for _, item := range logfileName {
		if item != "" {
			outputPath = append(outputPath, item)
		}
	}

	config.OutputPaths = outputPath
	config.ErrorOutputPaths = outputPath
	config.EncoderConfig.TimeKey = "t"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	config.DisableCaller = false

	logger, _ := config.Build()
	return logger
}

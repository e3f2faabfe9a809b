package domain

// Config представляет конфигурацию приложения
type Config struct {
	DatasetPathEnvVar  string  `yaml:"dataset_path_env_var"`
	SlideExtension     string  `yaml:"slideextension"`
	TileSize           int     `yaml:"tile_size"`
	Overlap            int     `yaml:"overlap"`
	Magnification      float64 `yaml:"magnification"`
	Background         float64 `yaml:"background"`
	Quality            int     `yaml:"quality"`
	Workers            int     `yaml:"workers"`
	OutputFolder       string  `yaml:"output_folder"`
	LabelsFile         string  `yaml:"labels_file"`
	ValidationSplit    float64 `yaml:"validation_split"`
	FlipMode           string  `yaml:"flipmode"`
	EpochsPerRound     int     `yaml:"epochs_per_round"`
	NumEpochPerAUCCalc int     `yaml:"num_epoch_per_auc_calc"`
	Tensorboard        string  `yaml:"tensorboard"`
	BaseImageEnvVar    string  `yaml:"baseimage"`
	AugmentTiles       bool    `yaml:"augment_tiles"`
	Rounds             int     `yaml:"rounds"`
	LogLevel           string  `yaml:"log_level"`
	LogFile            string  `yaml:"log_file"`
}

// ResolvedPaths holds the absolute paths produced from the configuration at
// startup. Environment variables are resolved exactly once, at the boundary;
// the core components only ever see these concrete paths.
type ResolvedPaths struct {
	DatasetRoot string
	OutputDir   string
	LabelsPath  string
	BaseImage   string
}

func (c *Config) GetFlipMode() FlipMode {
	switch c.FlipMode {

	case "horizontal":
		return FlipHorizontal
	case "vertical":
		return FlipVertical
	case "horizontal_and_vertical":
		return FlipBoth

	default:
		return FlipNone
	}
}

// FlipMode представляет режим аугментации
type FlipMode int

const (
	FlipNone FlipMode = iota
	FlipHorizontal
	FlipVertical
	FlipBoth
)

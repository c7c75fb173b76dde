package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"gp-gam-emulation/internal/domain"
)

// Environment variables that override configured paths.
const (
	EnvTrainingBase = "GPGAM_TRAINING_BASE"
	EnvDesignFile   = "GPGAM_DESIGN_FILE"
	EnvSampleDir    = "GPGAM_SAMPLE_DIR"
	EnvOutputRoot   = "GPGAM_OUTPUT_ROOT"
	EnvLogLevel     = "GPGAM_LOG_LEVEL"
	EnvChunkSize    = "GPGAM_CHUNK_SIZE"
)

type YAMLConfigReader struct {
	logger *zap.Logger
	getenv func(string) string
}

func NewYAMLConfigReader(logger *zap.Logger) *YAMLConfigReader {
	return &YAMLConfigReader{logger: logger, getenv: os.Getenv}
}

// ReadConfig loads path (a missing file yields defaults), applies environment
// overrides and then fills defaults.
func (r *YAMLConfigReader) ReadConfig(path string) (*domain.Config, error) {
	var config domain.Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Info("Config file not found, using defaults", zap.String("path", path))
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, path, err)
		}
	}

	// Применяем переменные окружения
	if err := r.applyEnvironment(&config); err != nil {
		return nil, err
	}

	// Устанавливаем значения по умолчанию
	setDefaults(&config)

	return &config, nil
}

func (r *YAMLConfigReader) applyEnvironment(config *domain.Config) error {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvTrainingBase, &config.Paths.TrainingBase},
		{EnvDesignFile, &config.Paths.DesignFile},
		{EnvSampleDir, &config.Paths.SampleDir},
		{EnvOutputRoot, &config.Paths.OutputRoot},
		{EnvLogLevel, &config.LogLevel},
	}
	for _, o := range overrides {
		if v := r.getenv(o.env); v != "" {
			r.logger.Debug("Environment override", zap.String("env", o.env), zap.String("value", v))
			*o.dst = v
		}
	}

	if v := r.getenv(EnvChunkSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", domain.ErrInvalidArgument, EnvChunkSize, v, err)
		}
		config.Emulation.ChunkSize = size
	}
	return nil
}

func setDefaults(config *domain.Config) {
	if config.Variable == "" {
		config.Variable = "H2SO4"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Decimals == 0 {
		config.Decimals = 8
	}

	if config.Paths.TrainingBase == "" {
		config.Paths.TrainingBase = "examples/tiny_sample_inputs"
	}
	if config.Paths.DesignFile == "" {
		config.Paths.DesignFile = "examples/design/ppe_design.dat"
	}
	if config.Paths.SampleDir == "" {
		config.Paths.SampleDir = "examples/large_sample"
	}
	if config.Paths.OutputRoot == "" {
		config.Paths.OutputRoot = "examples/tiny_sample_outputs"
	}

	if len(config.Sample.Candidates) == 0 {
		config.Sample.Candidates = []string{
			"constrained_multi_million_sample",
			"constrained_multi_million_sample_first_million",
			"constrained_sample",
		}
	}
	if len(config.Sample.Formats) == 0 {
		config.Sample.Formats = []string{".dat", ".dat.zst", ".dat.gz", ".dat.lz4", ".dat.s2"}
	}
	if config.Sample.Substring == "" {
		config.Sample.Substring = "constrained"
	}

	if config.Emulation.ChunkSize == 0 {
		config.Emulation.ChunkSize = 5000
	}
	if config.Emulation.Workers == 0 {
		config.Emulation.Workers = 1
	}
	if config.Emulation.Workers < 0 {
		config.Emulation.Workers = max(1, runtime.NumCPU()-1)
	}
	if config.Emulation.RowCap == 0 {
		config.Emulation.RowCap = 10000
	}
	if config.Emulation.Variant == "" {
		config.Emulation.Variant = domain.VariantOptimised
	}

	if config.GP.Method == "" {
		config.GP.Method = "nelder-mead"
	}
	if config.GP.MaxIterations == 0 {
		config.GP.MaxIterations = 200
	}
	if config.GP.Nugget == 0 {
		config.GP.Nugget = 1e-8
	}

	if config.GAM.RowCap == 0 {
		config.GAM.RowCap = 10000
	}
	if config.GAM.Segments == 0 {
		config.GAM.Segments = 8
	}
	if len(config.GAM.Lambdas) == 0 {
		config.GAM.Lambdas = []float64{1e-3, 1e-2, 1e-1, 1, 10, 100, 1000}
	}
	if config.GAM.Method == "" {
		config.GAM.Method = domain.GAMMethodTerms
	}
	if config.GAM.ChunkSize == 0 {
		config.GAM.ChunkSize = 10000
	}

	// drop_columns: [] оставляет все столбцы, по умолчанию только без ключа
	if config.Schema.GP.Drop == nil {
		config.Schema.GP.Drop = domain.DefaultGPSchema().Drop
	}
	if config.Schema.GAM.Drop == nil {
		config.Schema.GAM.Drop = domain.DefaultGAMSchema().Drop
	}

	if config.Comparison.TasksFile == "" {
		config.Comparison.TasksFile = "examples/tasks_table.csv"
	}
}

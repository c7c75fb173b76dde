package infrastructure

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gp-gam-emulation/internal/domain"
)

// NewLogger builds a JSON production logger writing to stdout and, when set,
// to logFile.
func NewLogger(level, logFile string) (*zap.Logger, error) {
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

	outputPath := []string{"stdout"}
	if logFile != "" {
		outputPath = append(outputPath, logFile)
	}

	config.OutputPaths = outputPath
	config.ErrorOutputPaths = outputPath
	config.EncoderConfig.TimeKey = "t"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	config.DisableCaller = false

	return config.Build()
}

// Bootstrap reads the configuration and returns a logger configured from it,
// tagged with a fresh run_id and the command name.
func Bootstrap(command, configPath string) (*domain.Config, *zap.Logger, error) {
	// Инициализация логгера
	logger, err := NewLogger("info", "")
	if err != nil {
		return nil, nil, err
	}

	// Чтение конфигурации
	config, err := NewYAMLConfigReader(logger).ReadConfig(configPath)
	if err != nil {
		return nil, logger, err
	}

	// Обновляем уровень логирования
	logger, err = NewLogger(config.LogLevel, config.LogFile)
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("cmd", command),
		zap.String("variable", config.Variable))
	return config, logger, nil
}

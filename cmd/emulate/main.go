package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"gp-gam-emulation/internal/app"
	"gp-gam-emulation/internal/domain"
	"gp-gam-emulation/internal/infrastructure"
	"gp-gam-emulation/pkg/gp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	variant := flag.String("variant", "", "baseline or optimised (default from config)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <lat> <lon> <month>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	config, logger, err := infrastructure.Bootstrap("emulate", *configPath)
	if err != nil {
		if logger != nil {
			logger.Fatal("Failed to read config", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	key, err := parseTask(flag.Args())
	if err != nil {
		flag.Usage()
		logger.Fatal("Invalid arguments", zap.Error(err))
	}
	if *variant == "" {
		*variant = config.Emulation.Variant
	}

	// Инициализация компонентов
	reader := infrastructure.NewTXTFileReader(logger)
	emulator := app.NewEmulator(logger, config,
		infrastructure.NewPaths(logger, config.Paths, config.Variable),
		reader,
		reader,
		infrastructure.NewSampleLocator(logger, reader, config.Sample),
		infrastructure.NewTXTFileWriter(logger),
		gp.NewFitter(logger, config.GP))

	out, err := emulator.Run(key, *variant)
	if err != nil {
		logger.Fatal("Emulation failed", zap.String("task", key.String()), zap.Error(err))
	}
	for kind, path := range out.Files {
		logger.Info("Output written", zap.String("kind", kind), zap.String("path", path))
	}
}

func parseTask(args []string) (domain.TaskKey, error) {
	if len(args) != 3 {
		return domain.TaskKey{}, fmt.Errorf("%w: expected <lat> <lon> <month>, got %d arguments", domain.ErrInvalidArgument, len(args))
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return domain.TaskKey{}, fmt.Errorf("%w: lat %q", domain.ErrInvalidArgument, args[0])
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return domain.TaskKey{}, fmt.Errorf("%w: lon %q", domain.ErrInvalidArgument, args[1])
	}
	return domain.TaskKey{Lat: lat, Lon: lon, Month: args[2]}, nil
}

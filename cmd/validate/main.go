package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"gp-gam-emulation/internal/infrastructure"
)

// validate writes a manifest (size, xxhash64, mtime) of the training files of
// one month so inputs can be audited before a run, and reports how many GP
// and GAM outputs are already on disk.
func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	month := flag.String("month", "", "Month tag whose training directory is checked")
	flag.Parse()

	config, logger, err := infrastructure.Bootstrap("validate", *configPath)
	if err != nil {
		if logger != nil {
			logger.Fatal("Failed to read config", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *month == "" {
		flag.Usage()
		logger.Fatal("-month is required")
	}

	paths := infrastructure.NewPaths(logger, config.Paths, config.Variable)
	dir := paths.TrainingDir(*month)
	entries, err := infrastructure.BuildManifest(logger, dir)
	if err != nil {
		logger.Fatal("Failed to build manifest", zap.String("dir", dir), zap.Error(err))
	}
	if len(entries) == 0 {
		logger.Warn("No training files found", zap.String("dir", dir))
	}

	path, err := infrastructure.WriteManifest(dir, entries)
	if err != nil {
		logger.Fatal("Failed to write manifest", zap.String("dir", dir), zap.Error(err))
	}
	logger.Info("Manifest written", zap.String("path", path), zap.Int("files", len(entries)))

	gp, gam, err := paths.OutputCounts()
	if err != nil {
		logger.Fatal("Failed to count outputs", zap.Error(err))
	}
	logger.Info("Outputs present", zap.Int("gp_files", gp), zap.Int("gam_files", gam))
}

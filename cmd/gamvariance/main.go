package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"gp-gam-emulation/internal/app"
	"gp-gam-emulation/internal/domain"
	"gp-gam-emulation/internal/infrastructure"
	"gp-gam-emulation/pkg/gam"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	lat := flag.Float64("ilat", math.NaN(), "Latitude of the grid point")
	lon := flag.Float64("ilon", math.NaN(), "Longitude of the grid point")
	month := flag.String("month", "", "Month tag, e.g. jul")
	samples := flag.String("samples", "", "Explicit large-sample file (skips auto-detection)")
	variant := flag.String("variant", domain.VariantOptimised, "baseline or optimised")
	flag.Parse()

	config, logger, err := infrastructure.Bootstrap("gamvariance", *configPath)
	if err != nil {
		if logger != nil {
			logger.Fatal("Failed to read config", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if math.IsNaN(*lat) || math.IsNaN(*lon) || *month == "" {
		flag.Usage()
		logger.Fatal("Invalid arguments", zap.Error(fmt.Errorf("%w: -ilat, -ilon and -month are required", domain.ErrInvalidArgument)))
	}
	key := domain.TaskKey{Lat: *lat, Lon: *lon, Month: *month}

	reader := infrastructure.NewTXTFileReader(logger)
	analyzer := app.NewVarianceAnalyzer(logger, config,
		infrastructure.NewPaths(logger, config.Paths, config.Variable),
		reader,
		infrastructure.NewSampleLocator(logger, reader, config.Sample),
		infrastructure.NewTXTFileWriter(logger),
		gam.NewFitter(logger, config.GAM))

	out, err := analyzer.Run(key, *variant, *samples)
	if err != nil {
		logger.Fatal("GAM variance decomposition failed", zap.String("task", key.String()), zap.Error(err))
	}
	logger.Info("Outputs written",
		zap.String("variances", out.VariancePath),
		zap.String("gradient_signs", out.GradientPath),
		zap.Int("rows_used", out.RowsUsed))
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gosuri/uiprogress"
	"go.uber.org/zap"

	"gp-gam-emulation/internal/app"
	"gp-gam-emulation/internal/domain"
	"gp-gam-emulation/internal/infrastructure"
	"gp-gam-emulation/pkg/gam"
	"gp-gam-emulation/pkg/gp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	stage := flag.String("stage", "gp", "Stage to compare: gp or gam")
	tasksPath := flag.String("tasks", "", "Tasks table (lat,lon,month CSV); default from config")
	progress := flag.Bool("progress", false, "Show a progress bar")
	flag.Parse()

	config, logger, err := infrastructure.Bootstrap("compare", *configPath)
	if err != nil {
		if logger != nil {
			logger.Fatal("Failed to read config", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *tasksPath == "" {
		*tasksPath = config.Comparison.TasksFile
	}
	tasks, err := infrastructure.ReadTasks(*tasksPath)
	if err != nil {
		logger.Fatal("Failed to read tasks", zap.String("path", *tasksPath), zap.Error(err))
	}

	reader := infrastructure.NewTXTFileReader(logger)
	paths := infrastructure.NewPaths(logger, config.Paths, config.Variable)
	locator := infrastructure.NewSampleLocator(logger, reader, config.Sample)
	writer := infrastructure.NewTXTFileWriter(logger)

	var run app.StageRunner
	switch *stage {
	case "gp":
		emulator := app.NewEmulator(logger, config, paths, reader, reader, locator, writer, gp.NewFitter(logger, config.GP))
		run = func(key domain.TaskKey, variant string) error {
			_, err := emulator.Run(key, variant)
			return err
		}
	case "gam":
		analyzer := app.NewVarianceAnalyzer(logger, config, paths, reader, locator, writer, gam.NewFitter(logger, config.GAM))
		run = func(key domain.TaskKey, variant string) error {
			_, err := analyzer.Run(key, variant, "")
			return err
		}
	default:
		logger.Fatal("Unknown stage", zap.String("stage", *stage))
	}

	comparer := app.NewComparer(logger, paths, infrastructure.CSVTimingWriter{})
	if *progress {
		uiprogress.Start()
		bar := uiprogress.AddBar(len(tasks)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%s %d/%d", *stage, b.Current(), len(tasks))
		})
		comparer.OnTaskDone = func(done, total int) { bar.Incr() }
		defer uiprogress.Stop()
	}

	report, err := comparer.Run(*stage, tasks, run)
	if err != nil {
		logger.Fatal("Comparison failed", zap.Error(err))
	}

	failed := 0
	for _, row := range report.Rows {
		if !row.OK {
			failed++
		}
	}
	logger.Info("Comparison completed",
		zap.String("stage", *stage),
		zap.Int("tasks", len(report.Rows)),
		zap.Int("failed", failed),
		zap.Float64("speedup_x", report.Total.Speedup),
		zap.String("table", report.Path))
}

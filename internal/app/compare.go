package app

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"gp-gam-emulation/internal/domain"
)

// StageRunner executes one task of a stage in the given variant.
type StageRunner func(key domain.TaskKey, variant string) error

// ComparisonReport is the outcome of a timing comparison.
type ComparisonReport struct {
	Records     []domain.TimingRecord
	Rows        []domain.TimingComparison
	Total       domain.TimingComparison
	Path        string
	RecordsPath string
}

// Comparer times the baseline and optimised variants of a stage task by task.
type Comparer struct {
	logger *zap.Logger
	paths  domain.PathResolver
	writer domain.TimingTableWriter

	// OnTaskDone, if set, is called after both variants of a task ran.
	OnTaskDone func(done, total int)
}

func NewComparer(logger *zap.Logger, paths domain.PathResolver, writer domain.TimingTableWriter) *Comparer {
	return &Comparer{logger: logger, paths: paths, writer: writer}
}

// Run executes run for every task, baseline first, and writes the timing
// table of stage. Task failures are recorded and do not stop the loop.
func (c *Comparer) Run(stage string, tasks []domain.TaskKey, run StageRunner) (*ComparisonReport, error) {
	if run == nil {
		return nil, fmt.Errorf("%w: nil stage runner", domain.ErrInvalidArgument)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks to compare", domain.ErrInsufficientData)
	}

	report := &ComparisonReport{Path: c.paths.ComparisonFile(stage)}
	report.RecordsPath = filepath.Join(filepath.Dir(report.Path), stage+"_benchmark_per_task.csv")
	total := domain.TimingComparison{OK: true}

	for i, key := range tasks {
		base := c.measure(key, domain.VariantBaseline, run)
		opt := c.measure(key, domain.VariantOptimised, run)
		report.Records = append(report.Records, base, opt)

		row := domain.TimingComparison{
			Task:      key,
			Baseline:  base.Seconds,
			Optimised: opt.Seconds,
			OK:        base.OK && opt.OK,
		}
		if row.OK {
			row.Speedup = speedup(row.Baseline, row.Optimised)
			total.Baseline += row.Baseline
			total.Optimised += row.Optimised
		}
		report.Rows = append(report.Rows, row)

		c.logger.Info("Task compared",
			zap.String("stage", stage),
			zap.String("task", key.String()),
			zap.Float64("baseline_s", row.Baseline),
			zap.Float64("optimised_s", row.Optimised),
			zap.Float64("speedup_x", row.Speedup),
			zap.Bool("ok", row.OK))

		if c.OnTaskDone != nil {
			c.OnTaskDone(i+1, len(tasks))
		}
	}

	total.Speedup = speedup(total.Baseline, total.Optimised)
	report.Total = total

	if err := c.writer.WriteTimingTable(report.Path, report.Rows, total); err != nil {
		return nil, fmt.Errorf("write timing table %s: %w", report.Path, err)
	}
	if err := c.writer.WriteTimingRecords(report.RecordsPath, report.Records); err != nil {
		return nil, fmt.Errorf("write timing records %s: %w", report.RecordsPath, err)
	}
	c.logger.Info("Timing comparison written",
		zap.String("path", report.Path),
		zap.String("records", report.RecordsPath),
		zap.Float64("baseline_s", total.Baseline),
		zap.Float64("optimised_s", total.Optimised),
		zap.Float64("speedup_x", total.Speedup))
	return report, nil
}

func (c *Comparer) measure(key domain.TaskKey, variant string, run StageRunner) domain.TimingRecord {
	start := time.Now()
	err := run(key, variant)
	rec := domain.TimingRecord{
		Task:    key,
		Variant: variant,
		Seconds: time.Since(start).Seconds(),
		OK:      err == nil,
	}
	if err != nil {
		rec.Err = err.Error()
		c.logger.Error("Task failed",
			zap.String("task", key.String()),
			zap.String("variant", variant),
			zap.Error(err))
	}
	return rec
}

func speedup(baseline, optimised float64) float64 {
	if optimised <= 0 {
		return 0
	}
	return baseline / optimised
}

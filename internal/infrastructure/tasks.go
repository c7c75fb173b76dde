package infrastructure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gp-gam-emulation/internal/domain"
)

// ReadTasks reads a tasks table with lat, lon and month columns (any order,
// header required).
func ReadTasks(path string) ([]domain.TaskKey, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: missing header: %v", domain.ErrInvalidFileFormat, path, err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"lat", "lon", "month"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: %s: column %q missing", domain.ErrInvalidFileFormat, path, name)
		}
	}

	var tasks []domain.TaskKey
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrInvalidFileFormat, path, line, err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[col["lat"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: lat: %v", domain.ErrInvalidFileFormat, path, line, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[col["lon"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: lon: %v", domain.ErrInvalidFileFormat, path, line, err)
		}
		tasks = append(tasks, domain.TaskKey{Lat: lat, Lon: lon, Month: strings.TrimSpace(record[col["month"]])})
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: %s has no tasks", domain.ErrInsufficientData, path)
	}
	return tasks, nil
}

// CSVTimingWriter writes timing comparisons as CSV.
type CSVTimingWriter struct{}

// WriteTimingTable writes the baseline/optimised comparison CSV, creating
// parent directories.
func (CSVTimingWriter) WriteTimingTable(path string, rows []domain.TimingComparison, total domain.TimingComparison) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	records := [][]string{{"lat", "lon", "month", "baseline_s", "optimised_s", "speedup_x", "ok"}}
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatFloat(r.Task.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Task.Lon, 'f', -1, 64),
			r.Task.Month,
			fmt.Sprintf("%.2f", r.Baseline),
			fmt.Sprintf("%.2f", r.Optimised),
			fmt.Sprintf("%.2f", r.Speedup),
			strconv.FormatBool(r.OK),
		})
	}
	records = append(records, []string{},
		[]string{"TOTAL", "", "", fmt.Sprintf("%.2f", total.Baseline), fmt.Sprintf("%.2f", total.Optimised), fmt.Sprintf("%.2f", total.Speedup), ""})

	if err := w.WriteAll(records); err != nil {
		return err
	}
	return file.Sync()
}

// WriteTimingRecords writes one CSV row per task and variant.
func (CSVTimingWriter) WriteTimingRecords(path string, records []domain.TimingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	lines := [][]string{{"mode", "lat", "lon", "month", "ok", "seconds", "error"}}
	for _, r := range records {
		lines = append(lines, []string{
			r.Variant,
			strconv.FormatFloat(r.Task.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Task.Lon, 'f', -1, 64),
			r.Task.Month,
			strconv.FormatBool(r.OK),
			fmt.Sprintf("%.3f", r.Seconds),
			r.Err,
		})
	}
	if err := w.WriteAll(lines); err != nil {
		return err
	}
	return file.Sync()
}

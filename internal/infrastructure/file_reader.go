package infrastructure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

const maxLineBytes = 1 << 20

type TXTFileReader struct {
	logger *zap.Logger
}

func NewTXTFileReader(logger *zap.Logger) *TXTFileReader {
	return &TXTFileReader{logger: logger}
}

// openDecoded opens path and transparently decompresses it by extension.
func openDecoded(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidFileFormat, path, err)
		}
		return &stackedCloser{Reader: gz, closers: []io.Closer{gz, file}}, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(file, zstd.WithDecoderConcurrency(1))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidFileFormat, path, err)
		}
		return &stackedCloser{Reader: dec, closers: []io.Closer{closerFunc(dec.Close), file}}, nil
	case strings.HasSuffix(path, ".lz4"):
		return &stackedCloser{Reader: lz4.NewReader(file), closers: []io.Closer{file}}, nil
	case strings.HasSuffix(path, ".s2"):
		return &stackedCloser{Reader: s2.NewReader(file), closers: []io.Closer{file}}, nil
	default:
		return file, nil
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// errStopScan ends scanRows early without an error.
var errStopScan = errors.New("stop scan")

// scanRows calls fn with the whitespace separated fields of every non-empty
// line until fn returns errStopScan.
func scanRows(path string, fn func(line int, fields []string) error) error {
	rc, err := openDecoded(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := fn(line, fields); err != nil {
			if errors.Is(err, errStopScan) {
				return nil
			}
			return err
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidFileFormat, path, err)
	}
	return nil
}

// ReadVector reads one value per line; for multi-column files the first
// column is used.
func (r *TXTFileReader) ReadVector(path string) ([]float64, error) {
	var values []float64
	err := scanRows(path, func(line int, fields []string) error {
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %v", domain.ErrInvalidFileFormat, path, line+1, err)
		}
		values = append(values, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Vector read", zap.String("path", path), zap.Int("len", len(values)))
	return values, nil
}

// ReadDesign reads a 55-column design table, skipping a leading header line,
// and applies the schema's column and row drops.
func (r *TXTFileReader) ReadDesign(path string, schema domain.ColumnSchema) (*mat.Dense, error) {
	keep := schema.Keep(domain.RawParameterCount)
	var data []float64
	rows, raw := 0, 0

	err := scanRows(path, func(line int, fields []string) error {
		if line == 0 {
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				r.logger.Debug("Skipping design header", zap.String("path", path))
				return nil
			}
		}
		defer func() { raw++ }()

		if len(fields) < domain.RawParameterCount {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d",
				domain.ErrInvalidShape, path, raw+1, len(fields), domain.RawParameterCount)
		}
		if !schema.KeepRow(raw) {
			return nil
		}
		row, err := parseSelected(fields, keep)
		if err != nil {
			return fmt.Errorf("%w: %s row %d: %v", domain.ErrInvalidFileFormat, path, raw+1, err)
		}
		data = append(data, row...)
		rows++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: %s has no design rows", domain.ErrInvalidShape, path)
	}

	r.logger.Info("Design matrix read",
		zap.String("path", path),
		zap.Int("rows", rows),
		zap.Int("cols", len(keep)))
	return mat.NewDense(rows, len(keep), data), nil
}

// LoadSampleFile reads the first limit rows (all rows if limit <= 0) of a raw
// large-sample table (at least 55 columns) and keeps the schema's columns.
// Lines past the limit are never parsed.
func (r *TXTFileReader) LoadSampleFile(path string, schema domain.ColumnSchema, limit int) (*domain.Sample, error) {
	keep := schema.Keep(domain.RawParameterCount)
	var data []float64
	rows := 0

	err := scanRows(path, func(line int, fields []string) error {
		if limit > 0 && rows >= limit {
			return errStopScan
		}
		if len(fields) < domain.RawParameterCount {
			return fmt.Errorf("%w: %s row %d has %d columns, want at least %d",
				domain.ErrInvalidShape, path, line+1, len(fields), domain.RawParameterCount)
		}
		row, err := parseSelected(fields, keep)
		if err != nil {
			return fmt.Errorf("%w: %s row %d: %v", domain.ErrInvalidFileFormat, path, line+1, err)
		}
		data = append(data, row...)
		rows++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidShape, path)
	}

	r.logger.Info("Large sample read",
		zap.String("path", path),
		zap.Int("rows", rows),
		zap.Int("limit", limit),
		zap.Int("cols", len(keep)))

	return &domain.Sample{
		Matrix:    mat.NewDense(rows, len(keep), data),
		Source:    path,
		Available: rows,
	}, nil
}

func parseSelected(fields []string, keep []int) ([]float64, error) {
	row := make([]float64, len(keep))
	for i, c := range keep {
		v, err := strconv.ParseFloat(fields[c], 64)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

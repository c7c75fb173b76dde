package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"gp-gam-emulation/internal/domain"
)

// errFallThrough tells the locator to try the next strategy.
var errFallThrough = errors.New("no match")

// lookupStrategy either yields a unique sample path or returns errFallThrough.
type lookupStrategy struct {
	name   string
	lookup func(dir string, files []string) (string, error)
}

// SampleLocator finds the large-sample file in a directory by trying a fixed
// ordered list of strategies.
type SampleLocator struct {
	logger     *zap.Logger
	reader     *TXTFileReader
	conf       domain.SampleConfig
	strategies []lookupStrategy
}

func NewSampleLocator(logger *zap.Logger, reader *TXTFileReader, conf domain.SampleConfig) *SampleLocator {
	l := &SampleLocator{logger: logger, reader: reader, conf: conf}
	l.strategies = []lookupStrategy{
		{name: "preferred", lookup: l.preferred},
		{name: "substring", lookup: l.substring},
		{name: "only", lookup: l.only},
	}
	return l
}

// Locate returns the path of the sample file selected in dir.
func (l *SampleLocator) Locate(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: directory %s does not exist", domain.ErrSampleNotFound, dir)
	}
	if err != nil {
		return "", err
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && l.isSampleFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, s := range l.strategies {
		path, err := s.lookup(dir, files)
		if errors.Is(err, errFallThrough) {
			continue
		}
		if err != nil {
			return "", err
		}
		l.logger.Info("Large sample located", zap.String("strategy", s.name), zap.String("path", path))
		return path, nil
	}
	return "", fmt.Errorf("%w: no sample file in %s (candidates %v)", domain.ErrSampleNotFound, dir, l.conf.Candidates)
}

// LoadSample locates and reads the sample of dir.
func (l *SampleLocator) LoadSample(dir string, schema domain.ColumnSchema, limit int) (*domain.Sample, error) {
	path, err := l.Locate(dir)
	if err != nil {
		return nil, err
	}
	return l.reader.LoadSampleFile(path, schema, limit)
}

// LoadSampleFile reads an explicitly named sample file.
func (l *SampleLocator) LoadSampleFile(path string, schema domain.ColumnSchema, limit int) (*domain.Sample, error) {
	return l.reader.LoadSampleFile(path, schema, limit)
}

func (l *SampleLocator) isSampleFile(name string) bool {
	for _, ext := range l.conf.Formats {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (l *SampleLocator) preferred(dir string, files []string) (string, error) {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for _, name := range l.conf.Candidates {
		for _, ext := range l.conf.Formats {
			if present[name+ext] {
				return filepath.Join(dir, name+ext), nil
			}
		}
	}
	return "", errFallThrough
}

// substring is ambiguous when several files match; that is an error rather
// than an arbitrary pick.
func (l *SampleLocator) substring(dir string, files []string) (string, error) {
	if l.conf.Substring == "" {
		return "", errFallThrough
	}
	var matches []string
	for _, f := range files {
		if strings.Contains(f, l.conf.Substring) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return "", errFallThrough
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		return "", fmt.Errorf("%w: ambiguous samples in %s matching %q: %v",
			domain.ErrSampleNotFound, dir, l.conf.Substring, matches)
	}
}

func (l *SampleLocator) only(dir string, files []string) (string, error) {
	if len(files) == 1 {
		return filepath.Join(dir, files[0]), nil
	}
	return "", errFallThrough
}

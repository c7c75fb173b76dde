package app

import (
	"fmt"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

// memStore is an in-memory stand-in for the readers, the sample loader and
// the writer.
type memStore struct {
	mu      sync.Mutex
	vectors map[string][]float64
	design  *mat.Dense
	sample  *domain.Sample
	samples map[string]*domain.Sample
	written map[string][]string
	limits  []int
}

func newMemStore() *memStore {
	return &memStore{
		vectors: map[string][]float64{},
		samples: map[string]*domain.Sample{},
		written: map[string][]string{},
	}
}

func (s *memStore) ReadVector(path string) ([]float64, error) {
	v, ok := s.vectors[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	return append([]float64(nil), v...), nil
}

func (s *memStore) ReadDesign(path string, schema domain.ColumnSchema) (*mat.Dense, error) {
	if s.design == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	return s.design, nil
}

func (s *memStore) LoadSample(dir string, schema domain.ColumnSchema, limit int) (*domain.Sample, error) {
	if s.sample == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSampleNotFound, dir)
	}
	return s.head(s.sample, limit), nil
}

func (s *memStore) LoadSampleFile(path string, schema domain.ColumnSchema, limit int) (*domain.Sample, error) {
	sample, ok := s.samples[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	return s.head(sample, limit), nil
}

// head keeps the first limit rows, like a loader that stops reading early.
func (s *memStore) head(sample *domain.Sample, limit int) *domain.Sample {
	s.limits = append(s.limits, limit)
	if limit <= 0 || limit >= sample.Available {
		return sample
	}
	_, cols := sample.Matrix.Dims()
	m := mat.DenseCopyOf(sample.Matrix.Slice(0, limit, 0, cols))
	return &domain.Sample{Matrix: m, Source: sample.Source, Available: limit}
}

func (s *memStore) WriteVectorFormatted(path string, values []float64, format func(float64) string) error {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = format(v)
	}
	s.mu.Lock()
	s.written[path] = lines
	s.mu.Unlock()
	return nil
}

func newSample(m *mat.Dense, source string) *domain.Sample {
	r, _ := m.Dims()
	return &domain.Sample{Matrix: m, Source: source, Available: r}
}

// memPaths resolves everything under root with fixed names.
type memPaths struct {
	root   string
	gpMean string
}

func (p memPaths) TrainingFile(key domain.TaskKey) string {
	return filepath.Join(p.root, "train", key.Month+".dat")
}

func (p memPaths) GPOutputDir(variant string, key domain.TaskKey) string {
	return filepath.Join(p.root, "gp", variant)
}

func (p memPaths) GAMOutputDir(variant string, key domain.TaskKey) string {
	return filepath.Join(p.root, "gam", variant)
}

func (p memPaths) FindGPMeanFile(key domain.TaskKey) (string, error) {
	if p.gpMean == "" {
		return "", fmt.Errorf("%w: gp mean", domain.ErrFileNotFound)
	}
	return p.gpMean, nil
}

func (p memPaths) GPOutputName(kind string, key domain.TaskKey, n int) string {
	return fmt.Sprintf("%s_%d.dat", kind, n)
}

func (p memPaths) GAMVarianceName(key domain.TaskKey, n int) string {
	return fmt.Sprintf("var_%d.dat", n)
}

func (p memPaths) GAMGradientName(key domain.TaskKey, n int) string {
	return fmt.Sprintf("grad_%d.dat", n)
}

func (p memPaths) ComparisonFile(stage string) string {
	return filepath.Join(p.root, stage, "timing.csv")
}

// linearModel is f(x) = c + Σ a_j x_j with terms a_j (x_j - mean_j).
type linearModel struct {
	c     float64
	a     []float64
	means []float64
}

func (m *linearModel) Predict(x mat.Matrix) ([]float64, error) {
	r, c := x.Dims()
	if c != len(m.a) {
		return nil, fmt.Errorf("%w: %d columns", domain.ErrInvalidShape, c)
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.c
		for j := 0; j < c; j++ {
			out[i] += m.a[j] * x.At(i, j)
		}
	}
	return out, nil
}

func (m *linearModel) Terms(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != len(m.a) {
		return nil, fmt.Errorf("%w: %d columns", domain.ErrInvalidShape, c)
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.a[j]*(x.At(i, j)-m.means[j]))
		}
	}
	return out, nil
}

type linearFitter struct {
	model      *linearModel
	rows, cols int
}

func (f *linearFitter) Fit(x mat.Matrix, y []float64) (domain.AdditiveModel, error) {
	f.rows, f.cols = x.Dims()
	return f.model, nil
}

package gp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gp-gam-emulation/internal/domain"
)

// z95 is the two-sided 95% normal quantile.
const z95 = 1.959963984540054

// Model is a fitted Gaussian Process. It is read-only after Fit and safe for
// concurrent Predict calls.
type Model struct {
	x       *mat.Dense
	colMean []float64
	colStd  []float64
	yMean   float64
	yStd    float64
	hyper   Hyper
	chol    mat.Cholesky
	alpha   *mat.VecDense
}

var _ domain.SurrogateModel = (*Model)(nil)

// Hyper returns the fitted kernel hyper-parameters.
func (m *Model) Hyper() Hyper {
	return m.hyper
}

func (m *Model) standardize(x mat.Matrix, y []float64) {
	n, d := x.Dims()
	m.colMean = make([]float64, d)
	m.colStd = make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.colMean[j], m.colStd[j] = mean, std
	}
	m.x = m.scale(x)

	mean, std := stat.MeanStdDev(y, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	m.yMean, m.yStd = mean, std
}

func (m *Model) scale(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	z := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := z.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = (x.At(i, j) - m.colMean[j]) / m.colStd[j]
		}
	}
	return z
}

// Predict evaluates the posterior at the rows of x. The variance solve is
// skipped entirely for mean-only requests.
func (m *Model) Predict(x mat.Matrix, req domain.PredictionRequest) (*domain.PredictionResult, error) {
	if x == nil {
		return nil, fmt.Errorf("nil input")
	}
	rows, cols := x.Dims()
	if cols != len(m.colMean) {
		return nil, fmt.Errorf("%w: input has %d columns, model trained on %d", domain.ErrInvalidShape, cols, len(m.colMean))
	}

	z := m.scale(x)
	ks := crossCovariance(m.x, z, m.hyper)

	var mu mat.VecDense
	mu.MulVec(ks.T(), m.alpha)

	mean := make([]float64, rows)
	for j := 0; j < rows; j++ {
		mean[j] = m.yMean + m.yStd*mu.AtVec(j)
	}

	out := &domain.PredictionResult{}
	if req.Mean {
		out.Mean = mean
	}
	if req.MeanOnly() {
		return out, nil
	}

	var w mat.Dense
	if err := m.chol.SolveTo(&w, ks); err != nil {
		return nil, fmt.Errorf("posterior variance solve: %w", err)
	}

	n, _ := m.x.Dims()
	sd := make([]float64, rows)
	for j := 0; j < rows; j++ {
		v := m.hyper.SignalVar
		for i := 0; i < n; i++ {
			v -= ks.At(i, j) * w.At(i, j)
		}
		if v < 0 {
			v = 0
		}
		sd[j] = m.yStd * math.Sqrt(v)
	}

	if req.SD {
		out.SD = sd
	}
	if req.CI95 {
		out.Lower95 = make([]float64, rows)
		out.Upper95 = make([]float64, rows)
		for j := 0; j < rows; j++ {
			out.Lower95[j] = mean[j] - z95*sd[j]
			out.Upper95[j] = mean[j] + z95*sd[j]
		}
	}
	return out, nil
}

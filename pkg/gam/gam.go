package gam

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

const (
	defaultBlockRows = 10000
	defaultSegments  = 8
)

// DefaultLambdas is the GCV search grid used when none is configured.
var DefaultLambdas = []float64{1e-3, 1e-2, 1e-1, 1, 10, 100, 1000}

// Fitter fits penalised B-spline additive models, one smooth per column.
type Fitter struct {
	logger *zap.Logger
	conf   domain.GAMConfig
}

func NewFitter(logger *zap.Logger, conf domain.GAMConfig) *Fitter {
	return &Fitter{logger: logger, conf: conf}
}

// Model is a fitted additive model: intercept + Σ_j s_j(x_j), with every
// s_j centred to zero mean over the training rows.
type Model struct {
	features  []feature
	beta      []float64
	centers   []float64
	intercept float64
	lambda    float64
	gcv       float64
	edf       float64
}

var _ domain.AdditiveModel = (*Model)(nil)

// Lambda returns the smoothing parameter picked by GCV.
func (m *Model) Lambda() float64 { return m.lambda }

// EDF returns the effective degrees of freedom of the chosen fit.
func (m *Model) EDF() float64 { return m.edf }

func (f *Fitter) Fit(x mat.Matrix, y []float64) (domain.AdditiveModel, error) {
	return f.FitModel(x, y)
}

// normalEquations accumulates BᵀB, Bᵀy and yᵀy block by block.
type normalEquations struct {
	gram *mat.SymDense
	rhs  *mat.VecDense
	yy   float64
}

func (f *Fitter) FitModel(x mat.Matrix, y []float64) (*Model, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil design matrix", domain.ErrFit)
	}
	n, p := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("%w: %d rows vs %d responses", domain.ErrFit, n, len(y))
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", domain.ErrFit, n)
	}

	m := &Model{features: make([]feature, p), centers: make([]float64, p)}
	segments := f.conf.Segments
	if segments <= 0 {
		segments = defaultSegments
	}
	k := 0
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, x)
		m.features[j] = newFeature(floats.Min(col), floats.Max(col), segments, k)
		k += m.features[j].size()
	}

	ybar := floats.Sum(y) / float64(n)
	if k == 0 {
		m.intercept = ybar
		return m, nil
	}

	ne := f.accumulate(m, x, y, ybar, k)
	penalty := m.penalty(k)

	if err := f.selectLambda(m, ne, penalty, n, k); err != nil {
		return nil, err
	}

	// centre every smooth over the training rows
	for i := 0; i < n; i++ {
		for j := range m.features {
			m.centers[j] += m.rawTerm(j, x.At(i, j))
		}
	}
	m.intercept = ybar
	for j := range m.centers {
		m.centers[j] /= float64(n)
		m.intercept += m.centers[j]
	}

	f.logger.Info("Additive model fitted",
		zap.Int("rows", n),
		zap.Int("features", p),
		zap.Int("coefficients", k),
		zap.Float64("lambda", m.lambda),
		zap.Float64("edf", m.edf),
		zap.Float64("gcv", m.gcv))

	return m, nil
}

func (f *Fitter) accumulate(m *Model, x mat.Matrix, y []float64, ybar float64, k int) *normalEquations {
	n, _ := x.Dims()
	block := f.conf.ChunkSize
	if block <= 0 {
		block = defaultBlockRows
	}

	ne := &normalEquations{
		gram: mat.NewSymDense(k, nil),
		rhs:  mat.NewVecDense(k, nil),
	}
	var tmp mat.VecDense
	for start := 0; start < n; start += block {
		end := min(start+block, n)
		rows := end - start

		b := mat.NewDense(rows, k, nil)
		yc := mat.NewVecDense(rows, nil)
		for i := 0; i < rows; i++ {
			row := b.RawRowView(i)
			for j, ft := range m.features {
				if ft.size() == 0 {
					continue
				}
				s, w := ft.eval(x.At(start+i, j))
				for a := 0; a < 4; a++ {
					row[ft.offset+s+a] = w[a]
				}
			}
			v := y[start+i] - ybar
			yc.SetVec(i, v)
			ne.yy += v * v
		}

		ne.gram.SymRankK(ne.gram, 1, b.T())
		tmp.MulVec(b.T(), yc)
		ne.rhs.AddVec(ne.rhs, &tmp)

		f.logger.Debug("Accumulated block", zap.Int("start", start), zap.Int("end", end))
	}
	return ne
}

// penalty returns the block diagonal second-difference penalty.
func (m *Model) penalty(k int) *mat.SymDense {
	s := mat.NewSymDense(k, nil)
	for _, ft := range m.features {
		q := ft.size()
		if q == 0 {
			continue
		}
		d := secondDifference(q)
		for a := 0; a < q; a++ {
			for b := a; b < q; b++ {
				s.SetSym(ft.offset+a, ft.offset+b, d[a][b])
			}
		}
	}
	return s
}

func (f *Fitter) selectLambda(m *Model, ne *normalEquations, penalty *mat.SymDense, n, k int) error {
	ridge := 1e-8 * (mat.Trace(ne.gram)/float64(k) + 1)
	best := math.Inf(1)

	lambdas := f.conf.Lambdas
	if len(lambdas) == 0 {
		lambdas = DefaultLambdas
	}
	for _, lambda := range lambdas {
		a := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			a.SetSym(i, i, ne.gram.At(i, i)+lambda*penalty.At(i, i)+ridge)
			for j := i + 1; j < k; j++ {
				a.SetSym(i, j, ne.gram.At(i, j)+lambda*penalty.At(i, j))
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			f.logger.Debug("Penalised system not positive definite", zap.Float64("lambda", lambda))
			continue
		}

		var beta mat.VecDense
		if err := chol.SolveVecTo(&beta, ne.rhs); err != nil {
			continue
		}

		var hat mat.Dense
		if err := chol.SolveTo(&hat, ne.gram); err != nil {
			continue
		}
		edf := mat.Trace(&hat)
		if float64(n)-edf <= 0 {
			continue
		}

		var gb mat.VecDense
		gb.MulVec(ne.gram, &beta)
		rss := ne.yy - 2*mat.Dot(&beta, ne.rhs) + mat.Dot(&beta, &gb)
		rss = math.Max(rss, 0)
		gcv := float64(n) * rss / math.Pow(float64(n)-edf, 2)

		f.logger.Debug("GCV score", zap.Float64("lambda", lambda), zap.Float64("gcv", gcv), zap.Float64("edf", edf))

		if gcv < best {
			best = gcv
			m.beta = append(m.beta[:0], beta.RawVector().Data...)
			m.lambda = lambda
			m.gcv = gcv
			m.edf = edf
		}
	}

	if m.beta == nil {
		return fmt.Errorf("%w: no smoothing parameter yields a solvable system", domain.ErrFit)
	}
	return nil
}

// rawTerm is the uncentred contribution of feature j at value v.
func (m *Model) rawTerm(j int, v float64) float64 {
	ft := m.features[j]
	if ft.size() == 0 {
		return 0
	}
	s, w := ft.eval(v)
	var sum float64
	for a := 0; a < 4; a++ {
		sum += w[a] * m.beta[ft.offset+s+a]
	}
	return sum
}

// Terms returns the N×P matrix of centred per-feature contributions.
func (m *Model) Terms(x mat.Matrix) (*mat.Dense, error) {
	r, c, err := m.checkInput(x)
	if err != nil {
		return nil, err
	}
	terms := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := terms.RawRowView(i)
		for j := 0; j < c; j++ {
			if m.features[j].size() == 0 {
				continue
			}
			row[j] = m.rawTerm(j, x.At(i, j)) - m.centers[j]
		}
	}
	return terms, nil
}

// Predict returns intercept + Σ terms for every row of x.
func (m *Model) Predict(x mat.Matrix) ([]float64, error) {
	r, c, err := m.checkInput(x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		v := m.intercept
		for j := 0; j < c; j++ {
			if m.features[j].size() == 0 {
				continue
			}
			v += m.rawTerm(j, x.At(i, j)) - m.centers[j]
		}
		out[i] = v
	}
	return out, nil
}

func (m *Model) checkInput(x mat.Matrix) (int, int, error) {
	if x == nil {
		return 0, 0, fmt.Errorf("%w: nil input", domain.ErrInvalidShape)
	}
	r, c := x.Dims()
	if c != len(m.features) {
		return 0, 0, fmt.Errorf("%w: input has %d columns, model has %d", domain.ErrInvalidShape, c, len(m.features))
	}
	return r, c, nil
}

package gp

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"gp-gam-emulation/internal/domain"
)

const (
	MethodNelderMead = "nelder-mead"
	MethodLBFGS      = "lbfgs"
)

// Fitter trains Gaussian Process emulators by maximising the marginal likelihood.
type Fitter struct {
	logger *zap.Logger
	conf   domain.GPConfig
}

func NewFitter(logger *zap.Logger, conf domain.GPConfig) *Fitter {
	return &Fitter{logger: logger, conf: conf}
}

// Fit returns a trained *Model as a domain.SurrogateModel. Any failure wraps
// domain.ErrFit.
func (f *Fitter) Fit(x mat.Matrix, y []float64) (domain.SurrogateModel, error) {
	return f.FitModel(x, y)
}

func (f *Fitter) FitModel(x mat.Matrix, y []float64) (*Model, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil design matrix", domain.ErrFit)
	}
	n, d := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("%w: design has %d rows, response has %d", domain.ErrFit, n, len(y))
	}
	if n < 2 || d == 0 {
		return nil, fmt.Errorf("%w: design %dx%d too small", domain.ErrFit, n, d)
	}

	m := &Model{}
	m.standardize(x, y)
	yz := make([]float64, n)
	for i, v := range y {
		yz[i] = (v - m.yMean) / m.yStd
	}

	d2 := pairwiseSqDist(m.x)
	cost := NewCostFunction(f.logger, d2, yz, f.conf.Nugget)

	theta, err := f.multiStart(cost, []float64{math.Log(math.Sqrt(float64(d))), 0, math.Log(1e-2)})
	if err != nil {
		return nil, err
	}

	m.hyper = hyperFromLog(theta)
	k := covariance(d2, m.hyper, f.conf.Nugget)
	if ok := m.chol.Factorize(k); !ok {
		return nil, fmt.Errorf("%w: covariance matrix not positive definite", domain.ErrFit)
	}
	m.alpha = mat.NewVecDense(n, nil)
	if err := m.chol.SolveVecTo(m.alpha, mat.NewVecDense(n, yz)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFit, err)
	}

	f.logger.Info("Gaussian process fitted",
		zap.Int("rows", n),
		zap.Int("cols", d),
		zap.Float64("length_scale", m.hyper.LengthScale),
		zap.Float64("signal_var", m.hyper.SignalVar),
		zap.Float64("noise_var", m.hyper.NoiseVar))

	return m, nil
}

// candidate is one local optimum of the likelihood.
type candidate struct {
	theta []float64
	value float64
}

// multiStart runs the local optimiser from initial and from conf.Restarts
// random points inside the bounds and keeps the lowest cost.
func (f *Fitter) multiStart(cost *CostFunction, initial []float64) ([]float64, error) {
	rng := rand.New(rand.NewSource(f.conf.Seed))
	starts := [][]float64{initial}
	for rangeIter := 0; rangeIter < max(0, f.conf.Restarts); rangeIter++ {
		starts = append(starts, randomTheta(rng))
	}

	var found []candidate
	var lastErr error
	for i, start := range starts {
		theta, err := f.optimize(cost, start)
		if err != nil {
			lastErr = err
			f.logger.Debug("Start failed", zap.Int("start", i), zap.Error(err))
			continue
		}
		found = append(found, candidate{theta: theta, value: cost.Value(theta)})
	}
	if len(found) == 0 {
		return nil, lastErr
	}

	// Сортируем по значению функции стоимости
	sort.Slice(found, func(i, j int) bool {
		return found[i].value < found[j].value
	})

	if len(starts) > 1 {
		f.logger.Info("Multi-start finished",
			zap.Int("starts", len(starts)),
			zap.Int("converged", len(found)),
			zap.Float64("best_nll", found[0].value))
	}
	return found[0].theta, nil
}

func randomTheta(rng *rand.Rand) []float64 {
	theta := make([]float64, len(lowerBounds))
	for i := range theta {
		theta[i] = lowerBounds[i] + rng.Float64()*(upperBounds[i]-lowerBounds[i])
	}
	return theta
}

func (f *Fitter) optimize(cost *CostFunction, initial []float64) ([]float64, error) {
	problem := optimize.Problem{Func: cost.Value}
	var method optimize.Method

	switch f.conf.Method {
	case MethodLBFGS:
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, cost.Value, x, &fd.Settings{Formula: fd.Central})
		}
		method = &optimize.LBFGS{}
	default:
		method = &optimize.NelderMead{}
	}

	settings := &optimize.Settings{MajorIterations: f.conf.MaxIterations}
	result, err := optimize.Minimize(problem, initial, settings, method)
	if result == nil || math.IsNaN(result.F) || result.F >= HUGE_VAL {
		return nil, fmt.Errorf("%w: likelihood optimisation did not converge: %v", domain.ErrFit, err)
	}
	if err != nil {
		f.logger.Warn("Optimiser stopped early, using best point",
			zap.String("status", result.Status.String()),
			zap.Error(err))
	}

	f.logger.Debug("Optimization result:", zap.Any("result", result.Location))
	return clampTheta(result.X), nil
}

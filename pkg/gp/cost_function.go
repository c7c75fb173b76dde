package gp

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	HUGE_VAL = 1000000000.0
)

// bounds on the log hyper-parameters (log ℓ, log σf², log σn²)
var (
	lowerBounds = []float64{math.Log(1e-2), -10, -16}
	upperBounds = []float64{math.Log(1e3), 10, 2}
)

// CostFunction is the negative log marginal likelihood of standardised
// training data as a function of the log hyper-parameters.
type CostFunction struct {
	logger *zap.Logger
	d2     *mat.SymDense
	y      *mat.VecDense
	nugget float64
}

func NewCostFunction(logger *zap.Logger, d2 *mat.SymDense, y []float64, nugget float64) *CostFunction {
	return &CostFunction{
		logger: logger,
		d2:     d2,
		y:      mat.NewVecDense(len(y), y),
		nugget: nugget,
	}
}

// calcBoundsPenalty smoothly pushes the optimiser back inside the box.
func calcBoundsPenalty(theta []float64) float64 {
	var penalty float64
	for i, v := range theta {
		if v < lowerBounds[i] {
			penalty += 1000 * math.Pow(lowerBounds[i]-v, 2)
		}
		if v > upperBounds[i] {
			penalty += 1000 * math.Pow(v-upperBounds[i], 2)
		}
	}
	return penalty
}

// clampTheta returns a copy of theta inside the bounds.
func clampTheta(theta []float64) []float64 {
	out := make([]float64, len(theta))
	for i, v := range theta {
		out[i] = math.Min(math.Max(v, lowerBounds[i]), upperBounds[i])
	}
	return out
}

// negLogLikelihood evaluates -log p(y | θ) without penalties.
func (c *CostFunction) negLogLikelihood(theta []float64) float64 {
	h := hyperFromLog(theta)
	k := covariance(c.d2, h, c.nugget)

	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return HUGE_VAL
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, c.y); err != nil {
		return HUGE_VAL
	}

	n := float64(c.y.Len())
	nll := 0.5*mat.Dot(c.y, &alpha) + 0.5*chol.LogDet() + 0.5*n*math.Log(2*math.Pi)
	if math.IsNaN(nll) || math.IsInf(nll, 0) {
		return HUGE_VAL
	}
	return nll
}

// Value основная функция стоимости: штраф за выход из границ плюс -log p(y).
func (c *CostFunction) Value(theta []float64) float64 {
	if len(theta) != 3 {
		return HUGE_VAL
	}

	penalty := calcBoundsPenalty(theta)
	nll := c.negLogLikelihood(clampTheta(theta))
	total := nll + penalty

	c.logger.Debug("Likelihood evaluated",
		zap.Float64s("theta", theta),
		zap.Float64("nll", nll),
		zap.Float64("penalty", penalty))

	return total
}

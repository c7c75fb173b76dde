package app

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gp-gam-emulation/internal/domain"
)

// Decompose computes, per parameter column, the sample variance of its
// additive contribution and the sign of its covariance with the raw values.
// Both quantities ignore a constant offset in a terms column.
func Decompose(terms, raw mat.Matrix) (*domain.Decomposition, error) {
	if terms == nil || raw == nil {
		return nil, fmt.Errorf("%w: nil matrix", domain.ErrInvalidArgument)
	}
	n, p := terms.Dims()
	rn, rp := raw.Dims()
	if n != rn || p != rp {
		return nil, fmt.Errorf("%w: terms %dx%d vs parameters %dx%d", domain.ErrInvalidArgument, n, p, rn, rp)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", domain.ErrInvalidArgument, n)
	}

	out := &domain.Decomposition{
		Variances:     make([]float64, p),
		GradientSigns: make([]float64, p),
	}

	t := make([]float64, n)
	x := make([]float64, n)
	for i := 0; i < p; i++ {
		mat.Col(t, i, terms)
		mat.Col(x, i, raw)

		out.Variances[i] = stat.Variance(t, nil)
		if stat.Variance(x, nil) <= domain.DegenerateVarianceThreshold {
			continue
		}
		out.GradientSigns[i] = sign(stat.Covariance(x, t, nil))
	}
	return out, nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

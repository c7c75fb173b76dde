package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Hyper holds kernel hyper-parameters on their natural scale.
type Hyper struct {
	LengthScale float64
	SignalVar   float64
	NoiseVar    float64
}

// hyperFromLog maps the optimiser vector (log ℓ, log σf², log σn²) to Hyper.
func hyperFromLog(theta []float64) Hyper {
	return Hyper{
		LengthScale: math.Exp(theta[0]),
		SignalVar:   math.Exp(theta[1]),
		NoiseVar:    math.Exp(theta[2]),
	}
}

// sqExp is the isotropic squared-exponential covariance for squared distance d2.
func sqExp(d2, lengthScale, signalVar float64) float64 {
	return signalVar * math.Exp(-0.5*d2/(lengthScale*lengthScale))
}

// sqDist returns the squared Euclidean distance between row i of a and row j of b.
func sqDist(a *mat.Dense, i int, b *mat.Dense, j int) float64 {
	ra := a.RawRowView(i)
	rb := b.RawRowView(j)
	var sum float64
	for k := range ra {
		d := ra[k] - rb[k]
		sum += d * d
	}
	return sum
}

// pairwiseSqDist returns the symmetric n×n matrix of squared distances between
// the rows of x.
func pairwiseSqDist(x *mat.Dense) *mat.SymDense {
	n, _ := x.Dims()
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, sqDist(x, i, x, j))
		}
	}
	return d
}

// covariance builds K = k(X, X) + (σn² + nugget)·I from precomputed distances.
func covariance(d2 *mat.SymDense, h Hyper, nugget float64) *mat.SymDense {
	n := d2.SymmetricDim()
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		k.SetSym(i, i, h.SignalVar+h.NoiseVar+nugget)
		for j := i + 1; j < n; j++ {
			k.SetSym(i, j, sqExp(d2.At(i, j), h.LengthScale, h.SignalVar))
		}
	}
	return k
}

// crossCovariance returns the n×m matrix k(Xtrain, Xnew).
func crossCovariance(train, x *mat.Dense, h Hyper) *mat.Dense {
	n, _ := train.Dims()
	m, _ := x.Dims()
	ks := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		row := ks.RawRowView(i)
		for j := 0; j < m; j++ {
			row[j] = sqExp(sqDist(train, i, x, j), h.LengthScale, h.SignalVar)
		}
	}
	return ks
}

package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var ErrInvalidMatrix = errors.New("invalid matrix")

// FiniteRows drops every row where y or any column of x is NaN or ±Inf.
// The returned matrix is a copy; x is left untouched.
func FiniteRows(x mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	if x == nil {
		return nil, nil, ErrInvalidMatrix
	}
	r, c := x.Dims()
	if r != len(y) {
		return nil, nil, ErrInvalidMatrix
	}

	keep := make([]int, 0, r)
	for i := 0; i < r; i++ {
		if !isFinite(y[i]) {
			continue
		}
		ok := true
		for j := 0; j < c; j++ {
			if !isFinite(x.At(i, j)) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, nil, fmt.Errorf("%w: no finite rows remain out of %d", ErrInsufficientData, r)
	}

	out := mat.NewDense(len(keep), c, nil)
	yOut := make([]float64, len(keep))
	for k, i := range keep {
		for j := 0; j < c; j++ {
			out.Set(k, j, x.At(i, j))
		}
		yOut[k] = y[i]
	}
	return out, yOut, nil
}

// ColumnMedians returns the median of every column, averaging the two middle
// values for even row counts.
func ColumnMedians(x mat.Matrix) ([]float64, error) {
	if x == nil {
		return nil, ErrInvalidMatrix
	}
	r, c := x.Dims()
	if r == 0 {
		return nil, ErrInvalidMatrix
	}

	medians := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		sort.Float64s(col)
		if r%2 == 1 {
			medians[j] = col[r/2]
		} else {
			medians[j] = 0.5 * (col[r/2-1] + col[r/2])
		}
	}
	return medians, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package gp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

func target(a, b float64) float64 {
	return math.Sin(3*a) + b*b
}

// grid returns an n×n design on [0,1]² (offset by shift) and the target values.
func grid(n int, shift float64) (*mat.Dense, []float64) {
	x := mat.NewDense(n*n, 2, nil)
	y := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := (float64(i) + shift) / float64(n-1)
			b := (float64(j) + shift) / float64(n-1)
			r := i*n + j
			x.Set(r, 0, a)
			x.Set(r, 1, b)
			y[r] = target(a, b)
		}
	}
	return x, y
}

func fitGrid(t *testing.T, method string) *Model {
	t.Helper()
	x, y := grid(6, 0)
	f := NewFitter(zap.NewNop(), domain.GPConfig{Method: method, MaxIterations: 300, Nugget: 1e-8})
	m, err := f.FitModel(x, y)
	require.NoError(t, err)
	return m
}

func TestFitter_Interpolates(t *testing.T) {
	for _, method := range []string{MethodNelderMead, MethodLBFGS} {
		t.Run(method, func(t *testing.T) {
			m := fitGrid(t, method)

			// cell centres of the training grid, never seen in training
			x, y := grid(5, 0.5)
			for r := 0; r < 25; r++ {
				a, b := x.At(r, 0)*0.8, x.At(r, 1)*0.8
				x.Set(r, 0, a)
				x.Set(r, 1, b)
				y[r] = target(a, b)
			}
			res, err := m.Predict(x, domain.PredictionRequest{Mean: true})
			require.NoError(t, err)
			for i, v := range res.Mean {
				assert.InDelta(t, y[i], v, 0.15, "row %d", i)
			}
			assert.Positive(t, m.Hyper().LengthScale)
		})
	}
}

func TestModel_MeanOnlyMatchesFull(t *testing.T) {
	m := fitGrid(t, MethodNelderMead)
	x, _ := grid(4, 0.3)

	meanOnly, err := m.Predict(x, domain.PredictionRequest{Mean: true})
	require.NoError(t, err)
	full, err := m.Predict(x, domain.PredictionRequest{Mean: true, SD: true, CI95: true})
	require.NoError(t, err)

	assert.Equal(t, meanOnly.Mean, full.Mean)
	assert.Nil(t, meanOnly.SD)
	assert.Nil(t, meanOnly.Lower95)

	require.Len(t, full.SD, len(full.Mean))
	for i := range full.Mean {
		assert.GreaterOrEqual(t, full.SD[i], 0.0)
		assert.InDelta(t, full.Mean[i]-full.Lower95[i], full.Upper95[i]-full.Mean[i], 1e-9)
		assert.LessOrEqual(t, full.Lower95[i], full.Mean[i])
	}
}

func TestModel_UncertaintyGrowsAwayFromData(t *testing.T) {
	m := fitGrid(t, MethodNelderMead)

	x := mat.NewDense(2, 2, []float64{
		0.4, 0.4,
		5, 5,
	})
	res, err := m.Predict(x, domain.PredictionRequest{SD: true})
	require.NoError(t, err)
	assert.Nil(t, res.Mean)
	assert.Less(t, res.SD[0], res.SD[1])
}

func TestModel_RowIndependence(t *testing.T) {
	m := fitGrid(t, MethodNelderMead)
	x, _ := grid(4, 0.2)
	req := domain.PredictionRequest{Mean: true, SD: true}

	all, err := m.Predict(x, req)
	require.NoError(t, err)
	part, err := m.Predict(x.Slice(5, 9, 0, 2), req)
	require.NoError(t, err)

	assert.InDeltaSlice(t, all.Mean[5:9], part.Mean, 1e-12)
	assert.InDeltaSlice(t, all.SD[5:9], part.SD, 1e-12)
}

func TestModel_Errors(t *testing.T) {
	m := fitGrid(t, MethodNelderMead)

	_, err := m.Predict(mat.NewDense(2, 3, nil), domain.PredictionRequest{Mean: true})
	require.ErrorIs(t, err, domain.ErrInvalidShape)

	f := NewFitter(zap.NewNop(), domain.GPConfig{MaxIterations: 10})
	_, err = f.Fit(mat.NewDense(3, 2, nil), []float64{1, 2})
	require.ErrorIs(t, err, domain.ErrFit)

	_, err = f.Fit(mat.NewDense(1, 2, nil), []float64{1})
	require.ErrorIs(t, err, domain.ErrFit)

	_, err = f.Fit(nil, nil)
	require.ErrorIs(t, err, domain.ErrFit)
}

func TestCostFunction_Penalty(t *testing.T) {
	x, y := grid(3, 0)
	m := &Model{}
	m.standardize(x, y)
	cost := NewCostFunction(zap.NewNop(), pairwiseSqDist(m.x), y, 1e-8)

	inside := []float64{0, 0, math.Log(1e-2)}
	outside := []float64{0, 0, 10}

	assert.Zero(t, calcBoundsPenalty(inside))
	assert.Positive(t, calcBoundsPenalty(outside))
	assert.Greater(t, cost.Value(outside), cost.Value(clampTheta(outside)))
	assert.Equal(t, float64(HUGE_VAL), cost.Value([]float64{0, 0}))
}

func TestFitter_MultiStart(t *testing.T) {
	x, y := grid(5, 0)
	single, err := NewFitter(zap.NewNop(), domain.GPConfig{MaxIterations: 200, Nugget: 1e-8}).FitModel(x, y)
	require.NoError(t, err)
	multi, err := NewFitter(zap.NewNop(), domain.GPConfig{MaxIterations: 200, Nugget: 1e-8, Restarts: 3, Seed: 7}).FitModel(x, y)
	require.NoError(t, err)

	ys := make([]float64, len(y))
	for i, v := range y {
		ys[i] = (v - multi.yMean) / multi.yStd
	}
	cost := NewCostFunction(zap.NewNop(), pairwiseSqDist(multi.x), ys, 1e-8)
	toTheta := func(h Hyper) []float64 {
		return []float64{math.Log(h.LengthScale), math.Log(h.SignalVar), math.Log(h.NoiseVar)}
	}
	assert.LessOrEqual(t, cost.Value(toTheta(multi.Hyper())), cost.Value(toTheta(single.Hyper()))+1e-9)
}

func TestRandomTheta_InsideBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for rangeIter := 0; rangeIter < 100; rangeIter++ {
		theta := randomTheta(rng)
		assert.Zero(t, calcBoundsPenalty(theta))
	}
}

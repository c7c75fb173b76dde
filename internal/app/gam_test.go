package app

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

const gpMeanName = "emulated_mean_values_H2SO4_jul_ilat_51.250_ilon_-0.1250_8_w_o_carb.dat"

// gamSample has 3 columns: increasing, decreasing and constant; the linear
// fixture model gives them positive, negative and no gradient.
func gamSample(rows int) *mat.Dense {
	m := mat.NewDense(rows, 3, nil)
	for i := 0; i < rows; i++ {
		m.Set(i, 0, float64(i)*0.1)
		m.Set(i, 1, float64(rows-i))
		m.Set(i, 2, 0.5)
	}
	return m
}

func analyzerFixture(t *testing.T, sampleRows int) (*VarianceAnalyzer, *memStore, *linearFitter, memPaths) {
	t.Helper()

	paths := memPaths{root: t.TempDir()}
	paths.gpMean = filepath.Join(paths.root, gpMeanName)

	store := newMemStore()
	store.vectors[paths.gpMean] = []float64{1, 2, 3, 4, 5, 6, 7, 8}
	store.sample = newSample(gamSample(sampleRows), "constrained_sample.dat")

	fitter := &linearFitter{model: &linearModel{c: 1, a: []float64{2, -0.5, 3}, means: []float64{0, 0, 0}}}
	config := &domain.Config{
		GAM: domain.GAMConfig{RowCap: 10, Method: domain.GAMMethodTerms, ChunkSize: 3},
	}
	a := NewVarianceAnalyzer(zap.NewNop(), config, paths, store, store, store, fitter)
	return a, store, fitter, paths
}

func TestVarianceAnalyzer_Run(t *testing.T) {
	a, store, fitter, paths := analyzerFixture(t, 12)

	out, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.NoError(t, err)

	assert.Equal(t, 8, out.RowsUsed)
	assert.Equal(t, 8, fitter.rows)
	assert.Equal(t, 3, fitter.cols)
	assert.Equal(t, []int{10}, store.limits)

	dir := paths.GAMOutputDir(domain.VariantOptimised, testKey())
	assert.Equal(t, filepath.Join(dir, "var_8.dat"), out.VariancePath)
	assert.Equal(t, filepath.Join(dir, "grad_8.dat"), out.GradientPath)

	assert.Equal(t, []string{"1", "-1", "0"}, store.written[out.GradientPath])
	require.Len(t, store.written[out.VariancePath], 3)
	assert.Equal(t, "0.00000000e+00", store.written[out.VariancePath][2])

	// var(2 * 0.1 * i), i = 0..7
	assert.InDelta(t, 0.04*6, out.Decomposition.Variances[0], 1e-12)
}

func TestVarianceAnalyzer_MedianMatchesTerms(t *testing.T) {
	a, _, _, _ := analyzerFixture(t, 12)

	terms, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.NoError(t, err)
	median, err := a.Run(testKey(), domain.VariantBaseline, "")
	require.NoError(t, err)

	assert.InDeltaSlice(t, terms.Decomposition.Variances, median.Decomposition.Variances, 1e-9)
	assert.Equal(t, terms.Decomposition.GradientSigns, median.Decomposition.GradientSigns)
}

func TestVarianceAnalyzer_ExplicitSample(t *testing.T) {
	a, store, fitter, _ := analyzerFixture(t, 12)
	store.sample = nil
	store.samples["explicit.dat"] = newSample(gamSample(20), "explicit.dat")

	_, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.ErrorIs(t, err, domain.ErrSampleNotFound)

	out, err := a.Run(testKey(), domain.VariantOptimised, "explicit.dat")
	require.NoError(t, err)
	assert.Equal(t, 8, out.RowsUsed)
	assert.Equal(t, 8, fitter.rows)
}

func TestVarianceAnalyzer_DropsNonFiniteRows(t *testing.T) {
	a, store, fitter, paths := analyzerFixture(t, 12)
	store.vectors[paths.gpMean][3] = math.NaN()

	out, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.NoError(t, err)
	assert.Equal(t, 7, out.RowsUsed)
	assert.Equal(t, 7, fitter.rows)
	// the GP file name still carries 8 rows
	assert.Equal(t, "var_8.dat", filepath.Base(out.VariancePath))
}

func TestVarianceAnalyzer_CapBelowGPMean(t *testing.T) {
	a, store, fitter, _ := analyzerFixture(t, 12)
	a.config.GAM.RowCap = 5

	out, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.NoError(t, err)
	assert.Equal(t, 5, out.RowsUsed)
	assert.Equal(t, 5, fitter.rows)
	assert.Equal(t, []int{5}, store.limits)
	// 5 of the 8 GP values are used, the name follows the rows used
	assert.Equal(t, "var_5.dat", filepath.Base(out.VariancePath))
	assert.Equal(t, "grad_5.dat", filepath.Base(out.GradientPath))
}

func TestVarianceAnalyzer_SampleBelowCap(t *testing.T) {
	a, _, _, _ := analyzerFixture(t, 9)

	_, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestVarianceAnalyzer_MissingGPMean(t *testing.T) {
	a, _, _, _ := analyzerFixture(t, 12)
	a.paths = memPaths{root: t.TempDir()}

	_, err := a.Run(testKey(), domain.VariantOptimised, "")
	require.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestMedianSweepTerms(t *testing.T) {
	model := &linearModel{c: 2, a: []float64{1, -2}, means: []float64{0, 0}}
	x := mat.NewDense(5, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
		5, 50,
	})

	for _, chunk := range []int{0, 1, 2, 5} {
		terms, err := MedianSweepTerms(model, x, chunk)
		require.NoError(t, err)
		// medians are 3 and 30
		assert.Equal(t, []float64{2 + 1 - 60, 2 + 3 - 60, 2 + 5 - 60}, []float64{terms.At(0, 0), terms.At(2, 0), terms.At(4, 0)})
		assert.Equal(t, 2+3-20.0, terms.At(0, 1), "chunk %d", chunk)
		assert.Equal(t, 2+3-100.0, terms.At(4, 1), "chunk %d", chunk)
	}
}

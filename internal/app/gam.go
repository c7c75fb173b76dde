package app

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

// VarianceOutput lists the files written by one GAM variance task.
type VarianceOutput struct {
	RowsUsed      int
	VariancePath  string
	GradientPath  string
	Decomposition *domain.Decomposition
}

// VarianceAnalyzer runs the GAM stage: fit an additive model to the emulated
// means and decompose output variance by parameter.
type VarianceAnalyzer struct {
	logger  *zap.Logger
	config  *domain.Config
	paths   domain.PathResolver
	vectors domain.VectorReader
	samples domain.SampleLoader
	writer  domain.VectorWriter
	fitter  domain.AdditiveFitter
}

func NewVarianceAnalyzer(logger *zap.Logger, config *domain.Config, paths domain.PathResolver,
	vectors domain.VectorReader, samples domain.SampleLoader, writer domain.VectorWriter,
	fitter domain.AdditiveFitter) *VarianceAnalyzer {
	return &VarianceAnalyzer{
		logger:  logger,
		config:  config,
		paths:   paths,
		vectors: vectors,
		samples: samples,
		writer:  writer,
		fitter:  fitter,
	}
}

// Run executes the task. samplePath overrides sample auto-detection when set.
func (a *VarianceAnalyzer) Run(key domain.TaskKey, variant, samplePath string) (*VarianceOutput, error) {
	logger := a.logger.With(zap.String("task", key.String()), zap.String("variant", variant))
	if err := domain.CheckVariant(variant); err != nil {
		return nil, err
	}
	start := time.Now()

	gpFile, err := a.paths.FindGPMeanFile(key)
	if err != nil {
		return nil, err
	}
	y, err := a.vectors.ReadVector(gpFile)
	if err != nil {
		return nil, fmt.Errorf("read GP mean: %w", err)
	}
	nGP := domain.RowsFromGPName(gpFile)
	logger.Info("Using GP mean", zap.String("path", gpFile), zap.Int("values", len(y)))

	sample, err := a.loadSample(samplePath)
	if err != nil {
		return nil, err
	}

	// Case B: the first rows of the sample align with the GP means.
	policy := RowCapPolicy{UseAll: a.config.GAM.UseAllRows, Cap: a.config.GAM.RowCap}
	n, err := policy.Rows(sample.Available, policy.Required())
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", sample.Source, err)
	}
	m := min(n, len(y))
	if m < 2 {
		return nil, fmt.Errorf("%w: %d aligned rows between %s and %s", domain.ErrInsufficientData, m, gpFile, sample.Source)
	}
	_, cols := sample.Matrix.Dims()
	x, yUsed, err := domain.FiniteRows(sample.Matrix.Slice(0, m, 0, cols), y[:m])
	if err != nil {
		return nil, err
	}
	rowsUsed := len(yUsed)

	model, err := a.fitter.Fit(x, yUsed)
	if err != nil {
		return nil, err
	}

	method := a.method(variant)
	var terms *mat.Dense
	switch method {
	case domain.GAMMethodMedian:
		terms, err = MedianSweepTerms(model, x, a.config.GAM.ChunkSize)
	default:
		terms, err = model.Terms(x)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: terms (%s): %v", domain.ErrModelPrediction, method, err)
	}

	dec, err := Decompose(terms, x)
	if err != nil {
		return nil, err
	}

	// Имя с числом строк GP только если использованы все значения среднего.
	nOut := rowsUsed
	if nGP == len(y) && m == len(y) {
		nOut = nGP
	}
	outDir := a.paths.GAMOutputDir(variant, key)
	out := &VarianceOutput{
		RowsUsed:      rowsUsed,
		VariancePath:  filepath.Join(outDir, a.paths.GAMVarianceName(key, nOut)),
		GradientPath:  filepath.Join(outDir, a.paths.GAMGradientName(key, nOut)),
		Decomposition: dec,
	}

	if err := a.writer.WriteVectorFormatted(out.VariancePath, dec.Variances, scientificFmt(8)); err != nil {
		return nil, fmt.Errorf("write %s: %w", out.VariancePath, err)
	}
	if err := a.writer.WriteVectorFormatted(out.GradientPath, dec.GradientSigns, integerFmt); err != nil {
		return nil, fmt.Errorf("write %s: %w", out.GradientPath, err)
	}

	logger.Info("GAM variance decomposition completed",
		zap.Int("rows_used", rowsUsed),
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (a *VarianceAnalyzer) loadSample(samplePath string) (*domain.Sample, error) {
	schema := a.config.Schema.GAM
	policy := RowCapPolicy{UseAll: a.config.GAM.UseAllRows, Cap: a.config.GAM.RowCap}
	limit := policy.Limit(policy.Required())
	if samplePath == "" {
		samplePath = a.config.GAM.SampleFile
	}
	if samplePath != "" {
		return a.samples.LoadSampleFile(samplePath, schema, limit)
	}
	return a.samples.LoadSample(a.config.Paths.SampleDir, schema, limit)
}

// method picks the median sweep for the baseline and the configured method
// otherwise.
func (a *VarianceAnalyzer) method(variant string) string {
	if variant == domain.VariantBaseline {
		return domain.GAMMethodMedian
	}
	return a.config.GAM.Method
}

// MedianSweepTerms evaluates, for every parameter i, the model on rows where
// all other parameters sit at their column medians. Column i of the result
// equals the additive term of parameter i up to a constant.
func MedianSweepTerms(model domain.AdditiveModel, x *mat.Dense, chunkSize int) (*mat.Dense, error) {
	rows, cols := x.Dims()
	medians, err := domain.ColumnMedians(x)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = rows
	}
	chunks, err := PlanChunks(rows, chunkSize)
	if err != nil {
		return nil, err
	}

	terms := mat.NewDense(rows, cols, nil)
	for _, chunk := range chunks {
		block := mat.NewDense(chunk.Len(), cols, nil)
		for i := 0; i < cols; i++ {
			for r := 0; r < chunk.Len(); r++ {
				copy(block.RawRowView(r), medians)
				block.Set(r, i, x.At(chunk.Start+r, i))
			}
			pred, err := model.Predict(block)
			if err != nil {
				return nil, err
			}
			for r, v := range pred {
				terms.Set(chunk.Start+r, i, v)
			}
		}
	}
	return terms, nil
}

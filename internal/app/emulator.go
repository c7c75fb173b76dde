package app

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

// EmulationOutput lists the files written by one emulation task.
type EmulationOutput struct {
	Rows  int
	Files map[string]string
}

// Emulator runs the GP stage for one grid point/month: fit on the training
// runs, predict over the large sample, persist the vectors.
type Emulator struct {
	logger  *zap.Logger
	config  *domain.Config
	paths   domain.PathResolver
	vectors domain.VectorReader
	designs domain.MatrixReader
	samples domain.SampleLoader
	writer  domain.VectorWriter
	fitter  domain.SurrogateFitter
}

func NewEmulator(logger *zap.Logger, config *domain.Config, paths domain.PathResolver,
	vectors domain.VectorReader, designs domain.MatrixReader, samples domain.SampleLoader,
	writer domain.VectorWriter, fitter domain.SurrogateFitter) *Emulator {
	return &Emulator{
		logger:  logger,
		config:  config,
		paths:   paths,
		vectors: vectors,
		designs: designs,
		samples: samples,
		writer:  writer,
		fitter:  fitter,
	}
}

// Run executes the task in the given variant (baseline or optimised).
func (e *Emulator) Run(key domain.TaskKey, variant string) (*EmulationOutput, error) {
	logger := e.logger.With(zap.String("task", key.String()), zap.String("variant", variant))
	if err := domain.CheckVariant(variant); err != nil {
		return nil, err
	}
	start := time.Now()

	// Чтение обучающих данных
	trainingPath := e.paths.TrainingFile(key)
	y, err := e.vectors.ReadVector(trainingPath)
	if err != nil {
		return nil, fmt.Errorf("read training response: %w", err)
	}
	schema := e.config.Schema.GP
	y = schema.FilterVector(y)

	design, err := e.designs.ReadDesign(e.config.Paths.DesignFile, schema)
	if err != nil {
		return nil, fmt.Errorf("read design matrix: %w", err)
	}
	if rows, _ := design.Dims(); rows != len(y) {
		return nil, fmt.Errorf("%w: design %s has %d rows, training response %s has %d",
			domain.ErrInvalidShape, e.config.Paths.DesignFile, rows, trainingPath, len(y))
	}

	// Обучение эмулятора
	model, err := e.fitter.Fit(design, y)
	if err != nil {
		return nil, err
	}

	policy := RowCapPolicy{UseAll: e.config.Emulation.UseAllRows, Cap: e.config.Emulation.RowCap}
	sample, err := e.samples.LoadSample(e.config.Paths.SampleDir, schema, policy.Limit(len(y)))
	if err != nil {
		return nil, err
	}
	_, trainCols := design.Dims()
	if _, c := sample.Matrix.Dims(); c != trainCols {
		return nil, fmt.Errorf("%w: sample %s has %d columns after selection, design has %d",
			domain.ErrInvalidShape, sample.Source, c, trainCols)
	}

	n, err := policy.Rows(sample.Available, len(y))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", sample.Source, err)
	}
	rows := sample.Matrix.Slice(0, n, 0, trainCols).(*mat.Dense)

	chunkSize, req := e.plan(variant, n)
	logger.Info("Starting emulation",
		zap.Int("training_rows", len(y)),
		zap.Int("sample_rows", n),
		zap.Int("chunk_size", chunkSize),
		zap.Bool("want_sd", req.SD),
		zap.Bool("want_ci95", req.CI95))

	predictor := NewChunkedPredictor(logger, chunkSize, e.config.Emulation.Workers)
	result, err := predictor.Predict(model, rows, req)
	if err != nil {
		return nil, err
	}

	// Запись результатов
	outDir := e.paths.GPOutputDir(variant, key)
	format := scientificFmt(e.config.Decimals)
	outputs := []struct {
		kind   string
		values []float64
	}{
		{"mean", result.Mean},
		{"sd", result.SD},
		{"lower95", result.Lower95},
		{"upper95", result.Upper95},
	}

	out := &EmulationOutput{Rows: n, Files: map[string]string{}}
	for _, o := range outputs {
		if o.values == nil {
			continue
		}
		path := filepath.Join(outDir, e.paths.GPOutputName(o.kind, key, n))
		if err := e.writer.WriteVectorFormatted(path, o.values, format); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		out.Files[o.kind] = path
	}

	logger.Info("Emulation completed",
		zap.Int("rows", n),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// plan returns the chunk size and outputs for a variant. The baseline
// predicts the whole sample in one block with SD; the optimised variant
// chunks and skips SD unless asked for.
func (e *Emulator) plan(variant string, rows int) (int, domain.PredictionRequest) {
	if variant == domain.VariantBaseline {
		return max(1, rows), domain.PredictionRequest{Mean: true, SD: true}
	}
	return e.config.Emulation.ChunkSize, domain.PredictionRequest{
		Mean: true,
		SD:   e.config.Emulation.WantSD,
		CI95: e.config.Emulation.WantCI95,
	}
}

package app

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

// ChunkedPredictor evaluates a surrogate over a large sample one block of rows
// at a time and reassembles the outputs in sample row order.
type ChunkedPredictor struct {
	logger    *zap.Logger
	chunkSize int
	workers   int
}

func NewChunkedPredictor(logger *zap.Logger, chunkSize, workers int) *ChunkedPredictor {
	return &ChunkedPredictor{
		logger:    logger,
		chunkSize: chunkSize,
		workers:   max(1, workers),
	}
}

// Predict runs model over every chunk of sample. On any chunk failure it
// returns an error wrapping domain.ErrModelPrediction and no result.
func (p *ChunkedPredictor) Predict(model domain.SurrogateModel, sample *mat.Dense, req domain.PredictionRequest) (*domain.PredictionResult, error) {
	rows, cols := 0, 0
	if sample != nil && !sample.IsEmpty() {
		rows, cols = sample.Dims()
	}

	chunks, err := PlanChunks(rows, p.chunkSize)
	if err != nil {
		return nil, err
	}

	result := allocateResult(rows, req)
	if rows == 0 {
		return result, nil
	}

	p.logger.Info("Starting chunked prediction",
		zap.Int("rows", rows),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", p.chunkSize),
		zap.Int("workers", p.workers),
		zap.Bool("mean_only", req.MeanOnly()))

	if p.workers == 1 || len(chunks) == 1 {
		for i, chunk := range chunks {
			if err := p.predictChunk(model, sample, cols, i, chunk, req, result); err != nil {
				return nil, err
			}
		}
	} else if err := p.predictParallel(model, sample, cols, chunks, req, result); err != nil {
		return nil, err
	}

	p.logger.Info("Chunked prediction completed", zap.Int("rows", rows))
	return result, nil
}

func (p *ChunkedPredictor) predictParallel(model domain.SurrogateModel, sample *mat.Dense, cols int,
	chunks []domain.Chunk, req domain.PredictionRequest, result *domain.PredictionResult) error {

	var wg sync.WaitGroup
	var failed atomic.Bool
	taskChan := make(chan domain.ProcessingTask, p.workers*2)
	errChan := make(chan error, len(chunks))

	// Запускаем воркеры
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go p.worker(w, model, sample, cols, req, result, taskChan, errChan, &failed, &wg)
	}

	// Отправляем задачи
	go func() {
		defer close(taskChan)
		for i, chunk := range chunks {
			if failed.Load() {
				return
			}
			taskChan <- domain.ProcessingTask{Index: i, Chunk: chunk}
		}
	}()

	wg.Wait()
	close(errChan)

	// any failure aborts the run; which failing chunk is reported is not fixed
	if err, ok := <-errChan; ok {
		return err
	}
	return nil
}

func (p *ChunkedPredictor) worker(id int, model domain.SurrogateModel, sample *mat.Dense, cols int,
	req domain.PredictionRequest, result *domain.PredictionResult,
	tasks <-chan domain.ProcessingTask, errs chan<- error, failed *atomic.Bool, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range tasks {
		if failed.Load() {
			continue
		}
		p.logger.Debug("Processing chunk", zap.Int("worker", id), zap.Int("chunk", task.Index))
		if err := p.predictChunk(model, sample, cols, task.Index, task.Chunk, req, result); err != nil {
			failed.Store(true)
			errs <- err
		}
	}
}

// predictChunk writes the chunk's outputs into the [Start, End) window of
// result; concurrent callers touch disjoint windows only.
func (p *ChunkedPredictor) predictChunk(model domain.SurrogateModel, sample *mat.Dense, cols, index int,
	chunk domain.Chunk, req domain.PredictionRequest, result *domain.PredictionResult) error {

	view := sample.Slice(chunk.Start, chunk.End, 0, cols)
	out, err := model.Predict(view, req)
	if err != nil {
		return fmt.Errorf("%w: chunk %d [%d,%d): %v", domain.ErrModelPrediction, index, chunk.Start, chunk.End, err)
	}
	if out == nil {
		return fmt.Errorf("%w: chunk %d [%d,%d): nil result", domain.ErrModelPrediction, index, chunk.Start, chunk.End)
	}

	n := chunk.Len()
	outputs := []struct {
		name   string
		wanted bool
		src    []float64
		dst    []float64
	}{
		{"mean", req.Mean, out.Mean, result.Mean},
		{"sd", req.SD, out.SD, result.SD},
		{"lower95", req.CI95, out.Lower95, result.Lower95},
		{"upper95", req.CI95, out.Upper95, result.Upper95},
	}
	for _, o := range outputs {
		if !o.wanted {
			continue
		}
		if o.src == nil || len(o.src) != n {
			return fmt.Errorf("%w: chunk %d [%d,%d): %s has %d values, want %d",
				domain.ErrModelPrediction, index, chunk.Start, chunk.End, o.name, len(o.src), n)
		}
		copy(o.dst[chunk.Start:chunk.End], o.src)
	}

	p.logger.Debug("Chunk predicted",
		zap.Int("chunk", index),
		zap.Int("start", chunk.Start),
		zap.Int("end", chunk.End))
	return nil
}

func allocateResult(rows int, req domain.PredictionRequest) *domain.PredictionResult {
	result := &domain.PredictionResult{}
	if req.Mean {
		result.Mean = make([]float64, rows)
	}
	if req.SD {
		result.SD = make([]float64, rows)
	}
	if req.CI95 {
		result.Lower95 = make([]float64, rows)
		result.Upper95 = make([]float64, rows)
	}
	return result
}

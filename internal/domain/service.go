package domain

import "gonum.org/v1/gonum/mat"

// SurrogateModel is a trained emulator. Implementations must not mutate state
// in Predict so a model can serve concurrent chunk predictions.
type SurrogateModel interface {
	Predict(x mat.Matrix, req PredictionRequest) (*PredictionResult, error)
}

// SurrogateFitter trains a SurrogateModel from a design matrix and response.
type SurrogateFitter interface {
	Fit(x mat.Matrix, y []float64) (SurrogateModel, error)
}

// AdditiveModel is a fitted GAM exposing per-term contributions.
type AdditiveModel interface {
	Predict(x mat.Matrix) ([]float64, error)
	Terms(x mat.Matrix) (*mat.Dense, error)
}

// AdditiveFitter trains an AdditiveModel.
type AdditiveFitter interface {
	Fit(x mat.Matrix, y []float64) (AdditiveModel, error)
}

// ProcessingTask задача обработки чанка
type ProcessingTask struct {
	Index int
	Chunk Chunk
}

package app

import (
	"errors"
	"sync"

	"gonum.org/v1/gonum/mat"

	"gp-gam-emulation/internal/domain"
)

// mockSurrogate echoes column 0 of every row as the mean and logs each call.
// SD is |x0|/10, the interval is mean ± 2·sd.
type mockSurrogate struct {
	mu     sync.Mutex
	calls  []mockCall
	failOn int // 1-based call number from which calls fail; 0 never fails
	dropSD bool
}

type mockCall struct {
	rows int
	req  domain.PredictionRequest
}

var errMockPredict = errors.New("mock predict failure")

func (m *mockSurrogate) Predict(x mat.Matrix, req domain.PredictionRequest) (*domain.PredictionResult, error) {
	m.mu.Lock()
	rows, _ := x.Dims()
	m.calls = append(m.calls, mockCall{rows: rows, req: req})
	n := len(m.calls)
	m.mu.Unlock()

	if m.failOn > 0 && n >= m.failOn {
		return nil, errMockPredict
	}

	out := &domain.PredictionResult{Mean: make([]float64, rows)}
	for i := 0; i < rows; i++ {
		out.Mean[i] = x.At(i, 0)
	}
	if req.SD || req.CI95 {
		sd := make([]float64, rows)
		for i := 0; i < rows; i++ {
			v := x.At(i, 0)
			if v < 0 {
				v = -v
			}
			sd[i] = v / 10
		}
		if req.SD && !m.dropSD {
			out.SD = sd
		}
		if req.CI95 {
			out.Lower95 = make([]float64, rows)
			out.Upper95 = make([]float64, rows)
			for i := 0; i < rows; i++ {
				out.Lower95[i] = out.Mean[i] - 2*sd[i]
				out.Upper95[i] = out.Mean[i] + 2*sd[i]
			}
		}
	}
	return out, nil
}

func (m *mockSurrogate) Calls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockCall(nil), m.calls...)
}

// mockFitter returns model regardless of the training data and records the
// shape it was asked to fit.
type mockFitter struct {
	model      domain.SurrogateModel
	rows, cols int
	err        error
}

func (f *mockFitter) Fit(x mat.Matrix, y []float64) (domain.SurrogateModel, error) {
	f.rows, f.cols = x.Dims()
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

// indexSample returns an n×cols matrix whose column 0 holds the row index.
func indexSample(n, cols int) *mat.Dense {
	m := mat.NewDense(n, cols, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, float64(i))
		for j := 1; j < cols; j++ {
			m.Set(i, j, float64(i*j)*0.01)
		}
	}
	return m
}

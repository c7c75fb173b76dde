package domain

import "gonum.org/v1/gonum/mat"

// VectorReader интерфейс для чтения векторов (one value per line)
type VectorReader interface {
	ReadVector(path string) ([]float64, error)
}

// MatrixReader reads a whitespace separated table and applies a column schema.
type MatrixReader interface {
	ReadDesign(path string, schema ColumnSchema) (*mat.Dense, error)
}

// SampleLoader locates and loads the large sample of a directory. At most
// limit leading rows are read; limit <= 0 reads the whole file.
type SampleLoader interface {
	LoadSample(dir string, schema ColumnSchema, limit int) (*Sample, error)
	LoadSampleFile(path string, schema ColumnSchema, limit int) (*Sample, error)
}

// VectorWriter интерфейс для записи результатов
type VectorWriter interface {
	WriteVectorFormatted(path string, values []float64, format func(float64) string) error
}

// ConfigReader интерфейс для чтения конфигурации
type ConfigReader interface {
	ReadConfig(path string) (*Config, error)
}

// PathResolver maps task identities onto storage locations.
type PathResolver interface {
	TrainingFile(key TaskKey) string
	GPOutputDir(variant string, key TaskKey) string
	GAMOutputDir(variant string, key TaskKey) string
	FindGPMeanFile(key TaskKey) (string, error)
	GPOutputName(kind string, key TaskKey, n int) string
	GAMVarianceName(key TaskKey, n int) string
	GAMGradientName(key TaskKey, n int) string
	ComparisonFile(stage string) string
}

// TimingTableWriter persists a baseline/optimised timing comparison.
type TimingTableWriter interface {
	WriteTimingTable(path string, rows []TimingComparison, total TimingComparison) error
	// WriteTimingRecords writes one row per task and variant.
	WriteTimingRecords(path string, records []TimingRecord) error
}

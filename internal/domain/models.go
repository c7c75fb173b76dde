package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// DegenerateVarianceThreshold is the variance below which a parameter column
// is treated as constant and gets gradient sign 0.
const DegenerateVarianceThreshold = 1e-15

// RawParameterCount is the number of columns every raw design or sample row carries.
const RawParameterCount = 55

// Config представляет конфигурацию приложения
type Config struct {
	Variable   string           `yaml:"variable"`
	LogLevel   string           `yaml:"log_level"`
	LogFile    string           `yaml:"log_file"`
	Paths      PathsConfig      `yaml:"paths"`
	Sample     SampleConfig     `yaml:"sample"`
	Emulation  EmulationConfig  `yaml:"emulation"`
	GP         GPConfig         `yaml:"gp"`
	GAM        GAMConfig        `yaml:"gam"`
	Schema     SchemaConfig     `yaml:"schema"`
	Decimals   int              `yaml:"decimals"`
	Comparison ComparisonConfig `yaml:"comparison"`
}

// PathsConfig holds the storage roots every task entry point resolves against.
type PathsConfig struct {
	TrainingBase string `yaml:"training_base"`
	DesignFile   string `yaml:"design_file"`
	SampleDir    string `yaml:"sample_dir"`
	OutputRoot   string `yaml:"output_root"`
}

// SampleConfig drives large-sample auto-detection.
type SampleConfig struct {
	Candidates []string `yaml:"candidates"`
	Formats    []string `yaml:"formats"`
	Substring  string   `yaml:"substring"`
}

type EmulationConfig struct {
	ChunkSize  int    `yaml:"chunk_size"`
	Workers    int    `yaml:"workers"`
	UseAllRows bool   `yaml:"use_all_rows"`
	RowCap     int    `yaml:"row_cap"`
	WantSD     bool   `yaml:"want_sd"`
	WantCI95   bool   `yaml:"want_ci95"`
	Variant    string `yaml:"variant"`
}

// GPConfig controls hyper-parameter fitting. Restarts > 0 adds that many
// random starting points drawn inside the parameter box.
type GPConfig struct {
	Method        string  `yaml:"method"`
	MaxIterations int     `yaml:"max_iterations"`
	Nugget        float64 `yaml:"nugget"`
	Restarts      int     `yaml:"restarts"`
	Seed          int64   `yaml:"seed"`
}

type GAMConfig struct {
	UseAllRows bool      `yaml:"use_all_rows"`
	RowCap     int       `yaml:"row_cap"`
	Segments   int       `yaml:"segments"`
	Lambdas    []float64 `yaml:"lambdas"`
	Method     string    `yaml:"method"`
	ChunkSize  int       `yaml:"chunk_size"`
	SampleFile string    `yaml:"sample_file"`
}

type SchemaConfig struct {
	GP  ColumnSchema `yaml:"gp"`
	GAM ColumnSchema `yaml:"gam"`
}

type ComparisonConfig struct {
	TasksFile string `yaml:"tasks_file"`
}

// ColumnSchema describes which raw columns (0-based) and design rows are
// removed before a matrix reaches the core.
type ColumnSchema struct {
	Drop     []int      `yaml:"drop_columns"`
	DropRows []RowRange `yaml:"drop_rows"`
}

// RowRange is a half-open range of rows [Start, End).
type RowRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Keep returns the retained raw column indices in ascending order.
func (s ColumnSchema) Keep(rawCols int) []int {
	dropped := make(map[int]bool, len(s.Drop))
	for _, c := range s.Drop {
		dropped[c] = true
	}
	keep := make([]int, 0, rawCols)
	for c := 0; c < rawCols; c++ {
		if !dropped[c] {
			keep = append(keep, c)
		}
	}
	return keep
}

// KeepRow reports whether design row i survives the schema's row drops.
func (s ColumnSchema) KeepRow(i int) bool {
	for _, r := range s.DropRows {
		if i >= r.Start && i < r.End {
			return false
		}
	}
	return true
}

// Names returns the parameter names retained by the schema.
func (s ColumnSchema) Names() []string {
	keep := s.Keep(len(ParameterNames))
	names := make([]string, len(keep))
	for i, c := range keep {
		names[i] = ParameterNames[c]
	}
	return names
}

// TaskKey identifies one grid-point/month task.
type TaskKey struct {
	Lat   float64
	Lon   float64
	Month string
}

func (k TaskKey) String() string {
	return fmt.Sprintf("lat=%.3f lon=%.4f month=%s", k.Lat, k.Lon, k.Month)
}

// Chunk is a half-open row range [Start, End) over a large sample.
type Chunk struct {
	Start, End int
}

func (c Chunk) Len() int {
	return c.End - c.Start
}

// PredictionRequest selects which outputs a surrogate has to produce.
type PredictionRequest struct {
	Mean bool
	SD   bool
	CI95 bool
}

// MeanOnly reports whether no uncertainty output is requested.
func (r PredictionRequest) MeanOnly() bool {
	return !r.SD && !r.CI95
}

// PredictionResult holds one value per sample row for every requested output.
type PredictionResult struct {
	Mean    []float64
	SD      []float64
	Lower95 []float64
	Upper95 []float64
}

// Sample is a large-sample matrix after column selection.
type Sample struct {
	Matrix    *mat.Dense
	Source    string
	Available int
}

// Decomposition is the per-parameter output of the variance decomposer.
type Decomposition struct {
	Variances     []float64
	GradientSigns []float64
}

// TimingRecord is one measured run of a stage variant.
type TimingRecord struct {
	Task    TaskKey
	Variant string
	Seconds float64
	OK      bool
	Err     string
}

// Variant names shared by the emulation and GAM stages.
const (
	VariantBaseline  = "baseline"
	VariantOptimised = "optimised"
)

// CheckVariant fails with ErrInvalidArgument for unknown variant names.
func CheckVariant(variant string) error {
	if variant != VariantBaseline && variant != VariantOptimised {
		return fmt.Errorf("%w: variant %q (want %s or %s)", ErrInvalidArgument, variant, VariantBaseline, VariantOptimised)
	}
	return nil
}

// GAM terms methods.
const (
	GAMMethodTerms  = "terms"
	GAMMethodMedian = "median"
)

// FilterVector drops the entries of y that fall inside the schema's row drops,
// keeping a response vector aligned with its filtered design matrix.
func (s ColumnSchema) FilterVector(y []float64) []float64 {
	if len(s.DropRows) == 0 {
		return y
	}
	out := make([]float64, 0, len(y))
	for i, v := range y {
		if s.KeepRow(i) {
			out = append(out, v)
		}
	}
	return out
}

// TimingComparison pairs baseline and optimised wall times of one task.
// OK is false when either variant failed; Speedup is then zero.
type TimingComparison struct {
	Task      TaskKey
	Baseline  float64
	Optimised float64
	Speedup   float64
	OK        bool
}

// gpRowsSuffix captures the sample row count embedded in GP output names.
var gpRowsSuffix = regexp.MustCompile(`_(\d+)_w_o_carb\.dat$`)

// RowsFromGPName extracts N from a GP output file name, or -1 if absent.
func RowsFromGPName(path string) int {
	m := gpRowsSuffix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

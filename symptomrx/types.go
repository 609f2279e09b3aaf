package symptomrx

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// DefaultSentinel replaces absent symptom values in the combined feature.
const DefaultSentinel = "null"

// Cell is a single optional value read from a dataset column.
type Cell struct {
	Value string
	Valid bool
}

// Present returns a populated cell.
func Present(v string) Cell { return Cell{Value: v, Valid: true} }

// Record is one training example: a symptom cell per declared slot and a medicine label.
type Record struct {
	Symptoms []Cell
	Label    string
}

// Dataset is the cleaned output of the loader.
type Dataset struct {
	Records []Record
	// SymptomColumns holds the resolved header name per slot, empty for slots missing from the source.
	SymptomColumns []string
	LabelColumn    string
	// Dropped counts rows discarded for lacking a label.
	Dropped int
}

// Labels returns the label of every record in order.
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.Records))
	for i, rec := range d.Records {
		out[i] = rec.Label
	}
	return out
}

// DatasetConfig describes where the training data lives and how its columns are named.
type DatasetConfig struct {
	Path           string   `json:"path" envconfig:"RX_DATASET_PATH"`
	Table          string   `json:"table" envconfig:"RX_DATASET_TABLE"`
	LabelColumn    string   `json:"labelColumn" envconfig:"RX_LABEL_COLUMN"`
	SymptomColumns []string `json:"symptomColumns" envconfig:"RX_SYMPTOM_COLUMNS"`
	Sentinel       string   `json:"sentinel" envconfig:"RX_SENTINEL"`
}

// DefaultSeed seeds runs that do not configure one.
const DefaultSeed Seed = 42

// SplitConfig controls the reproducible train/test split.
type SplitConfig struct {
	TestSize float64 `json:"testSize" envconfig:"RX_TEST_SIZE"`
	// Seed is a pointer so that an explicit 0 is distinguishable from unset.
	Seed *uint64 `json:"seed" envconfig:"RX_SEED"`
}

// SeedValue returns the configured seed or DefaultSeed.
func (c SplitConfig) SeedValue() Seed {
	if c.Seed == nil {
		return DefaultSeed
	}
	return Seed(*c.Seed)
}

// SearchConfig holds the cross-validation settings and the raw grid axes.
type SearchConfig struct {
	Folds       int       `json:"folds" envconfig:"RX_CV_FOLDS"`
	Workers     int       `json:"workers" envconfig:"RX_WORKERS"`
	NGramRanges []string  `json:"ngramRanges" envconfig:"RX_NGRAM_RANGES"`
	C           []float64 `json:"c" envconfig:"RX_C_VALUES"`
	Solvers     []string  `json:"solvers" envconfig:"RX_SOLVERS"`
}

// ClassifierConfig wraps solver limits and class-imbalance handling.
type ClassifierConfig struct {
	ClassWeight string  `json:"classWeight" envconfig:"RX_CLASS_WEIGHT"`
	MaxIter     int     `json:"maxIter" envconfig:"RX_MAX_ITER"`
	Tol         float64 `json:"tol" envconfig:"RX_TOL"`
}

// OutputConfig names the artifact and the optional metrics textfile.
type OutputConfig struct {
	ModelPath   string `json:"modelPath" envconfig:"RX_MODEL_PATH"`
	MetricsPath string `json:"metricsPath" envconfig:"RX_METRICS_PATH"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `json:"level" envconfig:"RX_LOG_LEVEL"`
	Format string `json:"format" envconfig:"RX_LOG_FORMAT"`
}

// Config aggregates runtime settings persisted to config.json.
type Config struct {
	Dataset    DatasetConfig    `json:"dataset"`
	Split      SplitConfig      `json:"split"`
	Search     SearchConfig     `json:"search"`
	Classifier ClassifierConfig `json:"classifier"`
	Output     OutputConfig     `json:"output"`
	Logging    LoggingConfig    `json:"logging"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates unset values with sensible defaults. Values that are
// set but out of range are left for Validate to report.
func (c *Config) ApplyDefaults() {
	if c.Dataset.Path == "" {
		c.Dataset.Path = "model/data.csv"
	}
	if c.Dataset.Table == "" {
		c.Dataset.Table = "records"
	}
	if c.Dataset.LabelColumn == "" {
		c.Dataset.LabelColumn = DefaultLabelColumn
	}
	if len(c.Dataset.SymptomColumns) == 0 {
		c.Dataset.SymptomColumns = []string{"symptom1", "symptom2", "symptom3"}
	}
	if c.Dataset.Sentinel == "" {
		c.Dataset.Sentinel = DefaultSentinel
	}
	if c.Split.TestSize == 0 {
		c.Split.TestSize = 0.2
	}
	if c.Split.Seed == nil {
		seed := uint64(DefaultSeed)
		c.Split.Seed = &seed
	}
	if c.Search.Folds == 0 {
		c.Search.Folds = 5
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = runtime.NumCPU()
	}
	if len(c.Search.NGramRanges) == 0 {
		c.Search.NGramRanges = []string{"1-1", "1-2"}
	}
	if len(c.Search.C) == 0 {
		c.Search.C = []float64{0.1, 1, 10}
	}
	if len(c.Search.Solvers) == 0 {
		c.Search.Solvers = []string{"liblinear", "saga"}
	}
	if c.Classifier.ClassWeight == "" {
		c.Classifier.ClassWeight = string(ClassWeightBalanced)
	}
	if c.Classifier.MaxIter == 0 {
		c.Classifier.MaxIter = 1000
	}
	if c.Classifier.Tol == 0 {
		c.Classifier.Tol = 1e-4
	}
	if c.Output.ModelPath == "" {
		c.Output.ModelPath = "model.bin"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate reports numeric settings outside their valid range.
func (c Config) Validate() error {
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		return fmt.Errorf("%w: split.testSize %g must be in (0, 1)", ErrInvalidParams, c.Split.TestSize)
	}
	if c.Search.Folds < 2 {
		return fmt.Errorf("%w: search.folds %d must be at least 2", ErrInvalidParams, c.Search.Folds)
	}
	if c.Classifier.MaxIter < 0 {
		return fmt.Errorf("%w: classifier.maxIter %d must not be negative", ErrInvalidParams, c.Classifier.MaxIter)
	}
	if c.Classifier.Tol < 0 {
		return fmt.Errorf("%w: classifier.tol %g must not be negative", ErrInvalidParams, c.Classifier.Tol)
	}
	return nil
}

// Grid validates the configured axes and returns the search grid.
func (c Config) Grid() (Grid, error) {
	ngrams := make([]NGramRange, 0, len(c.Search.NGramRanges))
	for _, raw := range c.Search.NGramRanges {
		r, err := ParseNGramRange(raw)
		if err != nil {
			return Grid{}, err
		}
		ngrams = append(ngrams, r)
	}
	solvers := make([]Solver, 0, len(c.Search.Solvers))
	for _, raw := range c.Search.Solvers {
		s, err := ParseSolver(raw)
		if err != nil {
			return Grid{}, err
		}
		solvers = append(solvers, s)
	}
	return NewGrid(ngrams, c.Search.C, solvers)
}

// ClassifierOptions converts the classifier section into fit options.
func (c Config) ClassifierOptions() (ClassifierOptions, error) {
	weighting, err := ParseClassWeighting(c.Classifier.ClassWeight)
	if err != nil {
		return ClassifierOptions{}, err
	}
	return ClassifierOptions{
		ClassWeight: weighting,
		MaxIter:     c.Classifier.MaxIter,
		Tol:         c.Classifier.Tol,
	}, nil
}

// DatasetOptions converts the dataset section into loader options.
func (c Config) DatasetOptions() DatasetOptions {
	return DatasetOptions{
		LabelColumn:    c.Dataset.LabelColumn,
		SymptomColumns: cloneStrings(c.Dataset.SymptomColumns),
		Table:          c.Dataset.Table,
	}
}

package symptomrx

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trainer orchestrates one batch training run: load, combine, split, search,
// evaluate and persist.
type Trainer struct {
	cfgMu sync.RWMutex
	cfg   Config

	runID   string
	metrics *Metrics
	onFit   func()

	logger *zap.Logger
}

// RunResult describes a completed run.
type RunResult struct {
	RunID         string
	Dataset       *Dataset
	TrainSize     int
	TestSize      int
	Search        *SearchResult
	Report        Report
	ModelPath     string
	ArtifactBytes int64
	Duration      time.Duration
}

// NewTrainer constructs a trainer with the given configuration. A nil logger
// discards output.
func NewTrainer(cfg Config, logger *zap.Logger) *Trainer {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &Trainer{
		cfg:     cfg,
		runID:   runID,
		metrics: NewMetrics(),
		logger:  logger.With(zap.String("run_id", runID)),
	}
}

// RunID identifies this trainer's run in logs and in the artifact.
func (t *Trainer) RunID() string { return t.runID }

// Metrics returns the run's collectors.
func (t *Trainer) Metrics() *Metrics { return t.metrics }

// Config returns a copy of the current configuration.
func (t *Trainer) Config() Config {
	t.cfgMu.RLock()
	defer t.cfgMu.RUnlock()
	return t.cfg.Clone()
}

// UpdateConfig replaces the configuration used by the next Run.
func (t *Trainer) UpdateConfig(cfg Config) {
	cfg.ApplyDefaults()
	t.cfgMu.Lock()
	t.cfg = cfg
	t.cfgMu.Unlock()
}

// OnFit registers a callback invoked after every fold fit. It may be called concurrently.
func (t *Trainer) OnFit(fn func()) { t.onFit = fn }

// TotalFits returns the number of cross-validation fits Run performs, i.e. the
// number of OnFit calls. The final refit is not counted.
func (t *Trainer) TotalFits() (int, error) {
	cfg := t.Config()
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return 0, err
	}
	return FoldFits(grid, cfg.Search.Folds), nil
}

// Run executes the training job and writes the artifact to the configured model path.
func (t *Trainer) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	cfg := t.Config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	grid, err := cfg.Grid()
	if err != nil {
		return nil, fmt.Errorf("search grid: %w", err)
	}
	clfOpts, err := cfg.ClassifierOptions()
	if err != nil {
		return nil, fmt.Errorf("classifier options: %w", err)
	}

	ds, err := LoadDataset(ctx, cfg.Dataset.Path, cfg.DatasetOptions())
	if err != nil {
		return nil, err
	}
	t.metrics.SetDatasetRows("loaded", len(ds.Records))
	t.metrics.SetDatasetRows("dropped", ds.Dropped)
	t.logger.Info("dataset loaded",
		zap.String("path", cfg.Dataset.Path),
		zap.String("rows", humanize.Comma(int64(len(ds.Records)))),
		zap.Int("dropped", ds.Dropped),
		zap.String("label_column", ds.LabelColumn),
	)
	for i, name := range ds.SymptomColumns {
		if name == "" {
			t.logger.Warn("symptom column missing, treated as absent",
				zap.String("column", cfg.Dataset.SymptomColumns[i]))
		}
	}

	docs := CombineAll(ds.Records, cfg.Dataset.Sentinel)
	labels := ds.Labels()
	trainIdx, testIdx, err := Split(len(docs), cfg.Split.TestSize, cfg.Split.SeedValue())
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	t.metrics.SetDatasetRows("train", len(trainIdx))
	t.metrics.SetDatasetRows("test", len(testIdx))
	t.logger.Info("dataset split", zap.Int("train", len(trainIdx)), zap.Int("test", len(testIdx)))

	t.logger.Info("grid search started",
		zap.Int("candidates", grid.Len()),
		zap.Int("folds", cfg.Search.Folds),
		zap.Int("workers", cfg.Search.Workers),
	)
	search, err := Search(ctx, pick(docs, trainIdx), pick(labels, trainIdx), grid, SearchOptions{
		Folds:      cfg.Search.Folds,
		Workers:    cfg.Search.Workers,
		Seed:       cfg.Split.SeedValue(),
		Classifier: clfOpts,
		Logger:     t.logger,
		Metrics:    t.metrics,
		OnFit:      t.onFit,
	})
	if err != nil {
		return nil, err
	}
	pipe := search.Pipeline
	pipe.Features = FeatureSpec{
		Sentinel:       cfg.Dataset.Sentinel,
		SymptomColumns: cloneStrings(cfg.Dataset.SymptomColumns),
	}

	report := Evaluate(pipe, pick(docs, testIdx), pick(labels, testIdx))
	t.metrics.ObserveReport(report)
	t.logger.Info("model evaluated",
		zap.Stringer("params", search.Best),
		zap.Float64("accuracy", report.Accuracy),
		zap.Float64("macro_f1", report.MacroAvg.F1),
	)

	artifact := &Artifact{
		Version:   ArtifactVersion,
		RunID:     t.runID,
		CreatedAt: time.Now().UTC(),
		Pipeline:  pipe,
	}
	if err := SaveArtifact(cfg.Output.ModelPath, artifact); err != nil {
		return nil, err
	}
	var size int64
	if info, err := os.Stat(cfg.Output.ModelPath); err == nil {
		size = info.Size()
	}
	t.logger.Info("model saved",
		zap.String("path", cfg.Output.ModelPath),
		zap.String("size", humanize.Bytes(uint64(size))),
		zap.Int("vocabulary", pipe.Vocabulary.Size()),
	)

	t.metrics.MarkCompleted(time.Now())
	if err := t.metrics.WriteTextfile(cfg.Output.MetricsPath); err != nil {
		t.logger.Warn("write metrics textfile", zap.String("path", cfg.Output.MetricsPath), zap.Error(err))
	}

	return &RunResult{
		RunID:         t.runID,
		Dataset:       ds,
		TrainSize:     len(trainIdx),
		TestSize:      len(testIdx),
		Search:        search,
		Report:        report,
		ModelPath:     cfg.Output.ModelPath,
		ArtifactBytes: size,
		Duration:      time.Since(started),
	}, nil
}

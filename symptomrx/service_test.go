package symptomrx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(t *testing.T, dataPath string) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Dataset: DatasetConfig{Path: dataPath},
		Search: SearchConfig{
			Folds:       5,
			Workers:     4,
			NGramRanges: []string{"1-1", "1-2"},
			C:           []float64{1, 10},
			Solvers:     []string{"liblinear", "saga"},
		},
		Output: OutputConfig{
			ModelPath:   filepath.Join(dir, "model.bin"),
			MetricsPath: filepath.Join(dir, "symptomrx.prom"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestTrainerEndToEnd(t *testing.T) {
	rows := syntheticRows(100)
	path := writeCSV(t, "data.csv", rows)
	cfg := testConfig(t, path)

	core, logs := observer.New(zap.InfoLevel)
	trainer := NewTrainer(cfg, zap.New(core))
	total, err := trainer.TotalFits()
	require.NoError(t, err)
	assert.Equal(t, 40, total)

	res, err := trainer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, trainer.RunID(), res.RunID)
	assert.Equal(t, 80, res.TrainSize)
	assert.Equal(t, 20, res.TestSize)
	assert.GreaterOrEqual(t, res.Report.Accuracy, 0.0)
	assert.LessOrEqual(t, res.Report.Accuracy, 1.0)
	assert.GreaterOrEqual(t, res.Report.Accuracy, 0.9)
	require.Len(t, res.Report.Classes, 5)
	for i, cm := range res.Report.Classes {
		assert.Equal(t, medicines[i], cm.Label)
	}
	assert.Positive(t, res.ArtifactBytes)

	a, err := LoadArtifact(cfg.Output.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, a.RunID)
	assert.Equal(t, cfg.Dataset.SymptomColumns, a.Pipeline.Features.SymptomColumns)
	docs, _ := splitRows(rows)
	for _, doc := range docs[:10] {
		assert.Equal(t, res.Search.Pipeline.Predict(doc), a.Pipeline.Predict(doc))
	}

	_, err = os.Stat(cfg.Output.MetricsPath)
	assert.NoError(t, err)
	for _, entry := range logs.All() {
		assert.Equal(t, res.RunID, entry.ContextMap()["run_id"], entry.Message)
	}
	assert.Equal(t, 1, logs.FilterMessage("model saved").Len())
}

func TestTrainerIsReproducible(t *testing.T) {
	path := writeCSV(t, "data.csv", syntheticRows(60))
	cfg := testConfig(t, path)
	cfg.Search.Solvers = []string{"saga"}

	first, err := NewTrainer(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	cfg.Search.Workers = 1
	second, err := NewTrainer(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Search.Best, second.Search.Best)
	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.Search.Pipeline.Classifier.Weights, second.Search.Pipeline.Classifier.Weights)
}

func TestTrainerSingletonLabel(t *testing.T) {
	rows := syntheticRows(60)
	rows = append(rows, []string{"hiccups", "", "", "Baclofen"})
	path := writeCSV(t, "data.csv", rows)

	res, err := NewTrainer(testConfig(t, path), nil).Run(context.Background())
	require.NoError(t, err)

	var labels []string
	for _, cm := range res.Report.Classes {
		labels = append(labels, cm.Label)
	}
	assert.Contains(t, labels, "Baclofen")
	assert.Len(t, labels, 6)
}

func TestTrainerAllSymptomsAbsent(t *testing.T) {
	rows := [][]string{{"medicine"}}
	for i := 0; i < 50; i++ {
		rows = append(rows, []string{medicines[i%len(medicines)]})
	}
	path := writeCSV(t, "data.csv", rows)

	ds, err := LoadDataset(context.Background(), path, DatasetOptions{})
	require.NoError(t, err)
	for _, doc := range CombineAll(ds.Records, DefaultSentinel) {
		assert.Equal(t, "null null null", doc)
	}

	res, err := NewTrainer(testConfig(t, path), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Search.Pipeline.Vocabulary.Size()-countBigrams(res.Search.Pipeline.Vocabulary))
	assert.GreaterOrEqual(t, res.Report.Accuracy, 0.0)
	assert.LessOrEqual(t, res.Report.Accuracy, 1.0)
}

func TestTrainerFailures(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.csv"))
		_, err := NewTrainer(cfg, nil).Run(context.Background())
		var loadErr *DatasetLoadError
		assert.ErrorAs(t, err, &loadErr)
	})
	t.Run("unwritable model path", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, "data.csv", syntheticRows(30)))
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		cfg.Output.ModelPath = filepath.Join(blocker, "model.bin")
		_, err := NewTrainer(cfg, nil).Run(context.Background())
		var perr *PersistenceError
		assert.ErrorAs(t, err, &perr)
	})
	t.Run("invalid grid", func(t *testing.T) {
		cfg := testConfig(t, "unused.csv")
		cfg.Search.C = []float64{-1}
		_, err := NewTrainer(cfg, nil).Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
	t.Run("test size out of range", func(t *testing.T) {
		cfg := testConfig(t, "unused.csv")
		cfg.Split.TestSize = 1.5
		trainer := NewTrainer(cfg, nil)
		assert.Equal(t, 1.5, trainer.Config().Split.TestSize)
		_, err := trainer.TotalFits()
		assert.ErrorIs(t, err, ErrInvalidParams)
		_, err = trainer.Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func countBigrams(v *Vocabulary) int {
	n := 0
	for term := range v.Terms {
		for _, r := range term {
			if r == ' ' {
				n++
				break
			}
		}
	}
	return n
}

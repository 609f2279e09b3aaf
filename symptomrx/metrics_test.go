package symptomrx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveFit(20*time.Millisecond, nil)
	m.ObserveFit(5*time.Millisecond, errors.New("boom"))
	m.ObserveFit(5*time.Millisecond, nil)
	m.SetCandidateScore(Params{NGram: Unigrams, C: 0.1, Solver: SolverSAGA}, 0.75)
	m.SetDatasetRows("loaded", 100)
	m.ObserveReport(Report{Accuracy: 0.9, Classes: []ClassMetrics{{Label: "Ibuprofen", F1: 0.8}}})

	path := filepath.Join(t.TempDir(), "symptomrx.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	for _, want := range []string{
		`symptomrx_fits_total{status="success"} 2`,
		`symptomrx_fits_total{status="error"} 1`,
		`symptomrx_fit_duration_seconds_count 3`,
		`symptomrx_cv_mean_accuracy{c="0.1",ngram="(1, 1)",solver="saga"} 0.75`,
		`symptomrx_dataset_rows{stage="loaded"} 100`,
		`symptomrx_test_accuracy 0.9`,
		`symptomrx_test_f1{class="Ibuprofen"} 0.8`,
	} {
		assert.True(t, strings.Contains(text, want), want)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFit(time.Second, nil)
		m.SetCandidateScore(Params{}, 1)
		m.SetBestScore(1)
		m.SetDatasetRows("train", 1)
		m.ObserveReport(Report{})
		m.MarkCompleted(time.Now())
	})
	assert.NoError(t, m.WriteTextfile("ignored"))
	assert.Nil(t, m.Registry())
}

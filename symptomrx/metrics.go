package symptomrx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects run statistics on a private registry. A batch job has no
// scrape endpoint, so the registry is written to a node_exporter textfile at
// the end of the run. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	fits         *prometheus.CounterVec
	fitDuration  prometheus.Histogram
	cvScore      *prometheus.GaugeVec
	bestScore    prometheus.Gauge
	testAccuracy prometheus.Gauge
	classF1      *prometheus.GaugeVec
	datasetRows  *prometheus.GaugeVec
	lastRun      prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symptomrx_fits_total",
				Help: "Total number of pipeline fits",
			},
			[]string{"status"}, // status: success|error
		),
		fitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "symptomrx_fit_duration_seconds",
				Help:    "Pipeline fit duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		cvScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "symptomrx_cv_mean_accuracy",
				Help: "Mean cross-validated accuracy per grid candidate",
			},
			[]string{"ngram", "c", "solver"},
		),
		bestScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "symptomrx_cv_best_accuracy",
				Help: "Mean cross-validated accuracy of the selected candidate",
			},
		),
		testAccuracy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "symptomrx_test_accuracy",
				Help: "Accuracy of the refit model on the held-out split",
			},
		),
		classF1: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "symptomrx_test_f1",
				Help: "Per-class F1 score on the held-out split",
			},
			[]string{"class"},
		),
		datasetRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "symptomrx_dataset_rows",
				Help: "Number of rows per pipeline stage",
			},
			[]string{"stage"}, // stage: loaded|dropped|train|test
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "symptomrx_last_run_timestamp",
				Help: "Unix timestamp of the last completed training run",
			},
		),
	}
	m.registry.MustRegister(
		m.fits,
		m.fitDuration,
		m.cvScore,
		m.bestScore,
		m.testAccuracy,
		m.classF1,
		m.datasetRows,
		m.lastRun,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFit records one fit attempt.
func (m *Metrics) ObserveFit(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.fits.WithLabelValues(status).Inc()
	m.fitDuration.Observe(d.Seconds())
}

// SetCandidateScore records the mean fold accuracy of one candidate.
func (m *Metrics) SetCandidateScore(p Params, score float64) {
	if m == nil {
		return
	}
	m.cvScore.WithLabelValues(p.NGram.String(), formatC(p.C), string(p.Solver)).Set(score)
}

// SetBestScore records the winning mean fold accuracy.
func (m *Metrics) SetBestScore(score float64) {
	if m == nil {
		return
	}
	m.bestScore.Set(score)
}

// SetDatasetRows records the row count of a stage.
func (m *Metrics) SetDatasetRows(stage string, n int) {
	if m == nil {
		return
	}
	m.datasetRows.WithLabelValues(stage).Set(float64(n))
}

// ObserveReport records the held-out evaluation.
func (m *Metrics) ObserveReport(r Report) {
	if m == nil {
		return
	}
	m.testAccuracy.Set(r.Accuracy)
	for _, cm := range r.Classes {
		m.classF1.WithLabelValues(cm.Label).Set(cm.F1)
	}
}

// MarkCompleted stamps the completion time.
func (m *Metrics) MarkCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the text exposition format. The write
// is atomic so a concurrent collector never reads a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

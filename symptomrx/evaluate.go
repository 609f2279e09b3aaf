package symptomrx

import (
	"fmt"
	"sort"
	"strings"
)

// ClassMetrics holds precision, recall, F1 and support for one label or average.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarizes predictions against true labels.
type Report struct {
	Accuracy    float64
	Classes     []ClassMetrics
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Support     int
}

// Evaluate scores the pipeline on docs. The per-class table covers the union
// of the pipeline's classes, the true labels and the predicted labels.
func Evaluate(p *Pipeline, docs, labels []string) Report {
	return NewReport(labels, p.PredictBatch(docs), p.Classes())
}

// NewReport compares pred with truth. Extra labels (e.g. every class a model
// knows) may be supplied so they appear with zero support.
func NewReport(truth, pred []string, extra []string) Report {
	set := make(map[string]struct{})
	for _, group := range [][]string{extra, truth, pred} {
		for _, label := range group {
			set[label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(set))
	for label := range set {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	tp := make(map[string]int)
	predicted := make(map[string]int)
	actual := make(map[string]int)
	for i := range truth {
		actual[truth[i]]++
		predicted[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
		}
	}

	r := Report{
		Accuracy: accuracyScore(truth, pred),
		Classes:  make([]ClassMetrics, len(labels)),
		Support:  len(truth),
	}
	r.MacroAvg.Label = "macro avg"
	r.WeightedAvg.Label = "weighted avg"
	for i, label := range labels {
		cm := ClassMetrics{
			Label:     label,
			Precision: ratio(tp[label], predicted[label]),
			Recall:    ratio(tp[label], actual[label]),
			Support:   actual[label],
		}
		if sum := cm.Precision + cm.Recall; sum > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / sum
		}
		r.Classes[i] = cm

		r.MacroAvg.Precision += cm.Precision
		r.MacroAvg.Recall += cm.Recall
		r.MacroAvg.F1 += cm.F1
		w := float64(cm.Support)
		r.WeightedAvg.Precision += w * cm.Precision
		r.WeightedAvg.Recall += w * cm.Recall
		r.WeightedAvg.F1 += w * cm.F1
	}
	if k := float64(len(labels)); k > 0 {
		r.MacroAvg.Precision /= k
		r.MacroAvg.Recall /= k
		r.MacroAvg.F1 /= k
	}
	if n := float64(len(truth)); n > 0 {
		r.WeightedAvg.Precision /= n
		r.WeightedAvg.Recall /= n
		r.WeightedAvg.F1 /= n
	}
	r.MacroAvg.Support = len(truth)
	r.WeightedAvg.Support = len(truth)
	return r
}

// String renders the report as a fixed-width table with two decimals.
func (r Report) String() string {
	width := len(r.WeightedAvg.Label)
	for _, cm := range r.Classes {
		if len(cm.Label) > width {
			width = len(cm.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(cm ClassMetrics) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, cm.Label, cm.Precision, cm.Recall, cm.F1, cm.Support)
	}
	for _, cm := range r.Classes {
		row(cm)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

func accuracyScore(truth, pred []string) float64 {
	if len(truth) == 0 {
		return 0
	}
	var hits int
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

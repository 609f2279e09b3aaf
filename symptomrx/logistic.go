package symptomrx

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ClassifierOptions are fit settings that stay fixed across the grid.
type ClassifierOptions struct {
	ClassWeight ClassWeighting
	MaxIter     int
	Tol         float64
}

func (o ClassifierOptions) withDefaults() ClassifierOptions {
	if o.ClassWeight == "" {
		o.ClassWeight = ClassWeightBalanced
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 1000
	}
	if o.Tol <= 0 {
		o.Tol = 1e-4
	}
	return o
}

// Classifier is a one-vs-rest linear model. Classes are kept in lexical order,
// which is also the tie-break order of Predict.
type Classifier struct {
	Classes []string
	Weights [][]float64
	Bias    []float64
	Dim     int
}

// ClassScore pairs a label with a score.
type ClassScore struct {
	Label string
	Score float64
}

// FitClassifier trains one binary logistic model per class of y.
func FitClassifier(X []Vector, dim int, y []string, p Params, opts ClassifierOptions, rng *rand.Rand) (*Classifier, error) {
	if len(X) == 0 {
		return nil, ErrNoSamples
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%d vectors but %d labels", len(X), len(y))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	counts := make(map[string]int)
	for _, label := range y {
		counts[label]++
	}
	classes := make([]string, 0, len(counts))
	for label := range counts {
		classes = append(classes, label)
	}
	sort.Strings(classes)

	clf := &Classifier{
		Classes: classes,
		Weights: make([][]float64, len(classes)),
		Bias:    make([]float64, len(classes)),
		Dim:     dim,
	}
	if len(classes) == 1 {
		// Nothing to separate: the model always answers the only class it saw.
		clf.Weights[0] = make([]float64, dim)
		clf.Bias[0] = 1
		return clf, nil
	}

	sampleWeight := make([]float64, len(y))
	for i, label := range y {
		sampleWeight[i] = 1
		if opts.ClassWeight == ClassWeightBalanced {
			sampleWeight[i] = float64(len(y)) / (float64(len(classes)) * float64(counts[label]))
		}
	}

	for c, class := range classes {
		target := make([]float64, len(y))
		for i, label := range y {
			target[i] = -1
			if label == class {
				target[i] = 1
			}
		}
		prob := &binaryProblem{
			X:            X,
			Y:            target,
			S:            sampleWeight,
			Dim:          dim,
			C:            p.C,
			PenalizeBias: p.Solver == SolverLiblinear,
		}
		var (
			params []float64
			err    error
		)
		switch p.Solver {
		case SolverSAGA:
			params, err = fitSAGA(prob, opts, rng)
		default:
			params, err = fitBatch(prob, p.Solver, opts)
		}
		if err != nil {
			return nil, fmt.Errorf("fit class %q: %w", class, err)
		}
		if !allFinite(params) {
			return nil, fmt.Errorf("fit class %q: %w", class, ErrDiverged)
		}
		clf.Weights[c] = params[:dim]
		clf.Bias[c] = params[dim]
	}
	return clf, nil
}

// Decision returns the one-vs-rest score of every class, aligned with Classes.
func (c *Classifier) Decision(x Vector) []float64 {
	out := make([]float64, len(c.Classes))
	for k := range c.Classes {
		out[k] = x.Dot(c.Weights[k]) + c.Bias[k]
	}
	return out
}

// Predict returns the class with the highest decision score. Equal scores
// resolve to the lexically smallest label.
func (c *Classifier) Predict(x Vector) string {
	scores := c.Decision(x)
	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return c.Classes[best]
}

// Probabilities applies a sigmoid to each one-vs-rest score and normalizes them to sum to one.
func (c *Classifier) Probabilities(x Vector) []ClassScore {
	scores := c.Decision(x)
	probs := make([]float64, len(scores))
	for k, s := range scores {
		probs[k] = sigmoid(s)
	}
	if total := floats.Sum(probs); total > 0 {
		floats.Scale(1/total, probs)
	}
	out := make([]ClassScore, len(probs))
	for k, p := range probs {
		out[k] = ClassScore{Label: c.Classes[k], Score: p}
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logLoss is log(1+exp(-m)) computed without overflow.
func logLoss(m float64) float64 {
	if m > 0 {
		return math.Log1p(math.Exp(-m))
	}
	return -m + math.Log1p(math.Exp(m))
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

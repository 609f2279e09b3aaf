package symptomrx

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// NGramRange selects which word n-grams the vectorizer emits.
type NGramRange int

const (
	// Unigrams is the (1,1) range.
	Unigrams NGramRange = iota + 1
	// UnigramsBigrams is the (1,2) range.
	UnigramsBigrams
)

// ParseNGramRange accepts "1-1" / "1,1" / "(1, 1)" style ranges and the names "unigrams" / "bigrams".
func ParseNGramRange(raw string) (NGramRange, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "()[] ")
	s = strings.NewReplacer(" ", "", ",", "-", ":", "-").Replace(s)
	switch s {
	case "1-1", "unigrams", "unigram":
		return Unigrams, nil
	case "1-2", "bigrams", "unigrams+bigrams":
		return UnigramsBigrams, nil
	}
	return 0, fmt.Errorf("%w: unsupported n-gram range %q", ErrInvalidParams, raw)
}

// Valid reports whether r is a known variant.
func (r NGramRange) Valid() bool { return r == Unigrams || r == UnigramsBigrams }

// Bounds returns the inclusive minimum and maximum n.
func (r NGramRange) Bounds() (int, int) {
	if r == UnigramsBigrams {
		return 1, 2
	}
	return 1, 1
}

func (r NGramRange) String() string {
	lo, hi := r.Bounds()
	return fmt.Sprintf("(%d, %d)", lo, hi)
}

// Solver selects the optimizer used to fit each one-vs-rest model.
type Solver string

const (
	// SolverLiblinear regularizes the intercept like liblinear; minimized by nonlinear conjugate gradient.
	SolverLiblinear Solver = "liblinear"
	// SolverSAGA is stochastic average gradient with an L2 proximal step.
	SolverSAGA Solver = "saga"
	// SolverLBFGS is limited-memory BFGS with an unregularized intercept.
	SolverLBFGS Solver = "lbfgs"
)

// ParseSolver validates a solver name.
func ParseSolver(raw string) (Solver, error) {
	s := Solver(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unsupported solver %q", ErrInvalidParams, raw)
	}
	return s, nil
}

// Valid reports whether s is a known variant.
func (s Solver) Valid() bool {
	switch s {
	case SolverLiblinear, SolverSAGA, SolverLBFGS:
		return true
	}
	return false
}

// ClassWeighting controls the class-imbalance correction applied during fitting.
type ClassWeighting string

const (
	// ClassWeightBalanced weights each sample by n / (classes * count(class)).
	ClassWeightBalanced ClassWeighting = "balanced"
	// ClassWeightNone gives every sample weight 1.
	ClassWeightNone ClassWeighting = "none"
)

// ParseClassWeighting validates a weighting name; "on"/"off" are accepted as aliases.
func ParseClassWeighting(raw string) (ClassWeighting, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "balanced", "on", "true":
		return ClassWeightBalanced, nil
	case "none", "off", "false":
		return ClassWeightNone, nil
	}
	return "", fmt.Errorf("%w: unsupported class weighting %q", ErrInvalidParams, raw)
}

// Params is one point of the hyperparameter grid.
type Params struct {
	NGram  NGramRange
	C      float64
	Solver Solver
}

func (p Params) String() string {
	return fmt.Sprintf("ngram_range=%s C=%s solver=%s", p.NGram, formatC(p.C), p.Solver)
}

func formatC(c float64) string { return strconv.FormatFloat(c, 'g', -1, 64) }

// Validate rejects values that cannot be fit.
func (p Params) Validate() error {
	if !p.NGram.Valid() {
		return fmt.Errorf("%w: n-gram range %d", ErrInvalidParams, p.NGram)
	}
	if !(p.C > 0) || math.IsInf(p.C, 0) {
		return fmt.Errorf("%w: regularization strength must be positive and finite, got %v", ErrInvalidParams, p.C)
	}
	if !p.Solver.Valid() {
		return fmt.Errorf("%w: solver %q", ErrInvalidParams, p.Solver)
	}
	return nil
}

// Grid is a validated, ordered list of candidates.
type Grid struct {
	candidates []Params
}

// DefaultGrid returns n-gram {(1,1),(1,2)} x C {0.1,1,10} x solver {liblinear,saga}.
func DefaultGrid() Grid {
	g, _ := NewGrid(
		[]NGramRange{Unigrams, UnigramsBigrams},
		[]float64{0.1, 1, 10},
		[]Solver{SolverLiblinear, SolverSAGA},
	)
	return g
}

// NewGrid enumerates C, then solver, then n-gram range, with the last axis varying fastest.
// Every axis must be non-empty and every value valid.
func NewGrid(ngrams []NGramRange, cs []float64, solvers []Solver) (Grid, error) {
	if len(ngrams) == 0 || len(cs) == 0 || len(solvers) == 0 {
		return Grid{}, fmt.Errorf("%w: every grid axis needs at least one value", ErrInvalidParams)
	}
	out := make([]Params, 0, len(ngrams)*len(cs)*len(solvers))
	for _, c := range cs {
		for _, s := range solvers {
			for _, r := range ngrams {
				p := Params{NGram: r, C: c, Solver: s}
				if err := p.Validate(); err != nil {
					return Grid{}, err
				}
				out = append(out, p)
			}
		}
	}
	return Grid{candidates: out}, nil
}

// Candidates returns a copy of the grid in enumeration order.
func (g Grid) Candidates() []Params {
	out := make([]Params, len(g.candidates))
	copy(out, g.candidates)
	return out
}

// Len returns the number of candidates.
func (g Grid) Len() int { return len(g.candidates) }

// Seed is the single source of randomness for a run. Every consumer derives
// its own stream so results do not depend on call order or scheduling.
type Seed uint64

// Stream returns an independent generator for the given stream identifiers.
func (s Seed) Stream(ids ...uint64) *rand.Rand {
	h := uint64(0x9e3779b97f4a7c15)
	for _, id := range ids {
		h ^= id + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	}
	return rand.New(rand.NewPCG(uint64(s), h))
}

const (
	streamSplit uint64 = iota + 1
	streamFolds
	streamSolver
)

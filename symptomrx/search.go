package symptomrx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// SearchOptions configures a grid search.
type SearchOptions struct {
	Folds      int
	Workers    int
	Seed       Seed
	Classifier ClassifierOptions
	Logger     *zap.Logger
	Metrics    *Metrics
	// OnFit is called after every fold fit. It is called from worker
	// goroutines and must be safe for concurrent use.
	OnFit func()
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.Folds == 0 {
		o.Folds = 5
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// CandidateResult is the cross-validation outcome of one grid point. A failed
// candidate keeps its error and scores -Inf.
type CandidateResult struct {
	Params     Params
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Err        error
}

// SearchResult holds every candidate outcome and the winner refit on all samples.
type SearchResult struct {
	Candidates []CandidateResult
	BestIndex  int
	Best       Params
	BestScore  float64
	Pipeline   *Pipeline
}

// refitStream distinguishes the final refit from the fold fits of a candidate.
const refitStream = math.MaxUint64

// FoldFits returns how many fold fits Search performs for grid, excluding the refit.
func FoldFits(grid Grid, folds int) int { return grid.Len() * folds }

// Search cross-validates every candidate of grid on docs and labels, selects
// the highest mean fold accuracy (ties go to the earlier candidate) and refits
// it on all samples. Fold fits run in parallel, bounded by Workers.
func Search(ctx context.Context, docs, labels []string, grid Grid, opts SearchOptions) (*SearchResult, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("%d documents but %d labels", len(docs), len(labels))
	}
	if grid.Len() == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidParams)
	}
	opts = opts.withDefaults()
	logger := opts.Logger

	folds, err := KFold(len(docs), opts.Folds, opts.Seed.Stream(streamFolds))
	if err != nil {
		return nil, &SearchExhaustedError{Candidates: grid.Len(), Errs: []error{err}}
	}

	candidates := grid.Candidates()
	k := len(folds)
	scores := make([][]float64, len(candidates))
	foldErrs := make([][]error, len(candidates))
	for ci := range candidates {
		scores[ci] = make([]float64, k)
		foldErrs[ci] = make([]error, k)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for ci, params := range candidates {
		for fi, fold := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				rng := opts.Seed.Stream(streamSolver, uint64(ci), uint64(fi))
				pipe, err := FitPipeline(pick(docs, fold.Train), pick(labels, fold.Train), params, opts.Classifier, rng)
				opts.Metrics.ObserveFit(time.Since(start), err)
				if err != nil {
					foldErrs[ci][fi] = fmt.Errorf("%s fold %d: %w", params, fi, err)
				} else {
					scores[ci][fi] = accuracyScore(pick(labels, fold.Test), pipe.PredictBatch(pick(docs, fold.Test)))
				}
				if opts.OnFit != nil {
					opts.OnFit()
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &SearchResult{
		Candidates: make([]CandidateResult, len(candidates)),
		BestIndex:  -1,
		BestScore:  math.Inf(-1),
	}
	var failures []error
	for ci, params := range candidates {
		cr := CandidateResult{Params: params, FoldScores: scores[ci]}
		if err := errors.Join(foldErrs[ci]...); err != nil {
			cr.Err = err
			cr.MeanScore = math.Inf(-1)
			cr.StdScore = math.NaN()
			failures = append(failures, err)
			logger.Warn("candidate failed", zap.Stringer("params", params), zap.Error(err))
		} else {
			cr.MeanScore = stat.Mean(scores[ci], nil)
			cr.StdScore = stat.PopStdDev(scores[ci], nil)
			logger.Debug("candidate scored",
				zap.Stringer("params", params),
				zap.Float64("mean", cr.MeanScore),
				zap.Float64("std", cr.StdScore),
			)
			opts.Metrics.SetCandidateScore(params, cr.MeanScore)
		}
		result.Candidates[ci] = cr
		if cr.MeanScore > result.BestScore {
			result.BestIndex = ci
			result.BestScore = cr.MeanScore
		}
	}
	if result.BestIndex < 0 {
		return nil, &SearchExhaustedError{Candidates: len(candidates), Errs: failures}
	}
	result.Best = candidates[result.BestIndex]
	opts.Metrics.SetBestScore(result.BestScore)

	start := time.Now()
	rng := opts.Seed.Stream(streamSolver, uint64(result.BestIndex), refitStream)
	pipe, err := FitPipeline(docs, labels, result.Best, opts.Classifier, rng)
	opts.Metrics.ObserveFit(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("refit %s: %w", result.Best, err)
	}
	result.Pipeline = pipe
	logger.Info("search complete",
		zap.Stringer("best", result.Best),
		zap.Float64("cv_accuracy", result.BestScore),
		zap.Int("candidates", len(candidates)),
		zap.Int("failed", len(failures)),
	)
	return result, nil
}

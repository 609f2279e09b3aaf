package symptomrx

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyVocabulary is returned when fitting finds no usable terms,
	// e.g. every document consists of stop words or single characters.
	ErrEmptyVocabulary = errors.New("empty vocabulary")
	// ErrNoSamples is returned when a fit or split receives no records.
	ErrNoSamples = errors.New("no samples")
	// ErrInvalidParams marks hyperparameter values rejected at grid construction.
	ErrInvalidParams = errors.New("invalid hyperparameters")
	// ErrDiverged is returned when a solver produces non-finite weights.
	ErrDiverged = errors.New("solver diverged")
)

// DatasetLoadError reports a dataset that could not be read or lacks a label column.
type DatasetLoadError struct {
	Path string
	Err  error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetLoadError) Unwrap() error { return e.Err }

// SearchExhaustedError is returned when no grid candidate could be fit.
type SearchExhaustedError struct {
	Candidates int
	Errs       []error
}

func (e *SearchExhaustedError) Error() string {
	if len(e.Errs) == 0 {
		return fmt.Sprintf("search exhausted: none of %d candidates could be fit", e.Candidates)
	}
	return fmt.Sprintf("search exhausted: none of %d candidates could be fit: %v", e.Candidates, e.Errs[0])
}

func (e *SearchExhaustedError) Unwrap() []error { return e.Errs }

// PersistenceError reports a failure to write or read a model artifact.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s artifact: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s artifact %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

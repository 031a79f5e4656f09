package rag

import "fmt"

// FatalError marks a pipeline-fatal failure (primary-path vector-search
// failure, or an invariant violation) as distinct from a localized,
// fallback-absorbed component failure. Orchestrate surfaces these to the
// caller instead of masking them with fabricated empty results.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("pipeline-fatal error at stage %q: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func newFatalError(stage string, err error) *FatalError {
	return &FatalError{Stage: stage, Err: err}
}

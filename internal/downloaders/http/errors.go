package fetchhttp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tanq16/fetcher/internal/utils"
)

// ChunkError reports every chunk of a tier whose fetch failed.
type ChunkError struct {
	Failed []utils.ChunkResult
}

func (e *ChunkError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, res := range e.Failed {
		parts = append(parts, fmt.Sprintf("chunk %d: %v", res.Index, res.Err))
	}
	return fmt.Sprintf("%d chunk(s) failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

func (e *ChunkError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, res := range e.Failed {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// AssemblyError is a local filesystem failure. It will recur on every tier,
// so the pipeline stops on it.
type AssemblyError struct {
	Path string
	Op   string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("error %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

func IsDiskFailure(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}

// RetryError is returned once every single-stream attempt has failed.
// It matches utils.ErrRetriesExhausted and unwraps to the last attempt's error.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("download failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryError) Is(target error) bool {
	return target == utils.ErrRetriesExhausted
}

func (e *RetryError) Unwrap() error {
	return e.Last
}

package cashflow

import (
	"fmt"
	"time"

	"github.com/cashflow/backend/internal/domain/shared"
)

// RangeError reports an unusable date range.
type RangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *RangeError) Error() string {
	if e.Reason != "" {
		return "date range: " + e.Reason
	}
	return fmt.Sprintf("date range: start %s is after end %s",
		e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
}

func (e *RangeError) Unwrap() error {
	return shared.ErrInvalidDateRange
}

// LoadError is returned by loaders when the record source cannot be read.
// It is fatal for the request, not for the process.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load records from %s: %v", e.Source, e.Err)
}

// Unwrap returns both the cause and the domain sentinel so callers can match either.
func (e *LoadError) Unwrap() []error {
	return []error{e.Err, shared.ErrSourceUnavailable}
}

// NewLoadError wraps err as a LoadError for source.
func NewLoadError(source string, err error) *LoadError {
	return &LoadError{Source: source, Err: err}
}

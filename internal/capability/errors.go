package capability

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the reasoning capability could not be reached
// at the transport level. Per the orchestrator's propagation policy this
// is fatal only for the very first call of a run; everywhere else stages
// recover it locally.
var ErrUnavailable = errors.New("reasoning capability unavailable")

// ExtractionError indicates the capability responded but its output
// could not be coerced into the requested schema. It is always recovered
// locally by the calling stage, never fatal.
type ExtractionError struct {
	// Tool is the extraction tool whose schema was violated.
	Tool string
	// Raw is a truncated excerpt of the offending output.
	Raw string
	// Err is the underlying parse or validation error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("extract %s: %v (output: %s)", e.Tool, e.Err, e.Raw)
	}
	return fmt.Sprintf("extract %s: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package pipeline

import "fmt"

// Severity classifies a stage failure. The queue consumer and the run
// journal act on it: fatal failures abort the run and may be
// redelivered, degraded failures skip dependent steps, isolated
// failures affect a single recipient branch only.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityDegraded
	SeverityIsolated
)

// String returns a short label for logs
func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityDegraded:
		return "degraded"
	case SeverityIsolated:
		return "isolated"
	}
	return "unknown"
}

// StageError carries the stage name and severity of a pipeline failure
type StageError struct {
	Stage    string
	Severity Severity
	Err      error
}

// Error implements error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Severity, e.Err)
}

// Unwrap exposes the wrapped cause
func (e *StageError) Unwrap() error {
	return e.Err
}

func fatal(stage string, err error) *StageError {
	return &StageError{Stage: stage, Severity: SeverityFatal, Err: err}
}

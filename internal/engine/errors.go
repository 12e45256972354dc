package engine

import "fmt"

// ValidationError reports a contract violation in engine input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AlreadyCompletedError is returned when a task instance is completed twice.
type AlreadyCompletedError struct {
	TaskID string
}

func (e AlreadyCompletedError) Error() string {
	return fmt.Sprintf("task %s is already completed", e.TaskID)
}

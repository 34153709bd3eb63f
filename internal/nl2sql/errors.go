package nl2sql

import (
	"fmt"
	"strings"
)

// ExecutionError reports an engine failure that was not followed by a
// repaired attempt.
type ExecutionError struct {
	Attempt int
	SQL     string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ValidationError is returned after the repaired query also failed. Its
// message lists the issues reported by the validation verdict.
type ValidationError struct {
	SQL     string
	Verdict Verdict
	Err     error
}

func (e *ValidationError) Error() string {
	issues := e.Verdict.Issues
	if len(issues) == 0 && e.Err != nil {
		issues = []string{e.Err.Error()}
	}
	return "Validation failed: " + strings.Join(issues, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

package ruleset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotLoaded is returned by Manager operations that need a rule set before
// one has been loaded.
var ErrNotLoaded = errors.New("no rule set loaded")

// LoadError represents a failure to read a rule file or directory.
type LoadError struct {
	// FilePath is the path that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rule file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rule file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError represents a YAML decoding failure.
type ParseError struct {
	FilePath string
	Line     int
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %q at line %d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents an invalid rule file or rule. A rule whose query
// does not compile is reported here with the query error as Cause.
type ValidationError struct {
	// FilePath is the rule file, when known
	FilePath string

	// Line is the line of the rule in FilePath, when known
	Line int

	// Rule is the rule name, or "rules[i]" for an unnamed rule
	Rule string

	// Field is the offending attribute (e.g. "query", "mode")
	Field string

	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := []string{"validation error"}

	switch {
	case e.FilePath != "" && e.Line > 0:
		parts = append(parts, fmt.Sprintf("in %q at line %d", e.FilePath, e.Line))
	case e.FilePath != "":
		parts = append(parts, fmt.Sprintf("in %q", e.FilePath))
	}
	if e.Rule != "" {
		parts = append(parts, fmt.Sprintf("in rule %q", e.Rule))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("at %s", e.Field))
	}

	msg := strings.Join(parts, " ") + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// MultiError collects several validation errors from one load.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// errorOrNil returns nil for an empty collection, the single error when there
// is only one, and e otherwise.
func (e *MultiError) errorOrNil() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}

// IsLoadError reports whether err wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

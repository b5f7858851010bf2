package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"querydict-hq/querydict/pkg/query/ast"
)

// ErrorType categorizes the type of error encountered while building or matching a query.
type ErrorType string

const (
	ErrorTypeArgument      ErrorType = "argument"      // Invalid constructor input
	ErrorTypeSyntax        ErrorType = "syntax"        // Query string could not be parsed
	ErrorTypeStructural    ErrorType = "structural"    // Tree violates an accepted-language invariant
	ErrorTypeMatchConfig   ErrorType = "match_config"  // Per-call precondition unmet
	ErrorTypeUnimplemented ErrorType = "unimplemented" // Known capability gap reached
	ErrorTypeInternal      ErrorType = "internal"      // Invariant violated, should be unreachable
)

// Sentinel errors, one per ErrorType, for use with errors.Is.
var (
	ErrArgument      = stderrors.New("argument error")
	ErrSyntax        = stderrors.New("syntax error")
	ErrStructural    = stderrors.New("structural query error")
	ErrMatchConfig   = stderrors.New("match configuration error")
	ErrUnimplemented = stderrors.New("not implemented")
	ErrInternal      = stderrors.New("internal error")
)

var sentinels = map[ErrorType]error{
	ErrorTypeArgument:      ErrArgument,
	ErrorTypeSyntax:        ErrSyntax,
	ErrorTypeStructural:    ErrStructural,
	ErrorTypeMatchConfig:   ErrMatchConfig,
	ErrorTypeUnimplemented: ErrUnimplemented,
	ErrorTypeInternal:      ErrInternal,
}

// Error represents a query error with position, context, and suggestions.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Position   ast.Position // Location in the query string (optional)
	Context    string       // Query line with a caret under Position (optional)
	Suggestion string       // Suggested fix (optional)
	Cause      error        // Underlying error (optional)
}

// New creates an error of the given type with a formatted message.
func New(errType ErrorType, pos ast.Position, format string, args ...interface{}) *Error {
	return &Error{
		Type:     errType,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
	}
}

// Argument creates an argument error without a position.
func Argument(format string, args ...interface{}) *Error {
	return New(ErrorTypeArgument, ast.Position{}, format, args...)
}

// Internal creates an internal error at the given position.
func Internal(pos ast.Position, format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, pos, format, args...)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Position.IsValid() {
		if e.Position.Line > 1 {
			sb.WriteString(fmt.Sprintf("\n  --> line %d, column %d", e.Position.Line, e.Position.Column))
		} else {
			sb.WriteString(fmt.Sprintf("\n  --> column %d", e.Position.Column))
		}
	}

	if e.Context != "" {
		sb.WriteString("\n  |\n")
		sb.WriteString(strings.TrimRight(e.Context, "\n"))
		sb.WriteString("\n  |")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's type.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Type]
	return ok && target == sentinel
}

// WithSuggestion sets the suggestion and returns the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// WithCause sets the underlying cause and returns the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var qe *Error
	if stderrors.As(err, &qe) {
		return qe.Type
	}
	return ""
}

// IsQueryError reports whether err means the query itself is invalid
// (a syntax or structural error).
func IsQueryError(err error) bool {
	return stderrors.Is(err, ErrSyntax) || stderrors.Is(err, ErrStructural)
}

// IsInternal reports whether err is an internal invariant violation.
func IsInternal(err error) bool {
	return stderrors.Is(err, ErrInternal)
}

// ErrorList represents a collection of errors found in a single query.
// It allows accumulating multiple errors instead of failing on the first error.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, pos ast.Position) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Position: pos,
	})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, pos ast.Position, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Message:    message,
		Position:   pos,
		Suggestion: suggestion,
	})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// First returns the first error, or nil if the list is empty.
func (el *ErrorList) First() *Error {
	if !el.HasErrors() {
		return nil
	}
	return el.Errors[0]
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if el.Count() == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("\nError %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// Unwrap exposes every error in the list to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	errs := make([]error, len(el.Errors))
	for i, err := range el.Errors {
		errs[i] = err
	}
	return errs
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

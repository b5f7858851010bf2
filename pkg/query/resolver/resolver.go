package resolver

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped in a *NotFoundError) when a path segment is absent.
var ErrNotFound = errors.New("path not found")

// Resolver resolves a dotted path such as "data.weather" inside a record.
//
// Resolve returns an error matching ErrNotFound when any segment of the path
// is absent. Any other error means the record itself could not be read.
// Implementations must not modify the record.
type Resolver interface {
	Resolve(record interface{}, path string) (interface{}, error)
}

// Func adapts an ordinary function to the Resolver interface.
type Func func(record interface{}, path string) (interface{}, error)

// Resolve calls f(record, path).
func (f Func) Resolve(record interface{}, path string) (interface{}, error) {
	return f(record, path)
}

// NotFoundError reports the first missing segment of a path.
type NotFoundError struct {
	Path    string
	Segment string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Segment == "" || e.Segment == e.Path {
		return fmt.Sprintf("path %q not found", e.Path)
	}
	return fmt.Sprintf("path %q not found: no segment %q", e.Path, e.Segment)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound reports whether err means the path does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Separator splits path segments.
const Separator = "."

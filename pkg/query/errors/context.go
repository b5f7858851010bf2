package errors

import (
	"strings"
	"unicode/utf8"

	"querydict-hq/querydict/pkg/query/ast"
)

// ExtractContext returns the query line containing pos followed by a caret
// line pointing at pos.Column. It returns "" if pos is invalid or outside the query.
func ExtractContext(query string, pos ast.Position) string {
	if !pos.IsValid() {
		return ""
	}

	lines := strings.Split(query, "\n")
	if pos.Line > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[pos.Line-1], "\r")

	col := pos.Column
	if limit := utf8.RuneCountInString(line) + 1; col > limit {
		col = limit
	}

	var sb strings.Builder
	sb.WriteString("  | ")
	sb.WriteString(line)
	sb.WriteString("\n  | ")
	sb.WriteString(strings.Repeat(" ", col-1))
	sb.WriteString("^\n")
	return sb.String()
}

// WithContext attaches the caret context for query to err and returns it.
func WithContext(err *Error, query string) *Error {
	if err.Position.IsValid() {
		err.Context = ExtractContext(query, err.Position)
	}
	return err
}

// AddContext attaches query context to every *Error in err. It accepts a single
// *Error or an *ErrorList and returns err unchanged otherwise.
func AddContext(err error, query string) error {
	switch e := err.(type) {
	case *Error:
		WithContext(e, query)
	case *ErrorList:
		for _, item := range e.Errors {
			WithContext(item, query)
		}
	}
	return err
}

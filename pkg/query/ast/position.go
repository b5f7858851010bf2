package ast

import "fmt"

// Position identifies a location in the query string.
type Position struct {
	Offset int // Byte offset (0-based)
	Line   int // Line number (1-based)
	Column int // Column number in runes (1-based)
}

// String returns a human-readable representation of the position.
// Format: "line:column"
func (p Position) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid returns true if the position has line and column information.
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0
}

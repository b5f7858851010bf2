package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONResolver resolves paths directly in raw JSON documents without decoding
// them first. Records may be []byte, json.RawMessage or string.
//
// Only "." separates segments: every other character gjson would interpret
// (wildcards, modifiers, queries) is escaped and matched literally.
type JSONResolver struct{}

// NewJSONResolver creates a resolver for raw JSON.
func NewJSONResolver() *JSONResolver {
	return &JSONResolver{}
}

// Resolve implements Resolver. Values are returned as decoded by gjson:
// string, float64, bool, nil, map[string]interface{} or []interface{}.
func (r *JSONResolver) Resolve(record interface{}, path string) (interface{}, error) {
	if path == "" {
		return nil, &NotFoundError{Path: path}
	}

	var get func(string) gjson.Result
	switch doc := record.(type) {
	case []byte:
		get = func(p string) gjson.Result { return gjson.GetBytes(doc, p) }
	case json.RawMessage:
		get = func(p string) gjson.Result { return gjson.GetBytes(doc, p) }
	case string:
		get = func(p string) gjson.Result { return gjson.Get(doc, p) }
	default:
		return nil, fmt.Errorf("json resolver: unsupported record type %T", record)
	}

	segments := strings.Split(path, Separator)
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = escapeSegment(segment)
	}

	result := get(strings.Join(escaped, "."))
	if !result.Exists() && len(segments) > 1 {
		// Literal top-level key containing dots
		result = get(escapeSegment(path))
	}
	if !result.Exists() {
		return nil, &NotFoundError{Path: path}
	}

	return result.Value(), nil
}

// escapeSegment backslash-escapes every character with a meaning in gjson paths.
func escapeSegment(segment string) string {
	var sb strings.Builder
	for _, r := range segment {
		if !isSafePathChar(r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isSafePathChar(r rune) bool {
	return r >= 0x80 ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '_' || r == '-' || r == ':'
}

package engine

import (
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// matchTerm reports whether value equals the term literal. Only string values
// can be equal to a term: the number 5 does not match "5".
func matchTerm(value interface{}, term string) bool {
	if s, ok := value.(string); ok {
		return s == term
	}

	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String() == term
	}
	return false
}

// matchPhrase reports whether value contains the phrase text. Strings match
// on substring. Sequences match when one of their elements equals the text.
// Other scalars are compared through their string form.
func matchPhrase(value interface{}, text string) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return strings.Contains(s, text)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		for i := 0; i < v.Len(); i++ {
			if !v.Index(i).CanInterface() {
				continue
			}
			if s, err := cast.ToStringE(v.Index(i).Interface()); err == nil && s == text {
				return true
			}
		}
		return false
	case reflect.Map, reflect.Struct:
		return false
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return false
	}
	return strings.Contains(s, text)
}

// phraseText strips the surrounding quotes from a Phrase value. Backslashes
// inside the quotes are kept and matched literally.
func phraseText(node *ast.Node) (string, error) {
	raw := node.Value
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", qerrors.Internal(node.Pos, "Expected phrase to start and end with double quotes, please file a bug")
	}
	return raw[1 : len(raw)-1], nil
}

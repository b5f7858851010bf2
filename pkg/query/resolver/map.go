package resolver

import (
	"reflect"
	"strconv"
	"strings"
)

// MapResolver resolves paths in nested Go values: maps with string keys,
// slices and arrays (by decimal index), structs (by json tag or
// case-insensitive field name), pointers and interfaces.
//
// The dotted traversal is tried first. If it fails and the record has a
// top-level key equal to the whole path ("a.b" stored literally), that value
// is returned instead.
type MapResolver struct{}

// NewMapResolver creates a resolver for Go values.
func NewMapResolver() *MapResolver {
	return &MapResolver{}
}

// Default is the resolver used when none is configured.
var Default Resolver = NewMapResolver()

// Resolve implements Resolver.
func (r *MapResolver) Resolve(record interface{}, path string) (interface{}, error) {
	if path == "" {
		return nil, &NotFoundError{Path: path}
	}

	current := record
	for _, segment := range strings.Split(path, Separator) {
		next, ok := lookup(current, segment)
		if !ok {
			if strings.Contains(path, Separator) {
				if value, ok := lookup(record, path); ok {
					return value, nil
				}
			}
			return nil, &NotFoundError{Path: path, Segment: segment}
		}
		current = next
	}

	return current, nil
}

// lookup returns the child of value named key.
func lookup(value interface{}, key string) (interface{}, bool) {
	// Common record shapes avoid reflection.
	switch v := value.(type) {
	case map[string]interface{}:
		child, ok := v[key]
		return child, ok
	case map[string]string:
		child, ok := v[key]
		return child, ok
	case []interface{}:
		i, ok := index(key, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true
	case nil:
		return nil, false
	}

	return lookupReflect(reflect.ValueOf(value), key)
}

func lookupReflect(v reflect.Value, key string) (interface{}, bool) {
	// Dereference pointers and interfaces
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		child := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
		if !child.IsValid() {
			return nil, false
		}
		return child.Interface(), true

	case reflect.Slice, reflect.Array:
		i, ok := index(key, v.Len())
		if !ok {
			return nil, false
		}
		return interfaceOf(v.Index(i))

	case reflect.Struct:
		return interfaceOf(structField(v, key))
	}

	return nil, false
}

// structField finds the exported field whose json name is key, falling back
// to a case-insensitive match on the Go field name.
func structField(v reflect.Value, key string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" && tag == key {
			return v.Field(i)
		}
	}

	return v.FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, key)
	})
}

func interfaceOf(v reflect.Value) (interface{}, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

// index parses key as an index into a sequence of length n.
func index(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

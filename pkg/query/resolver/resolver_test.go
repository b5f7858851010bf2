package resolver

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

type weather struct {
	Summary string `json:"summary"`
	Wind    *wind
	secret  string
}

type wind struct {
	Speed int
}

func TestMapResolver(t *testing.T) {
	record := map[string]interface{}{
		"country": "England",
		"data": map[string]interface{}{
			"weather": "Very Rainy",
			"tags":    []interface{}{"wet", "cold"},
			"empty":   nil,
		},
		"labels":     map[string]string{"env": "prod"},
		"counts":     map[string]int{"errors": 3},
		"matrix":     [][]string{{"a", "b"}},
		"report":     &weather{Summary: "Sunny", Wind: &wind{Speed: 12}, secret: "x"},
		"dotted.key": "literal",
	}

	tests := []struct {
		path string
		want interface{}
	}{
		{"country", "England"},
		{"data.weather", "Very Rainy"},
		{"data.tags.1", "cold"},
		{"data.empty", nil},
		{"labels.env", "prod"},
		{"counts.errors", 3},
		{"matrix.0.1", "b"},
		{"report.summary", "Sunny"},
		{"report.Summary", "Sunny"},
		{"report.wind.speed", 12},
		{"dotted.key", "literal"},
	}

	r := NewMapResolver()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := r.Resolve(record, tt.path)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.path, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMapResolver_NotFound(t *testing.T) {
	record := map[string]interface{}{
		"country": "England",
		"data":    map[string]interface{}{"tags": []interface{}{"wet"}},
		"report":  weather{Summary: "Sunny", secret: "x"},
		"counts":  map[int]string{1: "one"},
	}

	paths := []string{
		"",
		"city",
		"country.name",
		"data.weather",
		"data.tags.5",
		"data.tags.-1",
		"data.tags.first",
		"report.secret",
		"report.wind.speed",
		"counts.1",
	}

	r := NewMapResolver()
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			_, err := r.Resolve(record, path)
			if !IsNotFound(err) {
				t.Errorf("Resolve(%q) error = %v, want not found", path, err)
			}
		})
	}

	if _, err := r.Resolve(nil, "a"); !IsNotFound(err) {
		t.Errorf("Resolve(nil) error = %v, want not found", err)
	}
}

func TestNotFoundError(t *testing.T) {
	_, err := Default.Resolve(map[string]interface{}{}, "data.weather")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
	if nf.Path != "data.weather" || nf.Segment != "data" {
		t.Errorf("NotFoundError = %+v", nf)
	}
	if got, want := err.Error(), `path "data.weather" not found: no segment "data"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestJSONResolver(t *testing.T) {
	doc := `{
		"country": "England",
		"data": {"weather": "Very Rainy", "temp": 12.5, "wet": true, "none": null},
		"items": [{"name": "first"}, {"name": "second"}],
		"dotted.key": "literal",
		"a*b": "star"
	}`

	tests := []struct {
		path string
		want interface{}
	}{
		{"country", "England"},
		{"data.weather", "Very Rainy"},
		{"data.temp", 12.5},
		{"data.wet", true},
		{"data.none", nil},
		{"items.1.name", "second"},
		{"dotted.key", "literal"},
		{"a*b", "star"},
	}

	r := NewJSONResolver()
	inputs := map[string]interface{}{
		"string":      doc,
		"bytes":       []byte(doc),
		"raw message": json.RawMessage(doc),
	}

	for name, input := range inputs {
		for _, tt := range tests {
			t.Run(name+"/"+tt.path, func(t *testing.T) {
				got, err := r.Resolve(input, tt.path)
				if err != nil {
					t.Fatalf("Resolve(%q) error = %v", tt.path, err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("Resolve(%q) = %#v, want %#v", tt.path, got, tt.want)
				}
			})
		}
	}
}

func TestJSONResolver_NotFound(t *testing.T) {
	doc := []byte(`{"data": {"weather": "Rainy"}, "items": [1, 2]}`)

	// "*" is literal, not a gjson wildcard.
	for _, path := range []string{"city", "data.wind", "d*", "data.w?ather", "items.7", ""} {
		t.Run(path, func(t *testing.T) {
			_, err := NewJSONResolver().Resolve(doc, path)
			if !IsNotFound(err) {
				t.Errorf("Resolve(%q) error = %v, want not found", path, err)
			}
		})
	}
}

func TestJSONResolver_UnsupportedRecord(t *testing.T) {
	_, err := NewJSONResolver().Resolve(map[string]interface{}{}, "a")
	if err == nil || IsNotFound(err) {
		t.Errorf("Resolve() error = %v, want unsupported record error", err)
	}
}

func TestFunc(t *testing.T) {
	var r Resolver = Func(func(record interface{}, path string) (interface{}, error) {
		return path + "!", nil
	})

	got, err := r.Resolve(nil, "x")
	if err != nil || got != "x!" {
		t.Errorf("Resolve() = %v, %v", got, err)
	}
}

package validator

import (
	"errors"
	"testing"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
	"querydict-hq/querydict/pkg/query/parser"
)

func mustParse(t *testing.T, query string) *ast.Node {
	t.Helper()
	tree, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", query, err)
	}
	return tree
}

func TestValidator_Accepts(t *testing.T) {
	queries := []string{
		"key1:value1",
		`data.weather:"Rainy"`,
		"key1:value1 AND key2:value2",
		"country:France OR (country:England AND data.weather:Rainy)",
		"a:x b:y",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			result, err := NewValidator(DefaultOptions()).Validate(mustParse(t, q))
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if result.ContainsBareField {
				t.Error("ContainsBareField = true, want false")
			}
		})
	}
}

func TestValidator_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		opts    func(*Options)
		errType qerrors.ErrorType
		message string
	}{
		{"fuzzy", "domain:foo~0.8", nil, qerrors.ErrorTypeStructural, msgFuzzy},
		{"bare fuzzy", "foo~", nil, qerrors.ErrorTypeStructural, msgFuzzy},
		{"range", "price:[0 TO 10]", nil, qerrors.ErrorTypeStructural, msgRange},
		{"bare term", "hello", nil, qerrors.ErrorTypeStructural, msgBareTerm},
		{"bare phrase in and", `a:x AND "hello"`, nil, qerrors.ErrorTypeStructural, msgBareTerm},
		{
			name:    "ambiguous rejected",
			query:   "a:x b:y",
			opts:    func(o *Options) { o.Resolution = ResolveReject },
			errType: qerrors.ErrorTypeStructural,
			message: msgAmbiguous,
		},
		{"not", "NOT a:x", nil, qerrors.ErrorTypeStructural, msgNegation},
		{"bang", "a:x AND !b:y", nil, qerrors.ErrorTypeStructural, msgNegation},
		{"prohibit", "-a:x", nil, qerrors.ErrorTypeStructural, msgNegation},
		{"prohibited value", "a:-x", nil, qerrors.ErrorTypeStructural, msgNegation},
		{"plus", "+a:x", nil, qerrors.ErrorTypeStructural, msgPlus},
		{"boost", "a:x^2", nil, qerrors.ErrorTypeStructural, msgBoost},
		{"wildcard", "a:fo*", nil, qerrors.ErrorTypeStructural, msgWildcard},
		{"regex", "a:/fo+/", nil, qerrors.ErrorTypeStructural, msgRegex},
		{"field group", "a:(x y)", nil, qerrors.ErrorTypeStructural, `Grouping values under field "a" is not currently supported`},
		{"nested field", "a:b:c", nil, qerrors.ErrorTypeStructural, `Nested field "a:b" is not supported, use a dotted path instead`},
		{
			name:    "too deep",
			query:   "((a:x) AND ((b:y) OR (c:z)))",
			opts:    func(o *Options) { o.MaxDepth = 2 },
			errType: qerrors.ErrorTypeStructural,
			message: msgTooDeep,
		},
		{
			name:    "unknown resolution",
			query:   "a:x",
			opts:    func(o *Options) { o.Resolution = "XOR" },
			errType: qerrors.ErrorTypeArgument,
			message: `Unknown ambiguous resolution "XOR"`,
		},
		{
			name:    "non-positive depth",
			query:   "a:x",
			opts:    func(o *Options) { o.MaxDepth = 0 },
			errType: qerrors.ErrorTypeArgument,
			message: "max_depth must be a positive integer, got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			_, err := NewValidator(opts).Validate(mustParse(t, tt.query))
			if err == nil {
				t.Fatalf("Validate(%q) expected error", tt.query)
			}

			var qe *qerrors.Error
			if !errors.As(err, &qe) {
				t.Fatalf("error type = %T, want *errors.Error", err)
			}
			if qe.Type != tt.errType {
				t.Errorf("Type = %q, want %q", qe.Type, tt.errType)
			}
			if qe.Message != tt.message {
				t.Errorf("Message = %q, want %q", qe.Message, tt.message)
			}
		})
	}
}

func TestValidator_DepthIsExact(t *testing.T) {
	// And(1) > Field(2) > Term(3)
	query := "a:x AND b:y"

	for maxDepth := 1; maxDepth <= 4; maxDepth++ {
		opts := DefaultOptions()
		opts.MaxDepth = maxDepth

		_, err := NewValidator(opts).Validate(mustParse(t, query))
		accepted := err == nil
		if want := 3 <= maxDepth; accepted != want {
			t.Errorf("MaxDepth=%d: accepted = %v, want %v (err = %v)", maxDepth, accepted, want, err)
		}
		if err != nil && !errors.Is(err, qerrors.ErrStructural) {
			t.Errorf("MaxDepth=%d: error = %v, want structural", maxDepth, err)
		}
	}
}

func TestValidator_Resolution(t *testing.T) {
	tests := []struct {
		res  Resolution
		want ast.Kind
	}{
		{ResolveAnd, ast.KindAnd},
		{ResolveOr, ast.KindOr},
	}

	for _, tt := range tests {
		t.Run(string(tt.res), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Resolution = tt.res

			result, err := NewValidator(opts).Validate(mustParse(t, "a:x (b:y c:z)"))
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			root := result.Tree
			if root.Kind != tt.want {
				t.Errorf("root Kind = %q, want %q", root.Kind, tt.want)
			}
			if inner := root.Children[1].Child(); inner.Kind != tt.want {
				t.Errorf("nested Kind = %q, want %q", inner.Kind, tt.want)
			}
			if got := root.Children[0].Name; got != "a" {
				t.Errorf("child order changed, first field = %q", got)
			}
		})
	}
}

func TestValidator_BareField(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowBareField = true

	result, err := NewValidator(opts).Validate(mustParse(t, `hello AND a:x`))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.ContainsBareField {
		t.Error("ContainsBareField = false, want true")
	}

	result, err = NewValidator(opts).Validate(mustParse(t, `a:x`))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.ContainsBareField {
		t.Error("ContainsBareField = true for a qualified query")
	}
}

func TestValidator_FirstViolationWins(t *testing.T) {
	// Pre-order: the fuzzy clause precedes the range clause.
	_, err := Validate(mustParse(t, "a:foo~ AND b:[1 TO 2]"), DefaultOptions())

	var qe *qerrors.Error
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v, want *errors.Error", err)
	}
	if qe.Message != msgFuzzy {
		t.Errorf("Message = %q, want %q", qe.Message, msgFuzzy)
	}
	if qe.Position.Column != 3 {
		t.Errorf("Column = %d, want 3", qe.Position.Column)
	}
}

func TestValidator_ValidateAll(t *testing.T) {
	_, err := NewValidator(DefaultOptions()).ValidateAll(mustParse(t, "a:foo~ AND b:[1 TO 2] AND hello AND -c:d"))

	var list *qerrors.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error = %T, want *errors.ErrorList", err)
	}

	want := []string{msgFuzzy, msgRange, msgBareTerm, msgNegation}
	if list.Count() != len(want) {
		t.Fatalf("Count() = %d, want %d: %v", list.Count(), len(want), err)
	}
	for i, msg := range want {
		if list.Errors[i].Message != msg {
			t.Errorf("error %d = %q, want %q", i, list.Errors[i].Message, msg)
		}
	}
}

func TestValidator_ValidateAllStopsBelowTooDeep(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 2

	_, err := NewValidator(opts).ValidateAll(mustParse(t, "a:x~ AND b:y~"))

	var list *qerrors.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error = %T, want *errors.ErrorList", err)
	}
	// Both fuzzy nodes sit at depth 3, below the limit.
	if list.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", list.Count())
	}
	for _, e := range list.Errors {
		if e.Message != msgTooDeep {
			t.Errorf("Message = %q, want %q", e.Message, msgTooDeep)
		}
	}
}

func TestValidator_InternalErrors(t *testing.T) {
	tests := []struct {
		name string
		tree *ast.Node
	}{
		{"unknown kind", &ast.Node{Kind: "mystery"}},
		{"empty and", ast.NewAnd()},
		{"field without value", &ast.Node{Kind: ast.KindField, Name: "a"}},
		{"nil tree", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.tree, DefaultOptions())
			if !qerrors.IsInternal(err) {
				t.Errorf("Validate() error = %v, want internal", err)
			}
			if qerrors.IsQueryError(err) {
				t.Error("internal error must not be a query error")
			}
		})
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{"AND", ResolveAnd, false},
		{"and", ResolveAnd, false},
		{"Or", ResolveOr, false},
		{"Reject", ResolveReject, false},
		{"Exception", ResolveReject, false},
		{"XOR", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolution(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResolution(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, qerrors.ErrArgument) {
				t.Errorf("error = %v, want argument error", err)
			}
			if got != tt.want {
				t.Errorf("ParseResolution(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	_, err := ParseResolution("ADN")
	var qe *qerrors.Error
	if !errors.As(err, &qe) || qe.Suggestion != "Did you mean 'AND'?" {
		t.Errorf("suggestion = %+v, want Did you mean 'AND'?", qe)
	}
}

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
	"querydict-hq/querydict/pkg/query/resolver"
)

var (
	simpleData  = map[string]interface{}{"key1": "value1", "key2": "value2"}
	complexData = map[string]interface{}{
		"country": "England",
		"data":    map[string]interface{}{"weather": "Rainy"},
	}
)

func mustNew(t *testing.T, query string, cfg *Config) *Engine {
	t.Helper()
	eng, err := New(query, cfg)
	if err != nil {
		t.Fatalf("New(%q) error = %v", query, err)
	}
	return eng
}

func errorType(t *testing.T, err error) qerrors.ErrorType {
	t.Helper()
	var qe *qerrors.Error
	if !errors.As(err, &qe) {
		t.Fatalf("error = %T (%v), want *errors.Error", err, err)
	}
	return qe.Type
}

func TestEngine_Match(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		record interface{}
		want   bool
	}{
		{"phrase", `key1:"value1"`, simpleData, true},
		{"missing", "key3:value3", simpleData, false},
		{"missing nested", "foo.bar.baz:missing", simpleData, false},
		{"simple and", "key1:value1 AND key2:value2", simpleData, true},
		{"impossible and", "key1:value1 AND key1:value2", simpleData, false},
		{"simple or", "key1:value1 OR key2:value2", simpleData, true},
		{"or both false", "key1:nope OR key2:nope", simpleData, false},
		{"grouped or", "country:France OR (country:England AND data.weather:Rainy)", complexData, true},
		{"nested", "country:England AND data.weather:Rainy", complexData, true},
		{"ambiguous defaults to and", "key1:value1 key2:value2", simpleData, true},
		{"ambiguous and fails", "key1:value1 key2:nope", simpleData, false},
		{"escaped term", `path:a\:b`, map[string]interface{}{"path": "a:b"}, true},
		{"escaped quotes kept", `quote:"say \"hi\""`, map[string]interface{}{"quote": `they say \"hi\" twice`}, true},
		{"escaped quotes not unescaped", `quote:"say \"hi\""`, map[string]interface{}{"quote": `they say "hi" twice`}, false},
		{"symbolic operators", "key1:value1 && (key2:nope || key2:value2)", simpleData, true},
		{"numeric value never equals a term", "count:5", map[string]interface{}{"count": 5}, false},
		{"numeric value contains a phrase", `count:"5"`, map[string]interface{}{"count": 15}, true},
		{"list membership by phrase", `tags:"wet"`, map[string]interface{}{"tags": []string{"wet", "cold"}}, true},
		{"list membership is not substring", `tags:"we"`, map[string]interface{}{"tags": []string{"wet"}}, false},
		{"term never equals a list", "tags:wet", map[string]interface{}{"tags": []string{"wet"}}, false},
		{"phrase against a map", `data:"Rainy"`, complexData, false},
		{"null value", `data.weather:"x"`, map[string]interface{}{"data": map[string]interface{}{"weather": nil}}, false},
		{"dotted literal key", "a.b:c", map[string]interface{}{"a.b": "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, shortCircuit := range []bool{true, false} {
				eng := mustNew(t, tt.query, DefaultConfig().WithShortCircuit(shortCircuit))
				got, err := eng.Match(tt.record)
				if err != nil {
					t.Fatalf("Match() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("Match(short_circuit=%v) = %v, want %v", shortCircuit, got, tt.want)
				}
			}
		})
	}
}

func TestEngine_PhraseContainmentVersusTermEquality(t *testing.T) {
	record := map[string]interface{}{"data": map[string]interface{}{"weather": "Very Rainy"}}

	tests := []struct {
		query string
		want  bool
	}{
		{`data.weather:"Rainy"`, true},
		{`data.weather:"Very Rainy"`, true},
		{`data.weather:"rainy"`, false},
		{"data.weather:Rainy", false},
		{`data.weather:Very\ Rainy`, true},
		{`data.weather:"Very\ Rainy"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := mustNew(t, tt.query, nil).Match(record)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_PhraseKeepsBackslashes(t *testing.T) {
	tests := []struct {
		query  string
		record map[string]interface{}
		want   bool
	}{
		{`path:"C:\Users"`, map[string]interface{}{"path": `C:\Users\bob`}, true},
		{`q:"\"hi\""`, map[string]interface{}{"q": `say \"hi\"`}, true},
		{`q:"\"hi\""`, map[string]interface{}{"q": `say "hi"`}, false},
		{`path:"C:\Users"`, map[string]interface{}{"path": `C:Users`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := mustNew(t, tt.query, nil).Match(tt.record)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestEngine_PointerFields(t *testing.T) {
	type account struct {
		Status *string `json:"status"`
		Owner  *string `json:"owner"`
	}
	active := "active"
	record := map[string]interface{}{"account": account{Status: &active}}

	tests := []struct {
		query string
		want  bool
	}{
		{"account.status:active", true},
		{`account.status:"act"`, true},
		{"account.status:inactive", false},
		{"account.owner:active", false},
		{`account.owner:"active"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := mustNew(t, tt.query, nil).Match(record)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_MissingFieldNeverErrors(t *testing.T) {
	record := map[string]interface{}{
		"a": map[string]interface{}{"b": []interface{}{"x"}},
		"s": "scalar",
	}

	queries := []string{
		"missing:x",
		"a.missing:x",
		"a.b.missing:x",
		"a.b.7:x",
		"s.deeper:x",
		"(a.b.c:x OR (a.z:y AND a.b.0.q:z))",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			got, err := mustNew(t, query, nil).Match(record)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got {
				t.Errorf("Match() = true, want false")
			}
		})
	}
}

func TestEngine_ShortCircuitAgreesWithExhaustive(t *testing.T) {
	queries := []string{
		"a:1 AND b:2",
		"a:1 OR b:2",
		"a:1 AND (b:2 OR c:3)",
		"(a:1 OR b:2) AND (c:3 OR a:0)",
		"a:0 OR (b:0 AND c:3) OR (a:1 AND b:2 AND c:0)",
		"((a:1) AND ((b:2) OR (c:3)))",
		"a:1 b:0 c:3",
	}
	records := []map[string]interface{}{
		{},
		{"a": "1"},
		{"a": "1", "b": "2"},
		{"a": "1", "c": "3"},
		{"a": "0", "b": "2", "c": "3"},
		{"a": "1", "b": "2", "c": "3"},
	}

	for _, query := range queries {
		fast := mustNew(t, query, DefaultConfig().WithShortCircuit(true))
		slow := mustNew(t, query, DefaultConfig().WithShortCircuit(false))

		for i, record := range records {
			want, err := slow.Match(record)
			if err != nil {
				t.Fatalf("%q record %d: exhaustive Match() error = %v", query, i, err)
			}
			got, err := fast.Match(record)
			if err != nil {
				t.Fatalf("%q record %d: short-circuit Match() error = %v", query, i, err)
			}
			if got != want {
				t.Errorf("%q record %d: short-circuit = %v, exhaustive = %v", query, i, got, want)
			}
		}
	}
}

func TestEngine_ShortCircuitSkipsOperands(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	spy := resolver.Func(func(record interface{}, path string) (interface{}, error) {
		mu.Lock()
		calls = append(calls, path)
		mu.Unlock()
		return resolver.Default.Resolve(record, path)
	})

	tests := []struct {
		query        string
		shortCircuit bool
		want         []string
	}{
		{"a:1 AND b:2 AND c:3", true, []string{"a"}},
		{"a:1 AND b:2 AND c:3", false, []string{"a", "b", "c"}},
		{"b:2 OR a:1 OR c:3", true, []string{"b", "a"}},
		{"b:2 OR a:1 OR c:3", false, []string{"b", "a", "c"}},
	}

	record := map[string]interface{}{"a": "1"}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.query, tt.shortCircuit), func(t *testing.T) {
			calls = nil
			cfg := DefaultConfig().WithShortCircuit(tt.shortCircuit).WithResolver(spy)
			if _, err := mustNew(t, tt.query, cfg).Match(record); err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if strings.Join(calls, ",") != strings.Join(tt.want, ",") {
				t.Errorf("resolved paths = %v, want %v", calls, tt.want)
			}
		})
	}
}

func TestEngine_AmbiguousResolution(t *testing.T) {
	records := []struct {
		name   string
		record map[string]interface{}
		and    bool
		or     bool
	}{
		{"both", map[string]interface{}{"a": "x", "b": "y"}, true, true},
		{"first only", map[string]interface{}{"a": "x"}, false, true},
		{"second only", map[string]interface{}{"b": "y"}, false, true},
		{"neither", map[string]interface{}{}, false, false},
	}

	andEngine := mustNew(t, "a:x b:y", DefaultConfig().WithAmbiguousResolution(ResolveAnd))
	orEngine := mustNew(t, "a:x b:y", DefaultConfig().WithAmbiguousResolution(ResolveOr))

	for _, tt := range records {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := andEngine.Match(tt.record); got != tt.and {
				t.Errorf("AND: Match() = %v, want %v", got, tt.and)
			}
			if got, _ := orEngine.Match(tt.record); got != tt.or {
				t.Errorf("OR: Match() = %v, want %v", got, tt.or)
			}
		})
	}

	_, err := New("a:x b:y", DefaultConfig().WithAmbiguousResolution(ResolveReject))
	if err == nil {
		t.Fatal("Reject: New() expected error")
	}
	if got := errorType(t, err); got != qerrors.ErrorTypeStructural {
		t.Errorf("Reject: error type = %q, want structural", got)
	}
	if !strings.Contains(err.Error(), "ambiguous (unknown) operation") {
		t.Errorf("Reject: error = %q", err.Error())
	}

	// Explicit operators are unaffected by the policy.
	if _, err := New("a:x AND b:y", DefaultConfig().WithAmbiguousResolution(ResolveReject)); err != nil {
		t.Errorf("Reject with explicit AND: error = %v", err)
	}
}

func TestParseAmbiguousResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{"AND", ResolveAnd, false},
		{"or", ResolveOr, false},
		{"reject", ResolveReject, false},
		{"Exception", ResolveReject, false},
		{"XOR", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmbiguousResolution(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmbiguousResolution(%q) expected error", tt.in)
				}
				if !errors.Is(err, qerrors.ErrArgument) {
					t.Errorf("error = %v, want argument error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmbiguousResolution(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmbiguousResolution(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEngine_DepthIsExact(t *testing.T) {
	tests := []struct {
		query string
		depth int
	}{
		{"a:x", 2},
		{"(a:x)", 3},
		{"a:x AND b:y", 3},
		{"((a:x) AND ((b:y) OR (c:z)))", 7},
	}

	for _, tt := range tests {
		for maxDepth := 1; maxDepth <= tt.depth+1; maxDepth++ {
			t.Run(fmt.Sprintf("%s/max=%d", tt.query, maxDepth), func(t *testing.T) {
				eng, err := New(tt.query, DefaultConfig().WithMaxDepth(maxDepth))
				accepted := err == nil
				if want := tt.depth <= maxDepth; accepted != want {
					t.Fatalf("accepted = %v, want %v (err = %v)", accepted, want, err)
				}
				if err != nil {
					if !errors.Is(err, qerrors.ErrStructural) {
						t.Errorf("error = %v, want structural", err)
					}
					return
				}
				if got := ast.Depth(eng.Tree()); got != tt.depth {
					t.Errorf("Depth() = %d, want %d", got, tt.depth)
				}
			})
		}
	}
}

func TestEngine_MaxDepthTwoRejectsNestedGroups(t *testing.T) {
	_, err := New("((a:x) AND ((b:y) OR (c:z)))", DefaultConfig().WithMaxDepth(2))
	if err == nil {
		t.Fatal("New() expected error")
	}
	var qe *qerrors.Error
	if !errors.As(err, &qe) {
		t.Fatalf("error = %T, want *errors.Error", err)
	}
	if qe.Type != qerrors.ErrorTypeStructural {
		t.Errorf("Type = %q, want structural", qe.Type)
	}
	if qe.Message != "Query too complicated, increase max_depth if required" {
		t.Errorf("Message = %q", qe.Message)
	}
}

func TestNew_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		cfg   *Config
		msg   string
	}{
		{"empty", "", nil, "Need a valid query"},
		{"blank", "   ", nil, "Need a valid query"},
		{"whitespace", "\t\n", nil, "Need a valid query"},
		{"unknown resolution", "a:x", DefaultConfig().WithAmbiguousResolution("XOR"), `Unknown ambiguous resolution "XOR"`},
		{"zero depth", "a:x", DefaultConfig().WithMaxDepth(0), "max_depth must be a positive integer, got 0"},
		{"negative depth", "a:x", DefaultConfig().WithMaxDepth(-3), "max_depth must be a positive integer, got -3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.query, tt.cfg)
			if err == nil {
				t.Fatal("New() expected error")
			}
			var qe *qerrors.Error
			if !errors.As(err, &qe) {
				t.Fatalf("error = %T, want *errors.Error", err)
			}
			if qe.Type != qerrors.ErrorTypeArgument {
				t.Errorf("Type = %q, want argument", qe.Type)
			}
			if qe.Message != tt.msg {
				t.Errorf("Message = %q, want %q", qe.Message, tt.msg)
			}
			if qerrors.IsQueryError(err) {
				t.Error("argument error reported as query error")
			}
		})
	}
}

func TestNew_StructuralErrors(t *testing.T) {
	tests := []struct {
		query string
		msg   string
	}{
		{"price:[0 TO 10]", "Range matching with [..] or {..} is not currently supported"},
		{"price:{0 TO 10}", "Range matching with [..] or {..} is not currently supported"},
		{"domain:foo~0.8", "Fuzzy matching with ~ is not currently supported"},
		{"domain:foo~", "Fuzzy matching with ~ is not currently supported"},
		{"foo", "Query contains search term without a named field"},
		{"key1:value1 AND NOT key2:value1", "Negation with NOT or - is not currently supported"},
		{"a:fo*", "Wildcard matching with * or ? is not currently supported"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := New(tt.query, nil)
			if err == nil {
				t.Fatal("New() expected error")
			}
			if !errors.Is(err, qerrors.ErrStructural) {
				t.Fatalf("error = %v, want structural", err)
			}
			if !qerrors.IsQueryError(err) || qerrors.IsInternal(err) {
				t.Errorf("error family wrong for %v", err)
			}
			var qe *qerrors.Error
			errors.As(err, &qe)
			if qe.Message != tt.msg {
				t.Errorf("Message = %q, want %q", qe.Message, tt.msg)
			}
			if qe.Context == "" {
				t.Error("Context is empty, want caret context")
			}
		})
	}
}

func TestNew_SyntaxErrors(t *testing.T) {
	tests := []struct {
		query  string
		column int
	}{
		{"a:x AND", 8},
		{"(a:x", 1},
		{`a:"open`, 3},
		{"a:x)", 4},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := New(tt.query, nil)
			if err == nil {
				t.Fatal("New() expected error")
			}
			var qe *qerrors.Error
			if !errors.As(err, &qe) {
				t.Fatalf("error = %T, want *errors.Error", err)
			}
			if qe.Type != qerrors.ErrorTypeSyntax {
				t.Errorf("Type = %q, want syntax", qe.Type)
			}
			if !strings.HasPrefix(qe.Message, "Could not parse the query, error: ") {
				t.Errorf("Message = %q", qe.Message)
			}
			if qe.Position.Column != tt.column {
				t.Errorf("Column = %d, want %d", qe.Position.Column, tt.column)
			}
			if !qerrors.IsQueryError(err) {
				t.Error("IsQueryError() = false")
			}
		})
	}
}

func TestEngine_BareFieldPolicy(t *testing.T) {
	// Not allowed: construction fails.
	if _, err := New("foo", nil); !errors.Is(err, qerrors.ErrStructural) {
		t.Fatalf("New() error = %v, want structural", err)
	}

	eng := mustNew(t, "foo", DefaultConfig().WithAllowBareField(true))
	if !eng.ContainsBareField() {
		t.Fatal("ContainsBareField() = false")
	}

	// Allowed but no default field: match configuration error.
	for _, opts := range [][]MatchOption{nil, {WithDefaultField("")}} {
		_, err := eng.Match(simpleData, opts...)
		if !errors.Is(err, qerrors.ErrMatchConfig) {
			t.Fatalf("Match() error = %v, want match_config", err)
		}
		if !strings.Contains(err.Error(), "Need a default_field to use for matching unqualified field") {
			t.Errorf("Match() error = %q", err.Error())
		}
	}

	// Allowed with a default field: unimplemented.
	_, err := eng.Match(simpleData, WithDefaultField("key1"))
	if !errors.Is(err, qerrors.ErrUnimplemented) {
		t.Fatalf("Match() error = %v, want unimplemented", err)
	}
	if qerrors.IsQueryError(err) || qerrors.IsInternal(err) {
		t.Errorf("unimplemented error in the wrong family: %v", err)
	}

	// The engine stays usable after a failed call.
	if _, err := eng.Match(simpleData); !errors.Is(err, qerrors.ErrMatchConfig) {
		t.Errorf("second Match() error = %v", err)
	}
}

func TestEngine_BareFieldInsideFieldedQuery(t *testing.T) {
	eng := mustNew(t, "key1:value1 OR foo", DefaultConfig().WithAllowBareField(true))

	// A qualified clause that decides the result first still requires the
	// default field up front.
	if _, err := eng.Match(simpleData); !errors.Is(err, qerrors.ErrMatchConfig) {
		t.Fatalf("Match() error = %v, want match_config", err)
	}

	ok, err := eng.Match(simpleData, WithDefaultField("key1"))
	if err != nil || !ok {
		t.Errorf("short-circuit Match() = %v, %v; want true, nil", ok, err)
	}

	exhaustive := mustNew(t, "key1:value1 OR foo", DefaultConfig().WithAllowBareField(true).WithShortCircuit(false))
	if _, err := exhaustive.Match(simpleData, WithDefaultField("key1")); !errors.Is(err, qerrors.ErrUnimplemented) {
		t.Errorf("exhaustive Match() error = %v, want unimplemented", err)
	}
}

func TestEngine_MatchJSON(t *testing.T) {
	doc := []byte(`{"country": "England", "data": {"weather": "Very Rainy", "temp": 12}}`)

	tests := []struct {
		query string
		want  bool
	}{
		{"country:England", true},
		{`data.weather:"Rainy"`, true},
		{"data.weather:Rainy", false},
		{"data.temp:12", false},
		{`data.temp:"12"`, true},
		{"data.wind:strong", false},
		{"country:France OR (country:England AND data.weather:\"Very\")", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := mustNew(t, tt.query, nil).MatchJSON(doc)
			if err != nil {
				t.Fatalf("MatchJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MatchJSON() = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := mustNew(t, "a:b", nil).MatchJSON([]byte(`{"a": `))
	if !errors.Is(err, qerrors.ErrArgument) {
		t.Errorf("MatchJSON(invalid) error = %v, want argument", err)
	}
}

func TestEngine_ResolverFailure(t *testing.T) {
	boom := errors.New("backend unavailable")
	failing := resolver.Func(func(interface{}, string) (interface{}, error) {
		return nil, boom
	})

	_, err := mustNew(t, "a:x", nil).Match(simpleData, WithResolver(failing))
	if !errors.Is(err, boom) {
		t.Errorf("Match() error = %v, want cause %v", err, boom)
	}
	if !errors.Is(err, qerrors.ErrArgument) {
		t.Errorf("Match() error = %v, want argument", err)
	}
}

func TestEngine_InternalErrors(t *testing.T) {
	// Trees that bypass validation reach the evaluator's defensive checks.
	tests := []struct {
		name string
		tree *ast.Node
	}{
		{"fuzzy", ast.NewField("a", &ast.Node{Kind: ast.KindFuzzy, Children: []*ast.Node{ast.NewTerm("x")}})},
		{"unknown kind", &ast.Node{Kind: "xor"}},
		{"unquoted phrase", ast.NewField("a", &ast.Node{Kind: ast.KindPhrase, Value: "x"})},
		{"empty group", &ast.Node{Kind: ast.KindGroup}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &evaluator{shortCircuit: true, resolver: resolver.Default, record: map[string]interface{}{"a": "x"}, logger: slog.Default()}
			_, err := ev.eval(tt.tree, nil)
			if !qerrors.IsInternal(err) {
				t.Errorf("eval() error = %v, want internal", err)
			}
		})
	}
}

func TestEngine_Explain(t *testing.T) {
	eng := mustNew(t, "country:France OR (country:England AND data.weather:Rainy)", nil)

	trace, err := eng.Explain(complexData)
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if !trace.Matched || trace.Kind != ast.KindOr {
		t.Fatalf("root = %+v", trace)
	}
	if len(trace.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(trace.Children))
	}

	first := trace.Children[0]
	if first.Matched || !first.Found || first.Value != "England" {
		t.Errorf("first = %+v", first)
	}

	out := trace.String()
	for _, want := range []string{"PASS country:France OR", "FAIL country:France (value: England)", "PASS data.weather:Rainy (value: Rainy)"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	// Short-circuited operands are recorded as skipped.
	trace, err = mustNew(t, "a:1 AND b:2", nil).Explain(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if len(trace.Children) != 2 || !trace.Children[1].Skipped {
		t.Errorf("trace = %s", trace)
	}
	if !strings.Contains(trace.String(), "(not found)") {
		t.Errorf("trace missing not found marker:\n%s", trace)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	builds  []error
	matches []bool
	errs    []error
}

func (o *recordingObserver) ObserveBuild(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.builds = append(o.builds, err)
}

func (o *recordingObserver) ObserveMatch(matched bool, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.matches = append(o.matches, matched)
	o.errs = append(o.errs, err)
}

func TestEngine_Observer(t *testing.T) {
	obs := &recordingObserver{}
	cfg := DefaultConfig().WithObserver(obs)

	eng := mustNew(t, "key1:value1", cfg)
	if _, err := New("price:[0 TO 10]", cfg); err == nil {
		t.Fatal("New() expected error")
	}
	if _, err := New("", cfg); err == nil {
		t.Fatal("New() expected error")
	}

	if len(obs.builds) != 3 || obs.builds[0] != nil || obs.builds[1] == nil || obs.builds[2] == nil {
		t.Errorf("builds = %v", obs.builds)
	}

	eng.Match(simpleData)
	eng.Match(map[string]interface{}{})
	eng.MatchJSON([]byte("nope"))

	if fmt.Sprint(obs.matches) != "[true false false]" {
		t.Errorf("matches = %v", obs.matches)
	}
	if obs.errs[0] != nil || obs.errs[1] != nil || obs.errs[2] == nil {
		t.Errorf("errs = %v", obs.errs)
	}
}

func TestEngine_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	eng := mustNew(t, "key1:value1 AND missing:x", DefaultConfig().WithLogger(logger))
	if _, err := eng.Match(simpleData); err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"query built", "component=query.engine", "field evaluated", "field not found"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestEngine_Accessors(t *testing.T) {
	cfg := DefaultConfig().
		WithShortCircuit(false).
		WithAmbiguousResolution(ResolveOr).
		WithMaxDepth(5)

	eng := mustNew(t, "b:y a:x", cfg)

	if eng.ShortCircuit() || eng.AmbiguousResolution() != ResolveOr || eng.MaxDepth() != 5 || eng.AllowBareField() {
		t.Errorf("accessors do not reflect config")
	}
	if eng.Query() != "b:y a:x" {
		t.Errorf("Query() = %q", eng.Query())
	}
	if eng.String() != "b:y OR a:x" {
		t.Errorf("String() = %q", eng.String())
	}
	if fmt.Sprint(eng.Fields()) != "[b a]" {
		t.Errorf("Fields() = %v", eng.Fields())
	}

	// Tree returns a copy.
	tree := eng.Tree()
	tree.Kind = ast.KindAnd
	if eng.Tree().Kind != ast.KindOr {
		t.Error("Tree() exposes internal state")
	}
}

func TestEngine_ConcurrentMatch(t *testing.T) {
	eng := mustNew(t, "country:France OR (country:England AND data.weather:Rainy)", nil)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := complexData
			want := true
			if i%2 == 1 {
				record = simpleData
				want = false
			}
			got, err := eng.Match(record)
			if err != nil || got != want {
				errs <- fmt.Errorf("goroutine %d: Match() = %v, %v", i, got, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestMustNew(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew() did not panic")
		}
	}()
	MustNew("price:[0 TO 10]", nil)
}

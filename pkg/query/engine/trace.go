package engine

import (
	"fmt"
	"strings"

	"querydict-hq/querydict/pkg/query/ast"
)

// Trace records how a query was evaluated against one record.
// It mirrors the normalized tree: one Trace per visited node.
type Trace struct {
	Kind    ast.Kind `json:"kind"`
	Node    string   `json:"node"`
	Matched bool     `json:"matched"`

	// Skipped is set on operands not evaluated because of short-circuiting.
	Skipped bool `json:"skipped,omitempty"`

	// Found and Value describe the resolved field value (Field nodes only).
	Found bool        `json:"found,omitempty"`
	Value interface{} `json:"value,omitempty"`

	Error    string   `json:"error,omitempty"`
	Children []*Trace `json:"children,omitempty"`
}

func newTrace(node *ast.Node) *Trace {
	return &Trace{Kind: node.Kind, Node: node.String()}
}

// child appends a trace for node. A nil receiver returns nil so evaluation
// without tracing needs no extra branches.
func (t *Trace) child(node *ast.Node) *Trace {
	if t == nil {
		return nil
	}
	c := newTrace(node)
	t.Children = append(t.Children, c)
	return c
}

func (t *Trace) skip(nodes []*ast.Node) {
	if t == nil {
		return
	}
	for _, node := range nodes {
		t.child(node).Skipped = true
	}
}

func (t *Trace) set(matched bool, err error) {
	if t == nil {
		return
	}
	t.Matched = matched
	if err != nil {
		t.Error = err.Error()
	}
}

// String renders the trace as an indented tree.
func (t *Trace) String() string {
	var sb strings.Builder
	t.write(&sb, 0)
	return sb.String()
}

func (t *Trace) write(sb *strings.Builder, indent int) {
	if t == nil {
		return
	}

	sb.WriteString(strings.Repeat("  ", indent))
	switch {
	case t.Skipped:
		sb.WriteString("SKIP ")
	case t.Error != "":
		sb.WriteString("ERR  ")
	case t.Matched:
		sb.WriteString("PASS ")
	default:
		sb.WriteString("FAIL ")
	}
	sb.WriteString(t.Node)

	if t.Kind == ast.KindField && !t.Skipped {
		if t.Found {
			fmt.Fprintf(sb, " (value: %v)", t.Value)
		} else if t.Error == "" {
			sb.WriteString(" (not found)")
		}
	}
	if t.Error != "" {
		sb.WriteString(" (")
		sb.WriteString(t.Error)
		sb.WriteString(")")
	}
	sb.WriteString("\n")

	for _, c := range t.Children {
		c.write(sb, indent+1)
	}
}

package ast

import "strings"

// Kind is the tag of an expression node.
type Kind string

const (
	KindAnd       Kind = "and"       // All children must match
	KindOr        Kind = "or"        // At least one child must match
	KindGroup     Kind = "group"     // Parenthesised expression, exactly one child
	KindField     Kind = "field"     // name:value, exactly one leaf child
	KindTerm      Kind = "term"      // Unquoted literal
	KindPhrase    Kind = "phrase"    // Quoted literal, Value keeps the quotes
	KindAmbiguous Kind = "ambiguous" // Implicit juxtaposition, removed by normalization

	// Recognised by the parser, rejected by the validator.
	KindFuzzy      Kind = "fuzzy"       // term~ or term~0.8
	KindRange      Kind = "range"       // [low TO high] or {low TO high}
	KindNot        Kind = "not"         // NOT x or !x
	KindProhibit   Kind = "prohibit"    // -x
	KindPlus       Kind = "plus"        // +x
	KindBoost      Kind = "boost"       // x^2
	KindFieldGroup Kind = "field_group" // field:(a OR b)
	KindWildcard   Kind = "wildcard"    // fo* or f?o
	KindRegex      Kind = "regex"       // /ab+c/
)

// Node is a single node in the expression tree.
// Which attributes are meaningful depends on Kind.
type Node struct {
	Kind Kind

	// Name is the dotted field path (Field).
	Name string

	// Value is the literal for Term, Phrase, Wildcard and Regex nodes, the
	// similarity for Fuzzy ("" when omitted) and the factor for Boost.
	Value string

	// Range bounds.
	Low         string
	High        string
	IncludeLow  bool
	IncludeHigh bool

	Children []*Node
	Pos      Position
}

// NewAnd creates an And node.
func NewAnd(children ...*Node) *Node {
	return &Node{Kind: KindAnd, Children: children}
}

// NewOr creates an Or node.
func NewOr(children ...*Node) *Node {
	return &Node{Kind: KindOr, Children: children}
}

// NewAmbiguous creates an Ambiguous node.
func NewAmbiguous(children ...*Node) *Node {
	return &Node{Kind: KindAmbiguous, Children: children}
}

// NewGroup wraps child in a Group node.
func NewGroup(child *Node) *Node {
	return &Node{Kind: KindGroup, Children: []*Node{child}}
}

// NewField creates a Field node with a single value child.
func NewField(name string, value *Node) *Node {
	return &Node{Kind: KindField, Name: name, Children: []*Node{value}}
}

// NewTerm creates a Term leaf.
func NewTerm(value string) *Node {
	return &Node{Kind: KindTerm, Value: value}
}

// NewPhrase creates a Phrase leaf from the unquoted text.
func NewPhrase(text string) *Node {
	return &Node{Kind: KindPhrase, Value: `"` + text + `"`}
}

// IsLeaf returns true for Term and Phrase nodes.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindTerm || n.Kind == KindPhrase
}

// IsCombinator returns true for And, Or and Ambiguous nodes.
func (n *Node) IsCombinator() bool {
	return n.Kind == KindAnd || n.Kind == KindOr || n.Kind == KindAmbiguous
}

// Child returns the first child, or nil if the node has none.
func (n *Node) Child() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// String renders the node back into query syntax.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.Kind {
	case KindAnd:
		n.writeJoined(sb, " AND ")
	case KindOr:
		n.writeJoined(sb, " OR ")
	case KindAmbiguous:
		n.writeJoined(sb, " ")
	case KindGroup, KindFieldGroup:
		sb.WriteByte('(')
		n.writeChild(sb)
		sb.WriteByte(')')
	case KindField:
		sb.WriteString(n.Name)
		sb.WriteByte(':')
		n.writeChild(sb)
	case KindTerm:
		sb.WriteString(EscapeTerm(n.Value))
	case KindPhrase, KindWildcard:
		sb.WriteString(n.Value)
	case KindRegex:
		sb.WriteByte('/')
		sb.WriteString(n.Value)
		sb.WriteByte('/')
	case KindFuzzy:
		n.writeChild(sb)
		sb.WriteByte('~')
		sb.WriteString(n.Value)
	case KindBoost:
		n.writeChild(sb)
		sb.WriteByte('^')
		sb.WriteString(n.Value)
	case KindRange:
		if n.IncludeLow {
			sb.WriteByte('[')
		} else {
			sb.WriteByte('{')
		}
		sb.WriteString(n.Low)
		sb.WriteString(" TO ")
		sb.WriteString(n.High)
		if n.IncludeHigh {
			sb.WriteByte(']')
		} else {
			sb.WriteByte('}')
		}
	case KindNot:
		sb.WriteString("NOT ")
		n.writeChild(sb)
	case KindProhibit:
		sb.WriteByte('-')
		n.writeChild(sb)
	case KindPlus:
		sb.WriteByte('+')
		n.writeChild(sb)
	default:
		sb.WriteString("<")
		sb.WriteString(string(n.Kind))
		sb.WriteString(">")
	}
}

func (n *Node) writeJoined(sb *strings.Builder, sep string) {
	for i, child := range n.Children {
		if i > 0 {
			sb.WriteString(sep)
		}
		child.write(sb)
	}
}

func (n *Node) writeChild(sb *strings.Builder) {
	if child := n.Child(); child != nil {
		child.write(sb)
	}
}

// termSpecials are the characters that must be escaped inside an unquoted term.
const termSpecials = `\:()[]{}"~^*?/+-!&| `

// EscapeTerm escapes characters that would otherwise end or alter a term.
func EscapeTerm(s string) string {
	switch s {
	case "AND", "OR", "NOT", "TO":
		return `\` + s
	}
	if !strings.ContainsAny(s, termSpecials) {
		return s
	}
	var sb strings.Builder
	for i, r := range s {
		if strings.ContainsRune(termSpecials, r) {
			// Leading modifiers and inner specials both need the escape.
			if r != '-' && r != '+' && r != '!' || i == 0 {
				sb.WriteByte('\\')
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

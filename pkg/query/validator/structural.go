package validator

import (
	"fmt"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// Messages for structural violations.
const (
	msgTooDeep        = "Query too complicated, increase max_depth if required"
	msgBareTerm       = "Query contains search term without a named field"
	msgAmbiguous      = "Query contains an ambiguous (unknown) operation, use AND or OR"
	msgFuzzy          = "Fuzzy matching with ~ is not currently supported"
	msgRange          = "Range matching with [..] or {..} is not currently supported"
	msgNegation       = "Negation with NOT or - is not currently supported"
	msgPlus           = "Required clauses with + are not currently supported"
	msgBoost          = "Boosting with ^ is not currently supported"
	msgWildcard       = "Wildcard matching with * or ? is not currently supported"
	msgRegex          = "Regular expression matching with /../ is not currently supported"
	msgFieldGroup     = "Grouping values under field %q is not currently supported"
	msgNestedField    = "Nested field %q is not supported, use a dotted path instead"
	msgFieldValue     = "Field %q must be followed by a term or phrase"
	msgUnsupported    = "Unsupported operation type %s, please file a bug"
	msgMissingOperand = "%s operation without operands"
)

// structuralWalk checks the tree in pre-order. In fail-fast mode the first
// violation stops the walk; in collect mode every violation is recorded.
type structuralWalk struct {
	opts    Options
	root    *ast.Node
	collect bool
	errors  *qerrors.ErrorList

	containsBareField bool
}

// report records a violation. It returns a non-nil error when the walk must stop.
func (w *structuralWalk) report(err *qerrors.Error) error {
	if w.collect {
		w.errors.Add(err)
		return nil
	}
	return err
}

func (w *structuralWalk) structural(pos ast.Position, message string) error {
	return w.report(qerrors.New(qerrors.ErrorTypeStructural, pos, "%s", message))
}

func (w *structuralWalk) structuralWithSuggestion(pos ast.Position, message, suggestion string) error {
	return w.report(qerrors.New(qerrors.ErrorTypeStructural, pos, "%s", message).WithSuggestion(suggestion))
}

// check validates node and its subtree. parent is the nearest ancestor that is
// not a prefix modifier.
func (w *structuralWalk) check(node, parent *ast.Node, depth int) error {
	if depth > w.opts.MaxDepth {
		return w.structuralWithSuggestion(node.Pos, msgTooDeep, qerrors.SuggestMaxDepth(ast.Depth(w.root)))
	}

	switch node.Kind {
	case ast.KindTerm, ast.KindPhrase:
		if parent != nil && parent.Kind == ast.KindField {
			return nil
		}
		if w.opts.AllowBareField {
			w.containsBareField = true
			return nil
		}
		return w.structuralWithSuggestion(node.Pos, msgBareTerm, qerrors.SuggestFieldQualifier(node.String()))

	case ast.KindAnd, ast.KindOr:
		if len(node.Children) == 0 {
			return w.report(qerrors.Internal(node.Pos, msgMissingOperand, node.Kind))
		}
		return w.checkChildren(node, node, depth)

	case ast.KindGroup:
		if len(node.Children) != 1 {
			return w.report(qerrors.Internal(node.Pos, "Group must have exactly one operand, got %d", len(node.Children)))
		}
		return w.checkChildren(node, node, depth)

	case ast.KindField:
		return w.checkField(node, depth)

	case ast.KindAmbiguous:
		if err := w.structuralWithSuggestion(node.Pos, msgAmbiguous, qerrors.SuggestExplicitOperator()); err != nil {
			return err
		}
		return w.checkChildren(node, node, depth)

	case ast.KindNot, ast.KindProhibit:
		if err := w.structural(node.Pos, msgNegation); err != nil {
			return err
		}
		return w.checkChildren(node, parent, depth)

	case ast.KindPlus:
		if err := w.structural(node.Pos, msgPlus); err != nil {
			return err
		}
		return w.checkChildren(node, parent, depth)

	case ast.KindFuzzy:
		return w.structuralWithSuggestion(node.Pos, msgFuzzy, w.exactValueSuggestion(node, parent))

	case ast.KindRange:
		return w.structural(node.Pos, msgRange)

	case ast.KindBoost:
		return w.structuralWithSuggestion(node.Pos, msgBoost, "Remove the ^"+node.Value+" suffix")

	case ast.KindWildcard:
		return w.structural(node.Pos, msgWildcard)

	case ast.KindRegex:
		return w.structural(node.Pos, msgRegex)

	case ast.KindFieldGroup:
		return w.structuralWithSuggestion(node.Pos, fmt.Sprintf(msgFieldGroup, node.Name),
			fmt.Sprintf("Repeat the field for each value, e.g. %s:a OR %s:b", node.Name, node.Name))

	default:
		return w.report(qerrors.Internal(node.Pos, msgUnsupported, node.Kind))
	}
}

func (w *structuralWalk) checkField(node *ast.Node, depth int) error {
	if len(node.Children) != 1 {
		return w.report(qerrors.Internal(node.Pos, "Field %q must have exactly one value, got %d", node.Name, len(node.Children)))
	}

	switch child := node.Child(); {
	case child.Kind == ast.KindField:
		return w.structural(child.Pos, fmt.Sprintf(msgNestedField, node.Name+":"+child.Name))
	case child.IsLeaf(), isRejectedModifier(child.Kind):
		// Rejected kinds report their own message below.
	default:
		return w.structural(child.Pos, fmt.Sprintf(msgFieldValue, node.Name))
	}

	return w.checkChildren(node, node, depth)
}

func (w *structuralWalk) checkChildren(node, parent *ast.Node, depth int) error {
	for _, child := range node.Children {
		if err := w.check(child, parent, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// exactValueSuggestion proposes replacing a fuzzy term with an exact one.
func (w *structuralWalk) exactValueSuggestion(node, parent *ast.Node) string {
	child := node.Child()
	if child == nil || !child.IsLeaf() {
		return "Remove the ~ modifier"
	}
	field := ""
	if parent != nil && parent.Kind == ast.KindField {
		field = parent.Name
	}
	return qerrors.SuggestExactValue(field, child.String())
}

// isRejectedModifier reports whether kind is parsed but never evaluated.
func isRejectedModifier(kind ast.Kind) bool {
	switch kind {
	case ast.KindFuzzy, ast.KindRange, ast.KindNot, ast.KindProhibit, ast.KindPlus,
		ast.KindBoost, ast.KindFieldGroup, ast.KindWildcard, ast.KindRegex:
		return true
	}
	return false
}

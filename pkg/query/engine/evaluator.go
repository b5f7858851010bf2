package engine

import (
	"log/slog"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
	"querydict-hq/querydict/pkg/query/resolver"
)

const (
	msgBareFieldUnimplemented = "Matching a search term without a named field is not implemented"
	msgUnsupportedKind        = "Unsupported operation type %s, please file a bug"
)

// evaluator evaluates a validated tree against one record. It is created per
// call and never shared.
type evaluator struct {
	shortCircuit bool
	resolver     resolver.Resolver
	record       interface{}
	defaultField string
	logger       *slog.Logger
	debug        bool
}

// eval evaluates node. trace may be nil.
func (ev *evaluator) eval(node *ast.Node, trace *Trace) (bool, error) {
	matched, err := ev.evalNode(node, trace)
	trace.set(matched, err)
	return matched, err
}

func (ev *evaluator) evalNode(node *ast.Node, trace *Trace) (bool, error) {
	switch node.Kind {
	case ast.KindGroup:
		if len(node.Children) != 1 {
			return false, qerrors.Internal(node.Pos, "Group with %d children, please file a bug", len(node.Children))
		}
		return ev.eval(node.Children[0], trace.child(node.Children[0]))

	case ast.KindAnd:
		return ev.evalAnd(node, trace)

	case ast.KindOr:
		return ev.evalOr(node, trace)

	case ast.KindField:
		return ev.evalField(node, trace)

	case ast.KindTerm, ast.KindPhrase:
		// Only reachable for bare terms: Field consumes its own leaf.
		return false, qerrors.New(qerrors.ErrorTypeUnimplemented, node.Pos, msgBareFieldUnimplemented).
			WithSuggestion(qerrors.SuggestFieldQualifier(node.Value))

	case ast.KindAmbiguous, ast.KindFuzzy, ast.KindRange, ast.KindNot, ast.KindProhibit,
		ast.KindPlus, ast.KindBoost, ast.KindFieldGroup, ast.KindWildcard, ast.KindRegex:
		// Removed or rejected during validation.
		return false, qerrors.Internal(node.Pos, msgUnsupportedKind, node.Kind)

	default:
		return false, qerrors.Internal(node.Pos, msgUnsupportedKind, node.Kind)
	}
}

func (ev *evaluator) evalAnd(node *ast.Node, trace *Trace) (bool, error) {
	result := true
	for i, child := range node.Children {
		ok, err := ev.eval(child, trace.child(child))
		if err != nil {
			return false, err
		}
		if !ok {
			// One false operand decides the conjunction
			if ev.shortCircuit {
				trace.skip(node.Children[i+1:])
				return false, nil
			}
			result = false
		}
	}
	return result, nil
}

func (ev *evaluator) evalOr(node *ast.Node, trace *Trace) (bool, error) {
	result := false
	for i, child := range node.Children {
		ok, err := ev.eval(child, trace.child(child))
		if err != nil {
			return false, err
		}
		if ok {
			if ev.shortCircuit {
				trace.skip(node.Children[i+1:])
				return true, nil
			}
			result = true
		}
	}
	return result, nil
}

func (ev *evaluator) evalField(node *ast.Node, trace *Trace) (bool, error) {
	leaf := node.Child()
	if len(node.Children) != 1 || !leaf.IsLeaf() {
		return false, qerrors.Internal(node.Pos, "Field %q must have a single term or phrase, please file a bug", node.Name)
	}

	value, err := ev.resolver.Resolve(ev.record, node.Name)
	if err != nil {
		if resolver.IsNotFound(err) {
			if ev.debug {
				ev.logger.Debug("field not found", "field", node.Name)
			}
			return false, nil
		}
		return false, qerrors.Argument("Could not read field %q from record: %v", node.Name, err).WithCause(err)
	}

	if trace != nil {
		trace.Found = true
		trace.Value = value
	}

	var matched bool
	switch leaf.Kind {
	case ast.KindTerm:
		matched = matchTerm(value, leaf.Value)
	case ast.KindPhrase:
		text, err := phraseText(leaf)
		if err != nil {
			return false, err
		}
		matched = matchPhrase(value, text)
	}

	if ev.debug {
		ev.logger.Debug("field evaluated",
			"field", node.Name,
			"kind", leaf.Kind,
			"expected", leaf.Value,
			"matched", matched,
		)
	}

	return matched, nil
}

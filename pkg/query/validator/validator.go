package validator

import (
	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// Result is the outcome of a successful validation.
type Result struct {
	// Tree is the normalized tree. It is the same tree passed to Validate.
	Tree *ast.Node

	// ContainsBareField is set when the tree has terms without a field
	// qualifier and the options allow them.
	ContainsBareField bool
}

// Validator normalizes and validates expression trees.
// It holds no per-call state and is safe for concurrent use.
type Validator struct {
	opts Options
}

// NewValidator creates a validator with the given options.
func NewValidator(opts Options) *Validator {
	return &Validator{opts: opts}
}

// Options returns the validator's options.
func (v *Validator) Options() Options {
	return v.opts
}

// Validate resolves Ambiguous nodes and checks the tree, stopping at the first
// violation found in pre-order, depth-first, left-to-right order.
// The tree is rewritten in place.
func (v *Validator) Validate(root *ast.Node) (*Result, error) {
	return v.run(root, false)
}

// ValidateAll behaves like Validate but reports every violation, in the same
// order, as an *errors.ErrorList. Descent stops below a node that is too deep.
func (v *Validator) ValidateAll(root *ast.Node) (*Result, error) {
	return v.run(root, true)
}

func (v *Validator) run(root *ast.Node, collect bool) (*Result, error) {
	if err := v.opts.Validate(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, qerrors.Internal(ast.Position{}, "Cannot validate an empty tree")
	}

	Normalize(root, v.opts.Resolution)

	w := &structuralWalk{
		opts:    v.opts,
		root:    root,
		collect: collect,
		errors:  qerrors.NewErrorList(),
	}
	if err := w.check(root, nil, 1); err != nil {
		return nil, err
	}
	if err := w.errors.ToError(); err != nil {
		return nil, err
	}

	return &Result{Tree: root, ContainsBareField: w.containsBareField}, nil
}

// Validate validates root with the given options.
func Validate(root *ast.Node, opts Options) (*Result, error) {
	return NewValidator(opts).Validate(root)
}

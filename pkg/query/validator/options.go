package validator

import (
	"strings"

	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// Resolution selects how implicit juxtaposition ("a:x b:y") is interpreted.
type Resolution string

const (
	ResolveAnd    Resolution = "AND"    // Rewrite to And
	ResolveOr     Resolution = "OR"     // Rewrite to Or
	ResolveReject Resolution = "Reject" // Leave in place and fail validation
)

// DefaultMaxDepth is the default maximum tree depth.
const DefaultMaxDepth = 10

var resolutionNames = []string{string(ResolveAnd), string(ResolveOr), string(ResolveReject)}

// ParseResolution parses a resolution name, case-insensitively.
// "Exception" is accepted as an alias for Reject.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND":
		return ResolveAnd, nil
	case "OR":
		return ResolveOr, nil
	case "REJECT", "EXCEPTION":
		return ResolveReject, nil
	}
	return "", qerrors.Argument("Unknown ambiguous resolution %q", s).
		WithSuggestion(qerrors.SuggestValue(s, resolutionNames))
}

// IsValid reports whether r is one of the known resolutions.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolveAnd, ResolveOr, ResolveReject:
		return true
	}
	return false
}

// Options configures validation.
type Options struct {
	// Resolution controls how Ambiguous nodes are rewritten.
	Resolution Resolution

	// AllowBareField permits terms and phrases without a field qualifier.
	AllowBareField bool

	// MaxDepth is the maximum accepted tree depth, the root being depth 1.
	MaxDepth int
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		Resolution:     ResolveAnd,
		AllowBareField: false,
		MaxDepth:       DefaultMaxDepth,
	}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if !o.Resolution.IsValid() {
		return qerrors.Argument("Unknown ambiguous resolution %q", string(o.Resolution)).
			WithSuggestion(qerrors.SuggestValue(string(o.Resolution), resolutionNames))
	}
	if o.MaxDepth <= 0 {
		return qerrors.Argument("max_depth must be a positive integer, got %d", o.MaxDepth)
	}
	return nil
}

// Package validator normalizes and validates query expression trees.
//
// Validation runs in two steps:
//
//  1. Normalization rewrites Ambiguous nodes (implicit juxtaposition) into And
//     or Or according to Options.Resolution. With ResolveReject they are left
//     in place and rejected by the next step.
//  2. A structural walk (pre-order, root at depth 1) enforces the maximum
//     depth, the bare-term policy and the set of evaluable node kinds.
//
// Every construct the parser recognises but the engine cannot evaluate (fuzzy,
// ranges, negation, boosts, wildcards, regular expressions, grouped field
// values) is rejected with a message naming the feature.
//
// # Basic Usage
//
//	v := validator.NewValidator(validator.DefaultOptions())
//	result, err := v.Validate(tree)
//	if err != nil {
//	    return err
//	}
//	if result.ContainsBareField {
//	    // a default field must be supplied when matching
//	}
//
// ValidateAll reports every violation instead of the first, for linting.
package validator

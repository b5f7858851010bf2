// Package errors provides the error taxonomy for building and matching queries.
//
// Every error raised by the parser, validator and engine is an *Error
// discriminated by its ErrorType. The types split into three families:
//
//   - query errors (ErrorTypeSyntax, ErrorTypeStructural): the query string is
//     not part of the accepted language. Reported at construction time.
//   - usage errors (ErrorTypeArgument, ErrorTypeMatchConfig, ErrorTypeUnimplemented):
//     the caller passed an invalid argument, omitted a per-call requirement, or
//     reached a capability gap.
//   - internal errors (ErrorTypeInternal): an invariant of the tree was
//     violated. These indicate a bug, not a bad query.
//
// # Matching Errors
//
// Each type has a sentinel that works with the standard errors package:
//
//	if errors.Is(err, qerrors.ErrStructural) {
//	    // reject the rule
//	}
//
// IsQueryError and IsInternal answer the two questions callers usually ask.
//
// # Error Format
//
//	[structural] Fuzzy matching with ~ is not currently supported
//	  --> column 8
//	  |
//	  | domain:foo~0.8
//	  |        ^
//	  |
//	  = suggestion: Compare against the exact value, e.g. domain:foo
//
// # Accumulating Errors
//
// ErrorList collects several errors, for example when linting a query:
//
//	list := qerrors.NewErrorList()
//	list.AddError(qerrors.ErrorTypeStructural, "Query too complicated", pos)
//	return list.ToError()
package errors

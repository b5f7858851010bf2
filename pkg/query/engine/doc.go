// Package engine compiles restricted Lucene-style queries and matches them
// against hierarchical records.
//
// # Overview
//
// An Engine is built once from a query string and reused for any number of
// records. Construction parses the query, resolves implicit juxtaposition
// ("a:x b:y") according to the configured policy, and rejects anything
// outside the accepted language: fuzzy and range queries, negation,
// wildcards, unqualified terms (unless allowed) and trees deeper than
// MaxDepth. A built Engine is immutable and safe for concurrent use.
//
// # Accepted language
//
//	field:term                exact, type-sensitive equality
//	field:"some phrase"       substring containment
//	a:x AND b:y, a:x OR b:y   boolean combination
//	(a:x OR b:y) AND c:z      grouping
//	data.weather:Rainy        dotted paths into nested records
//
// # Usage
//
//	eng, err := engine.New(`country:England AND data.weather:"Rainy"`, nil)
//	if err != nil {
//	    return err
//	}
//	ok, err := eng.Match(record)
//
// A field missing from the record never matches and is not an error.
//
// # Errors
//
// All errors are *errors.Error values from pkg/query/errors. Construction
// returns argument, syntax or structural errors. Match returns a match_config
// error when the query has unqualified terms and no default field is given,
// and an unimplemented error when such a term is evaluated.
package engine

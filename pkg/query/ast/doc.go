// Package ast defines the expression tree for querydict queries.
//
// A query such as
//
//	country:France OR (country:England AND data.weather:"Rainy")
//
// is represented as a tree of *Node values, each tagged with a Kind:
//
//	Or
//	├── Field(country)
//	│   └── Term(France)
//	└── Group
//	    └── And
//	        ├── Field(country)
//	        │   └── Term(England)
//	        └── Field(data.weather)
//	            └── Phrase("Rainy")
//
// # Node Kinds
//
// The kinds the evaluator understands are And, Or, Group, Field, Term and Phrase.
// The parser also produces Ambiguous nodes for implicit juxtaposition ("a:x b:y"),
// which the validator rewrites into And or Or, and a set of kinds for Lucene
// constructs that are recognised but never evaluated (Fuzzy, Range, Not,
// Prohibit, Plus, Boost, FieldGroup, Wildcard, Regex). Those are rejected during
// validation with a message naming the feature.
//
// # Source Positions
//
// Every node carries the Position of its first token so validation errors can
// point at the offending part of the query.
//
// # Immutability
//
// Trees are mutable while they are being normalized. Once an engine has been
// built from a tree it is never modified again; Clone returns an independent copy
// for callers that want to inspect or rewrite it.
package ast

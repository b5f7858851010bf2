// Package parser turns query strings into expression trees.
//
// The accepted grammar is the Lucene query syntax. Constructs the engine
// cannot evaluate (fuzzy, ranges, negation, boosts, wildcards, regular
// expressions, grouped field values) are still parsed into their own node
// kinds so the validator can reject them by name.
//
// Precedence, loosest first:
//
//	a:x b:y          implicit juxtaposition (Ambiguous)
//	a:x OR b:y       also ||
//	a:x AND b:y      also &&
//	NOT a:x  -a:x  +a:x  !a:x
//	a:foo~0.8  a:foo^2
//	(...)  a:x  "phrase"  [1 TO 5]  /regex/
//
// Chains of one operator are flattened, so "a:1 OR b:2 OR c:3" is a single Or
// node with three children. Keywords are case-sensitive: "and" is a term.
//
// # Basic Usage
//
//	tree, err := parser.NewParser().Parse(`country:England AND data.weather:"Rainy"`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tree.Kind) // and
package parser

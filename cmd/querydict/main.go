// Querydict matches hierarchical key-value records against a restricted
// Lucene-style query language.
//
// Usage:
//
//	# Check a query and report every problem in it
//	querydict check 'domain:example.com AND status:"active"'
//
//	# Match a query against a JSON record read from stdin
//	echo '{"domain":"example.com"}' | querydict match 'domain:example.com'
//
//	# Evaluate a rule file against JSON-lines records
//	querydict rules --file rules.yaml --records records.ndjson --format csv
//
//	# List recorded decisions
//	querydict decisions list --since 2026-01-01T00:00:00Z
//
//	# Start the HTTP service
//	querydict serve --config config.yaml
//
// match and rules exit 0 when something matched, 1 when nothing did and 2 on
// error.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}

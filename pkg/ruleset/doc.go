// Package ruleset loads named queries from YAML files and evaluates records
// against all of them.
//
// # File format
//
//	version: "1"
//	defaults:
//	  ambiguous_resolution: AND
//	  max_depth: 10
//	mode: all            # all | first
//	rules:
//	  - name: rainy-england
//	    query: 'country:England AND data.weather:"Rainy"'
//	    tags: [weather]
//	  - name: free-text
//	    query: 'storm'
//	    allow_bare_field: true
//	    default_field: message
//	    enabled: false
//
// Any engine setting in defaults can be overridden per rule. Every rule is
// compiled when the file is loaded, and any invalid rule fails the whole load.
//
// # Hot reload
//
// Manager keeps the active RuleSet behind an atomic pointer. Reload compiles
// a complete replacement before swapping it in, so evaluations never observe
// a partially loaded set, and a failed reload leaves the previous set active.
// Watch triggers Reload from file system events, debounced to avoid reload
// storms while an editor saves.
//
//	mgr, err := ruleset.NewManager(&ruleset.Config{Path: "rules/"})
//	if err != nil {
//	    return err
//	}
//	if err := mgr.Load(); err != nil {
//	    return err
//	}
//	go mgr.Watch(ctx)
//
//	result, err := mgr.Evaluate(ctx, record)
package ruleset

// Package config loads querydict configuration from YAML with environment
// variable overrides.
//
// # Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("querydict.yaml")
//
// Values are applied in order, later overriding earlier:
//
//  1. Defaults (NewDefaultConfig)
//  2. The YAML file, when a path is given
//  3. QUERYDICT_* environment variables
//
// The result is then validated and every problem is reported at once as a
// ValidationError.
//
// # Environment Variables
//
// Overrides are named QUERYDICT_SECTION_FIELD:
//
//   - QUERYDICT_ENGINE_AMBIGUOUS_RESOLUTION overrides engine.ambiguous_resolution
//   - QUERYDICT_RULES_PATH overrides rules.path
//   - QUERYDICT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - QUERYDICT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Example
//
//	engine:
//	  short_circuit: true
//	  ambiguous_resolution: AND
//	  max_depth: 10
//	rules:
//	  path: ./rules
//	  watch: true
//	decisions:
//	  enabled: true
//	  sqlite:
//	    driver: sqlite
//	    path: data/decisions.db
//	  retention:
//	    retention_days: 30
//	    prune_schedule: "0 3 * * *"
//	server:
//	  listen_address: 127.0.0.1:8080
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config

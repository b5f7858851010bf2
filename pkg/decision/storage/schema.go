package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the decision tables. Timestamps are unix nanoseconds so both
// drivers read and write them identically.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    evaluation_id TEXT NOT NULL,
    ruleset_version TEXT NOT NULL,
    record_hash TEXT NOT NULL,
    matched INTEGER NOT NULL,
    matched_rules TEXT NOT NULL,
    errors TEXT,
    evaluated INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,
    timestamp INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_ruleset_version ON decisions(ruleset_version);
CREATE INDEX IF NOT EXISTS idx_decisions_evaluation_id ON decisions(evaluation_id);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

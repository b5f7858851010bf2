package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"querydict-hq/querydict/pkg/decision"
)

// Supported database/sql driver names.
const (
	// DriverModernc is the pure Go driver from modernc.org/sqlite.
	DriverModernc = "sqlite"

	// DriverMattn is the cgo driver from github.com/mattn/go-sqlite3.
	DriverMattn = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Driver selects the database/sql driver, "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       DriverModernc,
		Path:         "data/decisions.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// dsn builds a connection string carrying the pragmas, so that every pooled
// connection gets them.
func (c *SQLiteConfig) dsn() (string, error) {
	timeout := c.BusyTimeout.Milliseconds()

	switch c.Driver {
	case DriverModernc:
		params := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", timeout)}
		if c.WALMode {
			params = append(params, "_pragma=journal_mode(WAL)")
		}
		return "file:" + c.Path + "?" + strings.Join(params, "&"), nil
	case DriverMattn:
		params := []string{fmt.Sprintf("_busy_timeout=%d", timeout)}
		if c.WALMode {
			params = append(params, "_journal_mode=WAL")
		}
		return "file:" + c.Path + "?" + strings.Join(params, "&"), nil
	default:
		return "", fmt.Errorf("unsupported driver %q (want %q or %q)", c.Driver, DriverModernc, DriverMattn)
	}
}

// SQLiteStore implements decision.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database and creates the schema if needed.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Path == "" {
		return nil, decision.NewStorageError("sqlite", "open", fmt.Errorf("path cannot be empty"))
	}

	dsn, err := config.dsn()
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "open", err)
	}

	logger := slog.Default().With("component", "decision.storage.sqlite")

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite decision store initialized",
		"driver", config.Driver,
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return decision.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return decision.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return decision.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return decision.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a decision.
func (s *SQLiteStore) Store(ctx context.Context, d *decision.Decision) error {
	matchedRules, err := json.Marshal(nonNil(d.MatchedRules))
	if err != nil {
		return decision.NewStorageError("sqlite", "store", err)
	}

	var errs interface{}
	if len(d.Errors) > 0 {
		data, err := json.Marshal(d.Errors)
		if err != nil {
			return decision.NewStorageError("sqlite", "store", err)
		}
		errs = string(data)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, evaluation_id, ruleset_version, record_hash,
			matched, matched_rules, errors, evaluated, duration_ns, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.EvaluationID, d.RuleSetVersion, d.RecordHash,
		boolToInt(d.Matched()), string(matchedRules), errs, d.Evaluated,
		int64(d.Duration), d.Timestamp.UnixNano(),
	)
	if err != nil {
		return decision.NewStorageError("sqlite", "store", err)
	}

	s.logger.Debug("decision stored", "decision_id", d.ID)
	return nil
}

// Query retrieves decisions matching the filters.
func (s *SQLiteStore) Query(ctx context.Context, q *decision.Query) ([]*decision.Decision, error) {
	if q == nil {
		q = &decision.Query{}
	}

	where, args := buildWhereClause(q)

	order := "DESC"
	if q.Ascending() {
		order = "ASC"
	}

	query := `SELECT id, evaluation_id, ruleset_version, record_hash, matched_rules,
		errors, evaluated, duration_ns, timestamp FROM decisions` + where +
		` ORDER BY timestamp ` + order + `, id ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, q.EffectiveLimit(), q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var results []*decision.Decision
	for rows.Next() {
		d, err := scanRow(rows)
		if err != nil {
			return nil, decision.NewStorageError("sqlite", "scan", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, decision.NewStorageError("sqlite", "query", err)
	}

	return results, nil
}

// Count returns the number of decisions matching the filters.
func (s *SQLiteStore) Count(ctx context.Context, q *decision.Query) (int64, error) {
	if q == nil {
		q = &decision.Query{}
	}
	where, args := buildWhereClause(q)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decisions"+where, args...).Scan(&count)
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes decisions matching the filters.
func (s *SQLiteStore) Delete(ctx context.Context, q *decision.Query) (int64, error) {
	if q == nil {
		q = &decision.Query{}
	}
	where, args := buildWhereClause(q)

	result, err := s.db.ExecContext(ctx, "DELETE FROM decisions"+where, args...)
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "delete", err)
	}

	s.logger.Debug("decisions deleted", "count", deleted)
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return decision.NewStorageError("sqlite", "close", err)
	}
	return nil
}

func buildWhereClause(q *decision.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if q.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, q.EndTime.UnixNano())
	}
	if q.RuleSetVersion != "" {
		conditions = append(conditions, "ruleset_version = ?")
		args = append(args, q.RuleSetVersion)
	}
	if q.Matched != nil {
		conditions = append(conditions, "matched = ?")
		args = append(args, boolToInt(*q.Matched))
	}
	if q.MatchedRule != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(decisions.matched_rules) WHERE json_each.value = ?)")
		args = append(args, q.MatchedRule)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*decision.Decision, error) {
	var (
		d            decision.Decision
		matchedRules string
		errs         sql.NullString
		durationNs   int64
		timestampNs  int64
	)

	err := rows.Scan(&d.ID, &d.EvaluationID, &d.RuleSetVersion, &d.RecordHash,
		&matchedRules, &errs, &d.Evaluated, &durationNs, &timestampNs)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(matchedRules), &d.MatchedRules); err != nil {
		return nil, fmt.Errorf("failed to decode matched_rules: %w", err)
	}
	if errs.Valid && errs.String != "" {
		if err := json.Unmarshal([]byte(errs.String), &d.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode errors: %w", err)
		}
	}

	d.Duration = time.Duration(durationNs)
	d.Timestamp = time.Unix(0, timestampNs).UTC()

	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

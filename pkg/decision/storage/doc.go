// Package storage provides decision.Store implementations.
//
// SQLiteStore works with either SQLite driver: "sqlite" (modernc.org/sqlite,
// pure Go, the default) or "sqlite3" (github.com/mattn/go-sqlite3, cgo).
// MemoryStore keeps decisions in a map and is used by tests and when the
// decision log is not persisted.
package storage

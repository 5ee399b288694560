// Package store implements the optional, never-authoritative persisted
// warm cache SPEC_FULL.md §3 describes: a per-file content-hash ->
// last-good generation snapshot, plus the property index (descriptions,
// deprecation, `---@source` provenance) recorded for named entities. A
// restarted server consults it to skip re-analyzing unchanged files;
// any hash mismatch falls back to the in-memory index rebuilding from
// source, so §6's "Persisted state: None required" still holds — the
// database is an accelerator, never a source of truth.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the gorm handle for the local warm cache. All methods are
// safe for concurrent use (gorm's *DB is itself safe to share).
type Store struct {
	db *gorm.DB
}

// Open connects to dsn (a file path; `:memory:` for tests) using
// glebarez/sqlite's pure-Go driver — chosen over gorm.io/driver/sqlite's
// cgo-backed mattn/go-sqlite3 dialector specifically so this local
// warm cache never requires a C toolchain, the same reasoning
// `internal/store/remote` does NOT share (it wraps a libsql connector,
// which has no pure-Go equivalent). Modeled on the teacher's
// `db.Connect`: ensure the parent directory exists, optionally verbose
// gorm logging, then AutoMigrate.
func Open(dsn string, debug bool) (*Store, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create directory: %w", err)
			}
		}
	}

	cfg := &gorm.Config{}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&FileSnapshot{}, &PropertyRecord{})
}

// Wrap builds a Store over an already-open gorm handle, migrating it
// first — internal/store/remote's entry point, which connects its own
// libsql-backed dialector and hands the resulting *gorm.DB here so the
// remote mirror shares every method this package defines instead of
// duplicating them.
func Wrap(db *gorm.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FileSnapshot is the last-good (content-hash, generation) pair
// recorded for one workspace-relative path.
type FileSnapshot struct {
	Path       string `gorm:"primaryKey"`
	ContentHash string `gorm:"index;not null"`
	Generation uint64  `gorm:"not null"`
	Class      uint8   `gorm:"not null"` // index.WorkspaceClass
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (FileSnapshot) TableName() string { return "file_snapshots" }

/*
Package sqlite provides a SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Persists the ledger's collections in one table. Each collection is an
  ordered list of JSON records, so a row is (collection, position, record).
  The ledger decodes and validates the JSON itself; this package never looks
  inside a record.

KEY TABLES:
  collection_records: one row per record, primary key (collection, position)

PUT SEMANTICS:
  Put replaces a whole collection: delete every row for the key, then insert
  the new list with positions 0..n-1. Outside WithTx that happens in its own
  SQL transaction; inside WithTx it joins the caller's.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole ledger operation, so read-modify-write cycles never interleave.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/aidledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.New(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/aid-ledger/ledger"
)

const table = "collection_records"

// insertBatch keeps each INSERT well under SQLite's bound-parameter limit.
const insertBatch = 200

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := NewWithDB(db)
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewWithDB wraps an open handle. The schema is assumed to exist.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collection_records (
		collection TEXT NOT NULL,
		position INTEGER NOT NULL,
		record TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, position)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// STORE
// =============================================================================

// Get returns a collection in position order.
func (s *Store) Get(ctx context.Context, c ledger.Collection) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(ctx, s.db, c)
}

// Put replaces a collection atomically.
func (s *Store) Put(ctx context.Context, c ledger.Collection, records []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := put(ctx, sqlTx, c, records); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func get(ctx context.Context, db conn, c ledger.Collection) ([]json.RawMessage, error) {
	query, args, err := sq.Select("record").
		From(table).
		Where(sq.Eq{"collection": string(c)}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c, err)
		}
		records = append(records, json.RawMessage(record))
	}
	return records, rows.Err()
}

func put(ctx context.Context, db conn, c ledger.Collection, records []json.RawMessage) error {
	query, args, err := sq.Delete(table).Where(sq.Eq{"collection": string(c)}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c, err)
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		insert := sq.Insert(table).Columns("collection", "position", "record", "updated_at")
		for i := start; i < end; i++ {
			insert = insert.Values(string(c), i, string(records[i]), now)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to write %s: %w", c, err)
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore reads its own uncommitted writes through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Get(ctx context.Context, c ledger.Collection) ([]json.RawMessage, error) {
	return get(ctx, ts.tx, c)
}

func (ts *txStore) Put(ctx context.Context, c ledger.Collection, records []json.RawMessage) error {
	return put(ctx, ts.tx, c, records)
}

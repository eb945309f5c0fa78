// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics while snapshotting state after every successful
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"contigalias/internal/infra/persistence/memory"
	"contigalias/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "contigalias.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const bucketAssemblies = "assemblies"

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{}
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if bucket == bucketAssemblies {
			if err := json.Unmarshal(payload, &snapshot.Assemblies); err != nil {
				return fmt.Errorf("decode assemblies: %w", err)
			}
			loaded = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	data, err := json.Marshal(snapshot.Assemblies)
	if err != nil {
		retErr = err
		return retErr
	}
	if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucketAssemblies, data); err != nil {
		retErr = fmt.Errorf("upsert %s: %w", bucketAssemblies, err)
		return retErr
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

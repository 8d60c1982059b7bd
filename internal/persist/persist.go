// Package persist is the durable implementation of the Persistence
// Broker (spec component C6): one sqlite-backed row per logical
// dataset, WAL journaling for crash-safe writes, and an xxhash
// checksum column so a torn write is reported by Read as an error
// rather than silently returned as corrupt bytes.
package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"

	"github.com/packetcraft-inc/meshnode/internal/ports"
)

// Store is a sqlite-backed ports.Persistence.
type Store struct {
	db *sql.DB
}

// Open opens or creates the dataset store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create persistence directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dataset store: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set dataset store journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set dataset store busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS datasets (
	dataset INTEGER PRIMARY KEY,
	data BLOB NOT NULL,
	checksum INTEGER NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize dataset schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Write durably stores data under dataset. The insert/update and its
// WAL commit complete before Write returns.
func (s *Store) Write(dataset ports.Dataset, data []byte) error {
	checksum := xxhash.Sum64(data)
	_, err := s.db.Exec(
		`INSERT INTO datasets (dataset, data, checksum)
		 VALUES (?, ?, ?)
		 ON CONFLICT(dataset) DO UPDATE SET
		 data = excluded.data,
		 checksum = excluded.checksum`,
		uint64(dataset), data, checksum,
	)
	if err != nil {
		return fmt.Errorf("write dataset %s: %w", dataset, err)
	}
	return nil
}

// Read loads the bytes last written for dataset. found is false if
// the dataset has never been written. A checksum mismatch (a torn
// write that nonetheless committed) is reported as an error rather
// than silently returning the corrupt bytes.
func (s *Store) Read(dataset ports.Dataset) (data []byte, found bool, err error) {
	var checksum uint64
	err = s.db.QueryRow(`SELECT data, checksum FROM datasets WHERE dataset = ?`, uint64(dataset)).Scan(&data, &checksum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read dataset %s: %w", dataset, err)
	}
	if xxhash.Sum64(data) != checksum {
		return nil, false, fmt.Errorf("read dataset %s: checksum mismatch", dataset)
	}
	return data, true, nil
}

// Erase removes a single dataset's stored bytes.
func (s *Store) Erase(dataset ports.Dataset) error {
	if _, err := s.db.Exec(`DELETE FROM datasets WHERE dataset = ?`, uint64(dataset)); err != nil {
		return fmt.Errorf("erase dataset %s: %w", dataset, err)
	}
	return nil
}

// EraseAll wipes every dataset (provisioning reset).
func (s *Store) EraseAll() error {
	if _, err := s.db.Exec(`DELETE FROM datasets`); err != nil {
		return fmt.Errorf("erase all datasets: %w", err)
	}
	return nil
}

var _ ports.Persistence = (*Store)(nil)

// Package badgerrepo persists vault state in an embedded Badger key-value
// store. Records are msgpack-encoded under id-derived keys; an index keyspace
// tracks the active name per set so uniqueness checks stay O(1).
package badgerrepo

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	recordPrefix    = "record:"
	activeIdxPrefix = "active:"
	settingsKey     = "settings"
	metaKey         = "meta"
)

// Store owns the Badger database handle shared by the repositories.
type Store struct {
	db *badger.DB
}

// Open opens or creates a Badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral database, useful for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close syncs and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for maintenance tasks such as value log GC.
func (s *Store) DB() *badger.DB {
	return s.db
}

func recordKey(id uuid.UUID) []byte {
	return []byte(recordPrefix + id.String())
}

func activeNameKey(set, name string) []byte {
	return []byte(activeIdxPrefix + strings.ToLower(set) + "\x00" + strings.ToLower(name))
}

func encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// Package storage provides the byte-keyed key-value store abstraction the
// trie commits nodes through, plus the concrete in-memory and LevelDB
// backends that implement it.
package storage

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// Database is a generic byte-keyed key-value store. This allows the trie
// (and other callers) to work against any backend, in-memory or persistent.
type Database interface {
	Get(key []byte) ([]byte, bool, error)
	Contains(key []byte) (bool, error)
	Insert(key []byte, value []byte) error
	Remove(key []byte) error
	Close() error
}

// --- In-Memory DB (for testing) ---

// MemDB is a hash-table-backed Database, acceptable for tests per the core's
// key-value store spec.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (db *MemDB) Get(key []byte) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (db *MemDB) Contains(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemDB) Insert(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Remove(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() error { return nil }

// --- Persistent DB (production) ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, bool, error) {
	value, err := l.db.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (l *LevelDB) Contains(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelDB) Insert(key []byte, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Remove(key []byte) error {
	return l.db.Delete(key, nil)
}

// Close closes the database connection.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Package cfgstore is the in-process landing surface for an external TOML
// config watcher: a read-your-writes, eventually-consistent key-value
// mapping. The core only ever reads from it; the watcher collaborator
// (out of scope here) is the sole writer.
package cfgstore

import (
	"github.com/tidwall/buntdb"

	"github.com/glidewire/hotmesh/internal/nlog"
)

// Store wraps an in-memory buntdb instance. buntdb gives us read-your-writes
// within a process (every Update is visible to the next View) without
// pulling in a networked KV store the core has no business depending on.
type Store struct {
	db *buntdb.DB
}

// Open creates an in-memory snapshot store. ":memory:" never touches disk:
// the core keeps no persisted config state of its own.
func Open() (*Store, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put is how the external watcher publishes a new value; nothing in the
// core calls it.
func (s *Store) Put(key, val string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, val, nil)
		return err
	})
}

// Get performs a read-your-writes lookup; ok is false on miss.
func (s *Store) Get(key string) (val string, ok bool) {
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, verr := tx.Get(key)
		if verr != nil {
			return verr
		}
		val = v
		return nil
	})
	if err != nil {
		if err != buntdb.ErrNotFound {
			nlog.Warningf("cfgstore: get %q: %v", key, err)
		}
		return "", false
	}
	return val, true
}

// Range calls fn for every key under prefix, stopping early if fn returns
// false, for reading a small config subtree rather than a single scalar.
func (s *Store) Range(prefix string, fn func(key, val string) bool) {
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, val string) bool {
			return fn(key, val)
		})
	})
	if err != nil {
		nlog.Warningf("cfgstore: range %q: %v", prefix, err)
	}
}

package export

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerTracker keeps seen ids on disk, for inputs whose id sets do not fit
// in memory.
type BadgerTracker struct {
	db *badger.DB
}

// NewBadgerTracker opens a tracker in dir. An empty dir keeps the store in
// memory.
func NewBadgerTracker(dir string) (*BadgerTracker, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger tracker: %w", err)
	}
	return &BadgerTracker{db: db}, nil
}

func trackerKey(prefix byte, typ, id string) []byte {
	key := make([]byte, 0, len(typ)+len(id)+3)
	key = append(key, prefix, 0)
	key = append(key, typ...)
	key = append(key, 0)
	return append(key, id...)
}

func (t *BadgerTracker) has(key []byte) (bool, error) {
	err := t.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading tracker: %w", err)
	}
	return true, nil
}

func (t *BadgerTracker) put(key []byte) error {
	if err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{})
	}); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}
	return nil
}

func (t *BadgerTracker) SeenNode(typ, id string) (bool, error) {
	return t.has(trackerKey('n', typ, id))
}

func (t *BadgerTracker) RecordNode(typ, id string) error {
	return t.put(trackerKey('n', typ, id))
}

func (t *BadgerTracker) SeenEdge(inputType, pairID string) (bool, error) {
	return t.has(trackerKey('e', inputType, pairID))
}

func (t *BadgerTracker) RecordEdge(inputType, pairID string) error {
	return t.put(trackerKey('e', inputType, pairID))
}

// Close closes the underlying store
func (t *BadgerTracker) Close() error {
	return t.db.Close()
}

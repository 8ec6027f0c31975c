package store

import "errors"

var ErrReadOnly = errors.New("store: transaction is read-only")

// Store is an ordered key/value substrate with transactional access.
type Store interface {
	Begin(update bool) (Tx, error)
	Close() error
}

// Tx is a transaction over a Store. Get returns a nil value when the key is missing.
// Keys and values returned by the transaction are only valid until the next operation,
// unless copied.
type Tx interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// Cursor iterates over the keys starting with prefix. A nil prefix selects every key.
	Cursor(forward bool, prefix []byte) (Cursor, error)
	Commit() error
	Rollback() error
}

// Cursor iterates over the keys of a transaction in order.
type Cursor interface {
	Seek(key []byte) error
	Next()
	Valid() bool
	Item() (Item, error)
	Close() error
}

type Item struct {
	Key, Value []byte
}

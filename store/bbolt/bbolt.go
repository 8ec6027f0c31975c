package bbolt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ostafen/torod/store"
	"go.etcd.io/bbolt"
	"go.uber.org/multierr"
)

type boltStore struct {
	db *bbolt.DB
}

const (
	dbFileName = "data.db"
	rootBucket = "root"
)

// Open opens (or creates) a bbolt database file inside dir.
// bbolt serializes writable transactions: a second call to Begin(true) blocks until the first one ends.
func Open(dir string) (store.Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(filepath.Join(dir, dbFileName), 0o666, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := &boltStore{db: db}
	if err := s.createRootBucketIfNotExists(); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return s, nil
}

func (s *boltStore) createRootBucketIfNotExists() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	})
}

func (s *boltStore) Begin(update bool) (store.Tx, error) {
	tx, err := s.db.Begin(update)
	if err != nil {
		return nil, err
	}
	return &boltTx{Tx: tx}, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

type boltTx struct {
	*bbolt.Tx
}

func (tx *boltTx) bucket() *bbolt.Bucket {
	return tx.Bucket([]byte(rootBucket))
}

func (tx *boltTx) Set(key, value []byte) error {
	if !tx.Writable() {
		return store.ErrReadOnly
	}
	return tx.bucket().Put(key, value)
}

func (tx *boltTx) Get(key []byte) ([]byte, error) {
	value := tx.bucket().Get(key)
	if value == nil {
		return nil, nil
	}
	return copyBytes(value), nil
}

func (tx *boltTx) Delete(key []byte) error {
	if !tx.Writable() {
		return store.ErrReadOnly
	}
	return tx.bucket().Delete(key)
}

func (tx *boltTx) Cursor(forward bool, prefix []byte) (store.Cursor, error) {
	return &boltCursor{
		Cursor:  tx.bucket().Cursor(),
		forward: forward,
		prefix:  prefix,
	}, nil
}

func (tx *boltTx) Commit() error {
	if !tx.Writable() {
		return tx.Tx.Rollback()
	}
	return tx.Tx.Commit()
}

func (tx *boltTx) Rollback() error {
	err := tx.Tx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}

type boltCursor struct {
	*bbolt.Cursor
	forward bool
	prefix  []byte

	key, value []byte
}

func (c *boltCursor) Seek(seek []byte) error {
	c.key, c.value = c.Cursor.Seek(seek)

	// position on the last key <= seek when iterating backwards
	if !c.forward {
		if c.key == nil {
			c.key, c.value = c.Cursor.Last()
		} else if !bytes.Equal(c.key, seek) {
			c.key, c.value = c.Cursor.Prev()
		}
	}
	return nil
}

func (c *boltCursor) Next() {
	if c.forward {
		c.key, c.value = c.Cursor.Next()
	} else {
		c.key, c.value = c.Cursor.Prev()
	}
}

func (c *boltCursor) Valid() bool {
	return c.key != nil && c.value != nil && bytes.HasPrefix(c.key, c.prefix)
}

func (c *boltCursor) Item() (store.Item, error) {
	return store.Item{Key: copyBytes(c.key), Value: copyBytes(c.value)}, nil
}

func (c *boltCursor) Close() error {
	return nil
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

package badger

import (
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ostafen/torod/store"
	"go.uber.org/zap"
)

const (
	GCReclaimIntervalDefault = time.Minute * 5
	GCDiscardRatioDefault    = 0.5
)

type Options struct {
	Dir               string
	InMemory          bool
	GCReclaimInterval time.Duration
	GCDiscardRatio    float64
	Logger            *zap.Logger
}

type badgerStore struct {
	db     *badger.DB
	log    *zap.Logger
	chWg   sync.WaitGroup
	chQuit chan struct{}

	gcInterval     time.Duration
	gcDiscardRatio float64
}

// Open opens a badger store in dir.
func Open(dir string, log *zap.Logger) (store.Store, error) {
	return OpenWithOptions(Options{Dir: dir, Logger: log})
}

// OpenInMemory opens a badger store which keeps everything in memory.
func OpenInMemory(log *zap.Logger) (store.Store, error) {
	return OpenWithOptions(Options{InMemory: true, Logger: log})
}

func OpenWithOptions(opts Options) (store.Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("badger")

	dir := opts.Dir
	if opts.InMemory {
		dir = ""
	}

	badgerOpts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithLogger(&badgerLogger{log: log.Sugar()})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	s := &badgerStore{
		db:             db,
		log:            log,
		chQuit:         make(chan struct{}),
		gcInterval:     opts.GCReclaimInterval,
		gcDiscardRatio: opts.GCDiscardRatio,
	}

	if s.gcInterval <= 0 {
		s.gcInterval = GCReclaimIntervalDefault
	}
	if s.gcDiscardRatio <= 0 || s.gcDiscardRatio >= 1 {
		s.gcDiscardRatio = GCDiscardRatioDefault
	}

	// the value log does not exist in memory
	if !opts.InMemory {
		s.startGC()
	}
	return s, nil
}

func (s *badgerStore) Begin(update bool) (store.Tx, error) {
	return &badgerTx{Txn: s.db.NewTransaction(update), update: update}, nil
}

func (s *badgerStore) Close() error {
	s.stopGC()
	return s.db.Close()
}

func (s *badgerStore) startGC() {
	s.chWg.Add(1)

	go func() {
		defer s.chWg.Done()

		ticker := time.NewTicker(s.gcInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.chQuit:
				return

			case <-ticker.C:
				err := s.db.RunValueLogGC(s.gcDiscardRatio)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					s.log.Error("value log gc failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *badgerStore) stopGC() {
	close(s.chQuit)
	s.chWg.Wait()
}

type badgerTx struct {
	*badger.Txn
	update bool

	// badger allows a single open iterator per read-write transaction
	openCursor *badgerCursor
}

func (tx *badgerTx) Set(key, value []byte) error {
	if !tx.update {
		return store.ErrReadOnly
	}
	return tx.Txn.Set(copyBytes(key), copyBytes(value))
}

func (tx *badgerTx) Delete(key []byte) error {
	if !tx.update {
		return store.ErrReadOnly
	}
	return tx.Txn.Delete(copyBytes(key))
}

func (tx *badgerTx) Get(key []byte) ([]byte, error) {
	item, err := tx.Txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (tx *badgerTx) Commit() error {
	tx.closeCursor()
	if !tx.update {
		tx.Txn.Discard()
		return nil
	}
	return tx.Txn.Commit()
}

func (tx *badgerTx) Rollback() error {
	tx.closeCursor()
	tx.Txn.Discard()
	return nil
}

func (tx *badgerTx) closeCursor() {
	if tx.openCursor != nil {
		tx.openCursor.Close()
	}
}

func (tx *badgerTx) Cursor(forward bool, prefix []byte) (store.Cursor, error) {
	tx.closeCursor()

	// keys outside the prefix are never read, so they do not take part in conflict detection
	opts := badger.DefaultIteratorOptions
	opts.Reverse = !forward
	opts.Prefix = prefix

	cursor := &badgerCursor{tx: tx, it: tx.NewIterator(opts), prefix: prefix}
	tx.openCursor = cursor
	return cursor, nil
}

type badgerCursor struct {
	tx     *badgerTx
	it     *badger.Iterator
	prefix []byte
	closed bool
}

func (cursor *badgerCursor) Seek(key []byte) error {
	cursor.it.Seek(key)
	return nil
}

func (cursor *badgerCursor) Next() {
	cursor.it.Next()
}

func (cursor *badgerCursor) Valid() bool {
	return !cursor.closed && cursor.it.ValidForPrefix(cursor.prefix)
}

func (cursor *badgerCursor) Item() (store.Item, error) {
	item := cursor.it.Item()

	value, err := item.ValueCopy(nil)
	return store.Item{Key: item.KeyCopy(nil), Value: value}, err
}

func (cursor *badgerCursor) Close() error {
	if cursor.closed {
		return nil
	}
	cursor.closed = true
	cursor.it.Close()

	if cursor.tx.openCursor == cursor {
		cursor.tx.openCursor = nil
	}
	return nil
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// badgerLogger routes badger internal logs to zap.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

package torod

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/ostafen/torod/store"
	badgerstore "github.com/ostafen/torod/store/badger"
	bboltstore "github.com/ostafen/torod/store/bbolt"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownStore = errors.New("unknown store engine")
	ErrDBClosed     = errors.New("database is closed")
)

// DB represents the entry point of each torod database.
type DB struct {
	dir   string
	store store.Store
	conf  *Config
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

func openStore(dir string, c *Config) (store.Store, error) {
	if c.Store != nil {
		return c.Store, nil
	}

	switch c.StoreEngine {
	case StoreEngineBadger:
		return badgerstore.OpenWithOptions(badgerstore.Options{
			Dir:               dir,
			InMemory:          c.InMemory,
			GCReclaimInterval: c.GCReclaimInterval,
			GCDiscardRatio:    c.GCDiscardRatio,
			Logger:            c.Logger,
		})
	case StoreEngineBbolt:
		if c.InMemory {
			return nil, fmt.Errorf("%s does not support in-memory mode", StoreEngineBbolt)
		}
		return bboltstore.Open(dir)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, c.StoreEngine)
}

// Open opens a database in dir. When in-memory mode is enabled, dir is ignored.
func Open(dir string, opts ...Option) (*DB, error) {
	c, err := defaultConfig().applyOptions(opts)
	if err != nil {
		return nil, err
	}

	s, err := openStore(dir, c)
	if err != nil {
		return nil, err
	}

	db := &DB{
		dir:      dir,
		store:    s,
		conf:     c,
		log:      c.Logger,
		sessions: make(map[uuid.UUID]*Session),
	}
	db.log.Info("database opened", zap.String("dir", dir), zap.String("engine", c.StoreEngine), zap.Bool("inMemory", c.InMemory))
	return db, nil
}

// NewSession creates a session. Operations of a session run sequentially, in submission order.
func (db *DB) NewSession() (*Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDBClosed
	}

	s := newSession(db)
	db.sessions[s.id] = s
	return s, nil
}

func (db *DB) removeSession(id uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.sessions, id)
}

// Close closes every open session, then the underlying store.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true

	sessions := make([]*Session, 0, len(db.sessions))
	for _, s := range db.sessions {
		sessions = append(sessions, s)
	}
	db.mu.Unlock()

	var (
		errMu sync.Mutex
		err   error
	)

	var g errgroup.Group
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			closeErr := s.Close()

			errMu.Lock()
			err = multierr.Append(err, closeErr)
			errMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	err = multierr.Append(err, db.store.Close())
	db.log.Info("database closed", zap.Int("sessions", len(sessions)), zap.Error(err))
	return err
}

package torod

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/ostafen/torod/d2r"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrSessionClosed = errors.New("session is closed")

// Session owns the executor its transactions run on.
// A session must not be closed from within one of its own operations.
type Session struct {
	id         uuid.UUID
	db         *DB
	exec       *executor.Executor
	translator *d2r.Translator
	log        *zap.Logger

	mu     sync.Mutex
	txs    []*Transaction
	closed bool
}

func newSession(db *DB) *Session {
	id := uuid.Must(uuid.NewV4())
	log := db.log.Named("session").With(zap.Stringer("session", id))

	return &Session{
		id:         id,
		db:         db,
		exec:       executor.New(id.String(), log.Named("executor")),
		translator: d2r.NewTranslator(db.conf.MaxDepth),
		log:        log,
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Begin starts a new transaction bound to the session.
func (s *Session) Begin(ctx context.Context) (*Transaction, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, ErrSessionClosed
	}

	st, err := storage.Begin(ctx, s.exec, s.db.store, storage.Options{
		MaxRowSize: s.db.conf.MaxRowSize,
		Logger:     s.log,
	}).Await(ctx)
	if err != nil {
		return nil, err
	}

	tx := newTransaction(s.exec, st, s.translator, st, s.log)

	s.mu.Lock()
	s.txs = append(s.txs, tx)
	s.mu.Unlock()
	return tx, nil
}

// Close discards the transactions left open and stops the session executor.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	txs := s.txs
	s.txs = nil
	s.mu.Unlock()

	ctx := context.Background()

	var err error
	for _, tx := range txs {
		_, closeErr := tx.Close(ctx).Await(ctx)
		err = multierr.Append(err, closeErr)
	}

	err = multierr.Append(err, s.exec.Close())
	s.db.removeSession(s.id)
	s.log.Debug("session closed", zap.Int("transactions", len(txs)))
	return err
}

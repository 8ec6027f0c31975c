// Package storage implements transactional document storage over a key/value store.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const MaxRowSizeDefault = 1 << 20

var (
	ErrTransactionClosed  = errors.New("transaction is closed")
	ErrCollectionNotExist = errors.New("no such collection")
	ErrCursorNotExist     = errors.New("no such cursor")
	ErrRowTooLarge        = errors.New("row exceeds maximum size")
)

type State int

const (
	Open State = iota
	Committed
	RolledBack
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Options struct {
	MaxRowSize int
	Logger     *zap.Logger
}

// Transaction is a writable store transaction owned by a single session.
// Every operation runs on the session executor and returns a future.
type Transaction struct {
	id         uuid.UUID
	exec       *executor.Executor
	tx         store.Tx
	log        *zap.Logger
	maxRowSize int

	state   State
	undo    undoLog
	cursors map[CursorID]*cursor
}

// Begin starts a writable transaction on s.
func Begin(ctx context.Context, exec *executor.Executor, s store.Store, opts Options) *executor.Future[*Transaction] {
	return executor.Submit(ctx, exec, func(ctx context.Context) (*Transaction, error) {
		tx, err := s.Begin(true)
		if err != nil {
			return nil, err
		}

		if opts.MaxRowSize <= 0 {
			opts.MaxRowSize = MaxRowSizeDefault
		}

		log := opts.Logger
		if log == nil {
			log = zap.NewNop()
		}

		id := uuid.Must(uuid.NewV4())
		t := &Transaction{
			id:         id,
			exec:       exec,
			tx:         tx,
			log:        log.Named("storage").With(zap.Stringer("txn", id)),
			maxRowSize: opts.MaxRowSize,
			state:      Open,
			undo:       undoLog{tx: tx},
			cursors:    make(map[CursorID]*cursor),
		}
		t.log.Debug("transaction started")
		return t, nil
	})
}

func (t *Transaction) ID() uuid.UUID {
	return t.id
}

// State returns the lifecycle state of the transaction.
func (t *Transaction) State(ctx context.Context) *executor.Future[State] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (State, error) {
		return t.state, nil
	})
}

func (t *Transaction) checkOpen() error {
	if t.state != Open {
		return fmt.Errorf("%w: transaction is %s", ErrTransactionClosed, t.state)
	}
	return nil
}

func (t *Transaction) finish(state State) {
	t.state = state
	t.cursors = nil
	t.undo = undoLog{}
}

func (t *Transaction) Commit(ctx context.Context) *executor.Future[struct{}] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (struct{}, error) {
		if err := t.checkOpen(); err != nil {
			return struct{}{}, err
		}

		if err := t.tx.Commit(); err != nil {
			t.log.Warn("commit failed", zap.Error(err))
			t.finish(RolledBack)
			return struct{}{}, multierr.Append(err, t.tx.Rollback())
		}

		t.finish(Committed)
		t.log.Debug("transaction committed")
		return struct{}{}, nil
	})
}

func (t *Transaction) Rollback(ctx context.Context) *executor.Future[struct{}] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (struct{}, error) {
		if err := t.checkOpen(); err != nil {
			return struct{}{}, err
		}

		t.finish(RolledBack)
		t.log.Debug("transaction rolled back")
		return struct{}{}, t.tx.Rollback()
	})
}

// Close discards the transaction if still open. Closing a finished transaction is a no-op.
func (t *Transaction) Close(ctx context.Context) *executor.Future[struct{}] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (struct{}, error) {
		if t.state != Open {
			return struct{}{}, nil
		}

		t.finish(Closed)
		t.log.Debug("transaction closed")
		return struct{}{}, t.tx.Rollback()
	})
}

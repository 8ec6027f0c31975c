package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("executor is closed")

type ownerKey struct{}

// Executor runs submitted tasks one at a time, in submission order, on a dedicated goroutine.
type Executor struct {
	name string
	log  *zap.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool
	notify chan struct{}
	wg     sync.WaitGroup
}

// New starts an executor. A nil logger disables logging.
func New(name string, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}

	e := &Executor{
		name:   name,
		log:    log.With(zap.String("executor", name)),
		notify: make(chan struct{}, 1),
	}

	e.wg.Add(1)
	go e.loop()
	return e
}

func (e *Executor) Name() string {
	return e.name
}

func (e *Executor) loop() {
	defer e.wg.Done()

	for {
		task, ok := e.next()
		if !ok {
			return
		}
		task()
	}
}

// next blocks until a task is available. It returns false once
// the executor is closed and the queue has been drained.
func (e *Executor) next() (func(), bool) {
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			task := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return task, true
		}
		closed := e.closed
		e.mu.Unlock()

		if closed {
			return nil, false
		}
		<-e.notify
	}
}

func (e *Executor) enqueue(task func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.queue = append(e.queue, task)

	select {
	case e.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting tasks and waits for the queued ones to complete.
// It must not be called from within a task.
func (e *Executor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}
	e.wg.Wait()
	return nil
}

// Running reports whether ctx belongs to a task of e.
func (e *Executor) Running(ctx context.Context) bool {
	owner, _ := ctx.Value(ownerKey{}).(*Executor)
	return owner == e
}

// Submit schedules fn on e and returns its future.
// When called from a task of the same executor, fn runs inline and the returned
// future is already complete. This lets a task wait on its own sub-operations
// without deadlocking the executor.
// Cancelling ctx does not cancel fn.
func Submit[T any](ctx context.Context, e *Executor, fn func(ctx context.Context) (T, error)) *Future[T] {
	if e.Running(ctx) {
		value, err := run(ctx, e, fn)
		f := newFuture[T]()
		f.complete(value, err)
		return f
	}

	taskCtx := context.WithValue(context.WithoutCancel(ctx), ownerKey{}, e)

	f := newFuture[T]()
	err := e.enqueue(func() {
		f.complete(run(taskCtx, e, fn))
	})
	if err != nil {
		return Failed[T](err)
	}
	return f
}

func run[T any](ctx context.Context, e *Executor, fn func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("task panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

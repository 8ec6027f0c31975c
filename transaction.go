package torod

import (
	"context"
	"fmt"

	"github.com/ostafen/torod/d2r"
	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/storage"
	"github.com/ostafen/torod/txn"
	"go.uber.org/zap"
)

// DocumentStore persists split documents inside a transaction.
type DocumentStore interface {
	InsertSplitDocuments(ctx context.Context, collection string, docs []*d2r.SplitDocument, mode txn.WriteFailMode) *executor.Future[txn.InsertResponse]
	Delete(ctx context.Context, collection string, deletes []txn.DeleteOperation, mode txn.WriteFailMode) *executor.Future[txn.DeleteResponse]
	DropCollection(ctx context.Context, collection string) *executor.Future[struct{}]
	Commit(ctx context.Context) *executor.Future[struct{}]
	Rollback(ctx context.Context) *executor.Future[struct{}]
	Close(ctx context.Context) *executor.Future[struct{}]
}

// Translator converts a document to its stored representation.
type Translator interface {
	Translate(ctx context.Context, collection string, doc *d.Document) (*d2r.SplitDocument, error)
}

// CandidateReader evaluates queries against the documents visible to a transaction.
type CandidateReader interface {
	OpenCursor(ctx context.Context, q *query.Query) *executor.Future[storage.CursorID]
	ReadAll(ctx context.Context, id storage.CursorID) *executor.Future[[]*d.Document]
	Count(ctx context.Context, collection string) *executor.Future[int]
}

// Transaction is the handle used to read and modify documents inside a session transaction.
// Every method returns immediately with a future; operations complete in submission order.
type Transaction struct {
	exec       *executor.Executor
	store      DocumentStore
	translator Translator
	reader     CandidateReader
	log        *zap.Logger
}

func newTransaction(exec *executor.Executor, store DocumentStore, translator Translator, reader CandidateReader, log *zap.Logger) *Transaction {
	return &Transaction{
		exec:       exec,
		store:      store,
		translator: translator,
		reader:     reader,
		log:        log,
	}
}

// Close releases the transaction, discarding it if neither committed nor rolled back.
func (t *Transaction) Close(ctx context.Context) *executor.Future[struct{}] {
	return t.store.Close(ctx)
}

// Commit makes the writes of the transaction durable.
func (t *Transaction) Commit(ctx context.Context) *executor.Future[struct{}] {
	return t.store.Commit(ctx)
}

// Rollback discards the writes of the transaction.
func (t *Transaction) Rollback(ctx context.Context) *executor.Future[struct{}] {
	return t.store.Rollback(ctx)
}

// InsertDocuments stores docs in collection. A document which cannot be translated
// fails the whole call with a *txn.FatalError.
func (t *Transaction) InsertDocuments(ctx context.Context, collection string, docs []*d.Document, mode txn.WriteFailMode) *executor.Future[txn.InsertResponse] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (txn.InsertResponse, error) {
		splits := make([]*d2r.SplitDocument, 0, len(docs))
		for i, doc := range docs {
			split, err := t.translator.Translate(ctx, collection, doc)
			if err != nil {
				t.log.Error("document translation failed", zap.String("collection", collection), zap.Int("index", i), zap.Error(err))
				return txn.InsertResponse{}, txn.NewFatalError("insert", fmt.Errorf("translate document %d: %w", i, err))
			}
			splits = append(splits, split)
		}
		return t.store.InsertSplitDocuments(ctx, collection, splits, mode).Await(ctx)
	})
}

// DropCollection removes collection and all its documents.
func (t *Transaction) DropCollection(ctx context.Context, collection string) *executor.Future[struct{}] {
	return t.store.DropCollection(ctx, collection)
}

// Delete removes the documents matched by each operation, honoring mode on failures.
func (t *Transaction) Delete(ctx context.Context, collection string, deletes []txn.DeleteOperation, mode txn.WriteFailMode) *executor.Future[txn.DeleteResponse] {
	return t.store.Delete(ctx, collection, deletes, mode)
}

// Find returns the documents selected by q.
func (t *Transaction) Find(ctx context.Context, q *query.Query) *executor.Future[[]*d.Document] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) ([]*d.Document, error) {
		return t.readAll(ctx, q)
	})
}

func (t *Transaction) readAll(ctx context.Context, q *query.Query) ([]*d.Document, error) {
	id, err := t.reader.OpenCursor(ctx, q).Await(ctx)
	if err != nil {
		return nil, err
	}
	return t.reader.ReadAll(ctx, id).Await(ctx)
}

// Count returns the number of documents in collection.
func (t *Transaction) Count(ctx context.Context, collection string) *executor.Future[int] {
	return t.reader.Count(ctx, collection)
}

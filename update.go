package torod

import (
	"context"
	"errors"
	"fmt"

	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/txn"
	"github.com/ostafen/torod/update"
	"go.uber.org/zap"
)

// ErrCountMismatch is wrapped by the fatal error raised when the store reports a different
// number of deleted or inserted documents than the update engine submitted.
var ErrCountMismatch = errors.New("persisted count does not match the requested count")

// Update applies each operation in order. Every changed document is replaced by deleting it
// and inserting its new version; both writes are transactional, whatever mode is.
//
// A failure caused by an operation is reported in the response at the operation index and
// does not affect the other operations. Any other failure aborts the batch and fails the
// returned future with a *txn.FatalError.
//
// Batches containing an operation with InsertIfNotFound are rejected before reading any document.
func (t *Transaction) Update(ctx context.Context, collection string, updates []txn.UpdateOperation, mode txn.WriteFailMode) *executor.Future[txn.UpdateResponse] {
	for _, op := range updates {
		if op.InsertIfNotFound {
			return executor.Failed[txn.UpdateResponse](txn.NewUserError(txn.ErrUpsertNotSupported))
		}
	}

	return executor.Submit(ctx, t.exec, func(ctx context.Context) (txn.UpdateResponse, error) {
		builder := txn.NewUpdateResponseBuilder()

		for i, op := range updates {
			err := t.updateOne(ctx, collection, op, builder)
			if err == nil {
				continue
			}

			if txn.IsUserError(err) {
				builder.AddError(txn.NewWriteError(i, err))
				continue
			}

			fatal := asFatal("update", fmt.Errorf("operation %d: %w", i, err))
			t.log.Error("update aborted", zap.String("collection", collection), zap.Int("index", i), zap.Error(fatal))
			return txn.UpdateResponse{}, fatal
		}

		res := builder.Build()
		t.log.Debug("update",
			zap.String("collection", collection),
			zap.Stringer("mode", mode),
			zap.Int("candidates", res.Candidates),
			zap.Int("modified", res.Modified),
			zap.Int("errors", len(res.Errors)))
		return res, nil
	})
}

func asFatal(op string, err error) *txn.FatalError {
	var fatal *txn.FatalError
	if errors.As(err, &fatal) {
		return fatal
	}
	return txn.NewFatalError(op, err)
}

func (t *Transaction) updateOne(ctx context.Context, collection string, op txn.UpdateOperation, builder *txn.UpdateResponseBuilder) error {
	if op.Action == nil {
		return txn.NewUserError(update.ErrNilAction)
	}

	candidates, err := t.readAll(ctx, query.NewQuery(collection).Where(op.Criteria))
	if err != nil {
		return err
	}
	builder.AddCandidates(len(candidates))

	toDelete, toInsert := newDocSet(), newDocSet()
	for _, candidate := range candidates {
		updated, err := update.Apply(candidate, op.Action)
		if err != nil {
			return txn.NewUserError(err)
		}

		if updated == nil {
			continue
		}

		if _, err := toDelete.Add(candidate); err != nil {
			return txn.NewFatalError("update", err)
		}

		if _, err := toInsert.Add(updated); err != nil {
			return txn.NewUserError(err)
		}

		if op.JustOne {
			break
		}
	}

	if toDelete.Len() > 0 {
		if err := t.deleteExact(ctx, collection, toDelete.Documents()); err != nil {
			return err
		}
	}

	if toInsert.Len() > 0 {
		res, err := t.InsertDocuments(ctx, collection, toInsert.Documents(), txn.Transactional).Await(ctx)
		if err != nil {
			return asFatal("update", fmt.Errorf("insert updated documents: %w", err))
		}

		if res.Inserted != toInsert.Len() {
			return txn.NewFatalError("update", fmt.Errorf("%w: inserted %d documents, expected %d", ErrCountMismatch, res.Inserted, toInsert.Len()))
		}
	}

	builder.AddModified(toInsert.Len())
	return nil
}

// deleteExact deletes one stored copy of each document.
func (t *Transaction) deleteExact(ctx context.Context, collection string, docs []*d.Document) error {
	deletes := make([]txn.DeleteOperation, 0, len(docs))
	for _, doc := range docs {
		deletes = append(deletes, txn.DeleteOperation{
			Criteria: query.Equals(doc),
			JustOne:  true,
		})
	}

	res, err := t.Delete(ctx, collection, deletes, txn.Transactional).Await(ctx)
	if err != nil {
		return asFatal("update", fmt.Errorf("delete candidates: %w", err))
	}

	if res.Deleted != len(docs) {
		return txn.NewFatalError("update", fmt.Errorf("%w: deleted %d documents, expected %d", ErrCountMismatch, res.Deleted, len(docs)))
	}
	return nil
}

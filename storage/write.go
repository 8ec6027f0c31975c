package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ostafen/torod/d2r"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/txn"
	"go.uber.org/zap"
)

// handleItemError applies the write fail mode to the error of the item at index.
// It returns true if the batch must stop.
func (t *Transaction) handleItemError(mode txn.WriteFailMode, itemMark int, index int, err error, errs *[]txn.WriteError) (bool, error) {
	if !txn.IsUserError(err) {
		return true, err
	}

	writeErr := txn.NewWriteError(index, err)
	if mode == txn.Transactional {
		if err := t.undo.revert(0); err != nil {
			return true, err
		}
		*errs = []txn.WriteError{writeErr}
		return true, nil
	}

	// a failed item never leaves rows behind
	if err := t.undo.revert(itemMark); err != nil {
		return true, err
	}
	*errs = append(*errs, writeErr)
	return false, nil
}

func (t *Transaction) beginBatch(mode txn.WriteFailMode) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	if !mode.Valid() {
		return txn.UserErrorf("invalid write fail mode %s", mode)
	}
	t.undo.reset()
	return nil
}

// InsertSplitDocuments stores docs in collection, creating the collection if it does not exist.
func (t *Transaction) InsertSplitDocuments(ctx context.Context, collection string, docs []*d2r.SplitDocument, mode txn.WriteFailMode) *executor.Future[txn.InsertResponse] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (txn.InsertResponse, error) {
		if err := t.beginBatch(mode); err != nil {
			return txn.InsertResponse{}, err
		}
		defer t.undo.reset()

		meta, err := t.getOrCreateCollection(collection)
		if err != nil {
			return txn.InsertResponse{}, err
		}

		res := txn.InsertResponse{}
		aborted := false
		for i, doc := range docs {
			mark := t.undo.mark()

			err := t.insertSplitDocument(collection, meta, doc)
			if err == nil {
				res.Inserted++
				continue
			}

			stop, err := t.handleItemError(mode, mark, i, err, &res.Errors)
			if err != nil {
				return txn.InsertResponse{}, err
			}

			if stop {
				res.Inserted = 0
				aborted = true
				break
			}
		}

		// sequence numbers consumed by failed items are not reused
		if !aborted && len(docs) > 0 {
			if err := t.saveCollectionMeta(collection, meta); err != nil {
				return txn.InsertResponse{}, err
			}
		}

		t.log.Debug("insert",
			zap.String("collection", collection),
			zap.Stringer("mode", mode),
			zap.Int("inserted", res.Inserted),
			zap.Int("errors", len(res.Errors)))
		return res, nil
	})
}

func (t *Transaction) getOrCreateCollection(collection string) (*collectionMetadata, error) {
	if collection == "" {
		return nil, txn.UserErrorf("empty collection name")
	}

	meta, err := getCollectionMeta(t.tx, collection)
	if errors.Is(err, ErrCollectionNotExist) {
		meta = &collectionMetadata{CreatedAt: time.Now()}
		return meta, t.saveCollectionMeta(collection, meta)
	}
	return meta, err
}

func (t *Transaction) saveCollectionMeta(collection string, meta *collectionMetadata) error {
	rawMeta, err := encodeCollectionMeta(meta)
	if err != nil {
		return err
	}
	return t.undo.set(collectionKey(collection), rawMeta)
}

func (t *Transaction) insertSplitDocument(collection string, meta *collectionMetadata, doc *d2r.SplitDocument) error {
	if doc == nil || len(doc.Rows) == 0 || !doc.Rows[0].IsRoot() {
		return txn.UserErrorf("malformed split document")
	}

	encoded := make([][]byte, 0, len(doc.Rows))
	for i, row := range doc.Rows {
		data, err := d2r.EncodeRow(row)
		if err != nil {
			return txn.NewUserError(err)
		}

		if len(data) > t.maxRowSize {
			return txn.UserErrorf("row %d is %d bytes, at most %d allowed: %w", i, len(data), t.maxRowSize, ErrRowTooLarge)
		}
		encoded = append(encoded, data)
	}

	seq := meta.NextSeq
	meta.NextSeq++

	for i, data := range encoded {
		if err := t.undo.set(rowKey(collection, seq, i), data); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the documents matching each operation. Operations are applied in order,
// each one observing the effects of the previous ones.
func (t *Transaction) Delete(ctx context.Context, collection string, deletes []txn.DeleteOperation, mode txn.WriteFailMode) *executor.Future[txn.DeleteResponse] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (txn.DeleteResponse, error) {
		if err := t.beginBatch(mode); err != nil {
			return txn.DeleteResponse{}, err
		}
		defer t.undo.reset()

		res := txn.DeleteResponse{}
		for i, op := range deletes {
			mark := t.undo.mark()

			n, err := t.deleteMatching(collection, op)
			if err == nil {
				res.Deleted += n
				continue
			}

			stop, err := t.handleItemError(mode, mark, i, err, &res.Errors)
			if err != nil {
				return txn.DeleteResponse{}, err
			}

			if stop {
				res.Deleted = 0
				break
			}
		}

		t.log.Debug("delete",
			zap.String("collection", collection),
			zap.Stringer("mode", mode),
			zap.Int("deleted", res.Deleted),
			zap.Int("errors", len(res.Errors)))
		return res, nil
	})
}

func (t *Transaction) deleteMatching(collection string, op txn.DeleteOperation) (int, error) {
	if err := query.Validate(op.Criteria); err != nil {
		return 0, txn.NewUserError(err)
	}

	docs, err := t.scanDocuments(collection)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if op.Criteria != nil && !op.Criteria.Satisfy(doc.doc) {
			continue
		}

		for _, key := range doc.keys {
			if err := t.undo.delete(key); err != nil {
				return deleted, err
			}
		}
		deleted++

		if op.JustOne {
			break
		}
	}
	return deleted, nil
}

// DropCollection removes collection and all its documents.
func (t *Transaction) DropCollection(ctx context.Context, collection string) *executor.Future[struct{}] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (struct{}, error) {
		if err := t.checkOpen(); err != nil {
			return struct{}{}, err
		}

		if _, err := getCollectionMeta(t.tx, collection); err != nil {
			return struct{}{}, fmt.Errorf("drop %q: %w", collection, err)
		}

		keys, err := collectKeys(t.tx, documentKeyPrefix(collection))
		if err != nil {
			return struct{}{}, err
		}

		for _, key := range append(keys, collectionKey(collection)) {
			if err := t.tx.Delete(key); err != nil {
				return struct{}{}, err
			}
		}

		t.log.Debug("collection dropped", zap.String("collection", collection), zap.Int("rows", len(keys)))
		return struct{}{}, nil
	})
}

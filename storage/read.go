package storage

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/google/orderedcode"
	"github.com/ostafen/torod/d2r"
	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/store"
	"github.com/ostafen/torod/txn"
	"go.uber.org/zap"
)

type storedDocument struct {
	seq  uint64
	keys [][]byte
	doc  *d.Document
}

type rawDocument struct {
	seq  uint64
	keys [][]byte
	rows []d2r.Row
}

// scanDocuments reads every document of collection, in insertion order.
// A missing collection has no documents.
func (t *Transaction) scanDocuments(collection string) ([]storedDocument, error) {
	prefix := documentKeyPrefix(collection)

	var raws []*rawDocument
	err := iteratePrefix(t.tx, prefix, func(item store.Item) error {
		seq, _, err := parseRowKey(prefix, item.Key)
		if err != nil {
			return err
		}

		row, err := d2r.DecodeRow(item.Value)
		if err != nil {
			return fmt.Errorf("decode row %x: %w", item.Key, err)
		}

		if len(raws) == 0 || raws[len(raws)-1].seq != seq {
			raws = append(raws, &rawDocument{seq: seq})
		}
		raw := raws[len(raws)-1]
		raw.keys = append(raw.keys, item.Key)
		raw.rows = append(raw.rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs := make([]storedDocument, 0, len(raws))
	for _, raw := range raws {
		doc, err := d2r.Join(raw.rows)
		if err != nil {
			return nil, fmt.Errorf("document %d of collection %q: %w", raw.seq, collection, err)
		}
		docs = append(docs, storedDocument{seq: raw.seq, keys: raw.keys, doc: doc})
	}
	return docs, nil
}

type CursorID uuid.UUID

func (id CursorID) String() string {
	return uuid.UUID(id).String()
}

type cursor struct {
	docs []*d.Document
	pos  int
}

func (c *cursor) next(n int) []*d.Document {
	remaining := len(c.docs) - c.pos
	if n <= 0 || n > remaining {
		n = remaining
	}

	batch := c.docs[c.pos : c.pos+n]
	c.pos += n
	return batch
}

// OpenCursor evaluates q and returns a cursor over its results.
// Results reflect the writes performed by the transaction so far.
func (t *Transaction) OpenCursor(ctx context.Context, q *query.Query) *executor.Future[CursorID] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (CursorID, error) {
		if err := t.checkOpen(); err != nil {
			return CursorID{}, err
		}

		if err := query.Validate(q.Criteria()); err != nil {
			return CursorID{}, txn.NewUserError(err)
		}

		docs, err := t.scanDocuments(q.Collection())
		if err != nil {
			return CursorID{}, err
		}

		matching := make([]*d.Document, 0, len(docs))
		for _, doc := range docs {
			if q.Satisfy(doc.doc) {
				matching = append(matching, doc.doc)
			}
		}

		id, err := uuid.NewV4()
		if err != nil {
			return CursorID{}, err
		}

		cursorID := CursorID(id)
		c := &cursor{docs: q.Apply(matching)}
		t.cursors[cursorID] = c

		t.log.Debug("cursor opened",
			zap.Stringer("cursor", cursorID),
			zap.String("collection", q.Collection()),
			zap.String("criteria", query.Describe(q.Criteria())),
			zap.Int("results", len(c.docs)))
		return cursorID, nil
	})
}

func (t *Transaction) getCursor(id CursorID) (*cursor, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	c, ok := t.cursors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCursorNotExist, id)
	}
	return c, nil
}

// Read returns up to n documents from the cursor. A non positive n reads all the remaining documents.
func (t *Transaction) Read(ctx context.Context, id CursorID, n int) *executor.Future[[]*d.Document] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) ([]*d.Document, error) {
		c, err := t.getCursor(id)
		if err != nil {
			return nil, err
		}
		return c.next(n), nil
	})
}

// ReadAll drains the cursor and closes it.
func (t *Transaction) ReadAll(ctx context.Context, id CursorID) *executor.Future[[]*d.Document] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) ([]*d.Document, error) {
		c, err := t.getCursor(id)
		if err != nil {
			return nil, err
		}
		delete(t.cursors, id)
		return c.next(0), nil
	})
}

func (t *Transaction) CloseCursor(ctx context.Context, id CursorID) *executor.Future[struct{}] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (struct{}, error) {
		if _, err := t.getCursor(id); err != nil {
			return struct{}{}, err
		}
		delete(t.cursors, id)
		return struct{}{}, nil
	})
}

// Count returns the number of documents in collection.
func (t *Transaction) Count(ctx context.Context, collection string) *executor.Future[int] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) (int, error) {
		if err := t.checkOpen(); err != nil {
			return 0, err
		}

		if _, err := getCollectionMeta(t.tx, collection); err != nil {
			return 0, err
		}

		docs, err := t.scanDocuments(collection)
		return len(docs), err
	})
}

func (t *Transaction) ListCollections(ctx context.Context) *executor.Future[[]string] {
	return executor.Submit(ctx, t.exec, func(ctx context.Context) ([]string, error) {
		if err := t.checkOpen(); err != nil {
			return nil, err
		}

		collections := make([]string, 0)
		err := iteratePrefix(t.tx, collectionKeyPrefix(), func(item store.Item) error {
			var tag, name string
			if _, err := orderedcode.Parse(string(item.Key), &tag, &name); err != nil {
				return err
			}
			collections = append(collections, name)
			return nil
		})
		return collections, err
	})
}

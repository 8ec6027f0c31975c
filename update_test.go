package torod

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ostafen/torod/d2r"
	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/executor"
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/storage"
	"github.com/ostafen/torod/txn"
	"github.com/ostafen/torod/update"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingStore counts the calls reaching the storage transaction.
// A non zero deleteSkew alters the deleted count it reports.
type recordingStore struct {
	*storage.Transaction

	inserts    int
	deletes    int
	cursors    int
	deleteSkew int
}

func (s *recordingStore) InsertSplitDocuments(ctx context.Context, collection string, docs []*d2r.SplitDocument, mode txn.WriteFailMode) *executor.Future[txn.InsertResponse] {
	s.inserts++
	return s.Transaction.InsertSplitDocuments(ctx, collection, docs, mode)
}

func (s *recordingStore) Delete(ctx context.Context, collection string, deletes []txn.DeleteOperation, mode txn.WriteFailMode) *executor.Future[txn.DeleteResponse] {
	s.deletes++

	res, err := s.Transaction.Delete(ctx, collection, deletes, mode).Await(ctx)
	if err != nil {
		return executor.Failed[txn.DeleteResponse](err)
	}
	res.Deleted += s.deleteSkew
	return executor.Resolved(res)
}

func (s *recordingStore) OpenCursor(ctx context.Context, q *query.Query) *executor.Future[storage.CursorID] {
	s.cursors++
	return s.Transaction.OpenCursor(ctx, q)
}

func (s *recordingStore) reset() {
	s.inserts, s.deletes, s.cursors = 0, 0, 0
}

// beginRecording returns a transaction whose storage calls are recorded by the returned store.
func beginRecording(t *testing.T, db *DB) (*Transaction, *recordingStore) {
	s, err := db.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	ctx := context.Background()
	st := await(t, storage.Begin(ctx, s.exec, db.store, storage.Options{MaxRowSize: db.conf.MaxRowSize}))
	t.Cleanup(func() {
		await(t, st.Close(context.Background()))
	})

	rec := &recordingStore{Transaction: st}
	return newTransaction(s.exec, rec, s.translator, rec, zaptest.NewLogger(t)), rec
}

func newDoc(fields map[string]interface{}) *d.Document {
	doc := d.NewDocument()
	doc.SetAll(fields)
	return doc
}

func insertDocs(t *testing.T, tx *Transaction, collection string, docs ...*d.Document) {
	res := await(t, tx.InsertDocuments(context.Background(), collection, docs, txn.Transactional))
	require.Equal(t, len(docs), res.Inserted)
	require.Empty(t, res.Errors)
}

func TestUpdateUsersScenario(t *testing.T) {
	runWithEngines(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		tx, rec := beginRecording(t, db)

		insertDocs(t, tx, "users", newDoc(map[string]interface{}{"name": "a", "age": 1}))
		rec.reset()

		res := await(t, tx.Update(ctx, "users", []txn.UpdateOperation{{
			Criteria: query.Field("name").Eq("a"),
			Action:   update.Set("age", 2),
			JustOne:  true,
		}}, txn.Continue))

		require.Equal(t, txn.UpdateResponse{Candidates: 1, Modified: 1}, res)
		require.Equal(t, 1, rec.deletes)
		require.Equal(t, 1, rec.inserts)

		found := await(t, tx.Find(ctx, query.NewQuery("users")))
		require.Len(t, found, 1)
		require.True(t, found[0].Equal(newDoc(map[string]interface{}{"name": "a", "age": 2})))
	})
}

func TestUpdateRejectsUpsert(t *testing.T) {
	db := openDB(t, InMemoryMode(true))
	ctx := context.Background()
	tx, rec := beginRecording(t, db)

	insertDocs(t, tx, "users", newDoc(map[string]interface{}{"name": "a", "age": 1}))
	rec.reset()

	_, err := tx.Update(ctx, "users", []txn.UpdateOperation{
		{Criteria: query.Field("name").Eq("a"), Action: update.Set("age", 2)},
		{Criteria: query.Field("name").Eq("b"), Action: update.Set("age", 3), InsertIfNotFound: true},
	}, txn.Transactional).Await(ctx)

	require.ErrorIs(t, err, txn.ErrUpsertNotSupported)
	require.True(t, txn.IsUserError(err))
	require.Zero(t, rec.cursors)
	require.Zero(t, rec.deletes)
	require.Zero(t, rec.inserts)

	found := await(t, tx.Find(ctx, query.NewQuery("users").Where(query.Field("age").Eq(1))))
	require.Len(t, found, 1)
}

func TestUpdateJustOne(t *testing.T) {
	runWithEngines(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		tx, rec := beginRecording(t, db)

		for i := 0; i < 5; i++ {
			insertDocs(t, tx, "todos", newDoc(map[string]interface{}{"n": i, "completed": false}))
		}

		res := await(t, tx.Update(ctx, "todos", []txn.UpdateOperation{{
			Criteria: query.Field("completed").IsFalse(),
			Action:   update.Set("completed", true),
			JustOne:  true,
		}}, txn.Continue))
		require.Equal(t, 5, res.Candidates)
		require.Equal(t, 1, res.Modified)

		completed := await(t, tx.Find(ctx, query.NewQuery("todos").Where(query.Field("completed").IsTrue())))
		require.Len(t, completed, 1)
		require.Equal(t, int64(0), completed[0].Get("n"))
		require.Equal(t, 5, await(t, tx.Count(ctx, "todos")))

		rec.reset()
		res = await(t, tx.Update(ctx, "todos", []txn.UpdateOperation{{
			Criteria: query.Field("completed").IsFalse(),
			Action:   update.Set("completed", true),
		}}, txn.Continue))
		require.Equal(t, txn.UpdateResponse{Candidates: 4, Modified: 4}, res)
		require.Equal(t, 1, rec.deletes)
		require.Equal(t, 1, rec.inserts)

		completed = await(t, tx.Find(ctx, query.NewQuery("todos").Where(query.Field("completed").IsTrue())))
		require.Len(t, completed, 5)
	})
}

func TestUpdateNoOp(t *testing.T) {
	db := openDB(t, InMemoryMode(true))
	ctx := context.Background()
	tx, rec := beginRecording(t, db)

	insertDocs(t, tx, "users",
		newDoc(map[string]interface{}{"name": "a", "age": 1}),
		newDoc(map[string]interface{}{"name": "b", "age": 1}))
	rec.reset()

	ops := []txn.UpdateOperation{{Criteria: query.Field("age").Eq(1), Action: update.Set("age", 1)}}
	for i := 0; i < 2; i++ {
		res := await(t, tx.Update(ctx, "users", ops, txn.Continue))
		require.Equal(t, txn.UpdateResponse{Candidates: 2, Modified: 0}, res)
	}
	require.Equal(t, 2, rec.cursors)
	require.Zero(t, rec.deletes)
	require.Zero(t, rec.inserts)

	// no candidates, nothing to do
	res := await(t, tx.Update(ctx, "users", []txn.UpdateOperation{{
		Criteria: query.Field("age").Gt(10),
		Action:   update.Set("age", 1),
	}}, txn.Continue))
	require.Equal(t, txn.UpdateResponse{}, res)
	require.Zero(t, rec.deletes)
}

func TestUpdateDuplicateCandidates(t *testing.T) {
	runWithEngines(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		tx, rec := beginRecording(t, db)

		insertDocs(t, tx, "c",
			newDoc(map[string]interface{}{"x": 1}),
			newDoc(map[string]interface{}{"x": 1}),
			newDoc(map[string]interface{}{"x": 2}))
		rec.reset()

		res := await(t, tx.Update(ctx, "c", []txn.UpdateOperation{{
			Action: update.Set("y", true),
		}}, txn.Continue))

		// structurally equal candidates collapse into a single replacement
		require.Equal(t, 3, res.Candidates)
		require.Equal(t, 2, res.Modified)

		updated := await(t, tx.Find(ctx, query.NewQuery("c").Where(query.Field("y").IsTrue())))
		require.Len(t, updated, 2)

		untouched := await(t, tx.Find(ctx, query.NewQuery("c").Where(query.Field("y").NotExists())))
		require.Len(t, untouched, 1)
		require.Equal(t, int64(1), untouched[0].Get("x"))
		require.Equal(t, 3, await(t, tx.Count(ctx, "c")))
	})
}

func TestUpdateNaNValues(t *testing.T) {
	runWithEngines(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		tx := begin(t, db)

		insertDocs(t, tx, "c",
			newDoc(map[string]interface{}{"k": "a", "x": 5}),
			newDoc(map[string]interface{}{"k": "a", "x": math.NaN()}))

		isNaN := query.NewQuery("c").MatchFunc(func(doc *d.Document) bool {
			f, ok := doc.Get("x").(float64)
			return ok && math.IsNaN(f)
		}).Criteria()

		res := await(t, tx.Update(ctx, "c", []txn.UpdateOperation{{
			Criteria: isNaN,
			Action:   update.Set("y", 1),
		}}, txn.Transactional))
		require.Equal(t, txn.UpdateResponse{Candidates: 1, Modified: 1}, res)

		// the document holding a number must not be taken for the NaN candidate
		five := await(t, tx.Find(ctx, query.NewQuery("c").Where(query.Field("x").Eq(5))))
		require.Len(t, five, 1)
		require.False(t, five[0].Has("y"))

		updated := await(t, tx.Find(ctx, query.NewQuery("c").Where(query.Field("y").Exists())))
		require.Len(t, updated, 1)
		require.True(t, math.IsNaN(updated[0].Get("x").(float64)))

		res = await(t, tx.Update(ctx, "c", []txn.UpdateOperation{{
			Action: update.Set("x", math.NaN()),
		}}, txn.Transactional))
		require.Equal(t, txn.UpdateResponse{Candidates: 2, Modified: 1}, res)

		require.Empty(t, await(t, tx.Find(ctx, query.NewQuery("c").Where(query.Field("x").Eq(5)))))
		require.Equal(t, 2, await(t, tx.Count(ctx, "c")))
	})
}

func TestUpdatePartialFailure(t *testing.T) {
	runWithEngines(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		tx := begin(t, db)

		insertDocs(t, tx, "users",
			newDoc(map[string]interface{}{"name": "a", "age": 1}),
			newDoc(map[string]interface{}{"name": "b", "age": 2}),
			newDoc(map[string]interface{}{"name": "c", "age": 3}))

		res := await(t, tx.Update(ctx, "users", []txn.UpdateOperation{
			{Criteria: query.Field("name").Eq("a"), Action: update.Inc("age", 10)},
			{Criteria: query.Field("name").Eq("b"), Action: update.Inc("name", 1)},
			{Criteria: query.Field("age").Gt(2), Action: update.Set("checked", true)},
		}, txn.Transactional))

		require.Equal(t, 1+1+2, res.Candidates)
		require.Equal(t, 1+0+2, res.Modified)
		require.Len(t, res.Errors, 1)
		require.Equal(t, 1, res.Errors[0].Index)
		require.Equal(t, -1, res.Errors[0].SubIndex)
		require.Contains(t, res.Errors[0].Message, "name")

		// the failing operation left its candidate untouched
		b := await(t, tx.Find(ctx, query.NewQuery("users").Where(query.Field("name").Eq("b"))))
		require.Len(t, b, 1)
		require.Equal(t, int64(2), b[0].Get("age"))

		// operation 2 observed the result of operation 0
		checked := await(t, tx.Find(ctx, query.NewQuery("users").Where(query.Field("checked").IsTrue()).Sort(query.SortOption{Field: "name"})))
		require.Len(t, checked, 2)
		require.Equal(t, "a", checked[0].Get("name"))
		require.Equal(t, int64(11), checked[0].Get("age"))
		require.Equal(t, "c", checked[1].Get("name"))
	})
}

func TestUpdateInvalidOperations(t *testing.T) {
	db := openDB(t, InMemoryMode(true))
	ctx := context.Background()
	tx := begin(t, db)

	insertDocs(t, tx, "users", newDoc(map[string]interface{}{"name": "a"}))

	res := await(t, tx.Update(ctx, "users", []txn.UpdateOperation{
		{Criteria: query.Field("name").Like("a("), Action: update.Set("age", 1)},
		{Criteria: query.Field("name").Eq("a")},
		{Criteria: query.Field("name").Eq("a"), Action: update.Set("age", make(chan int))},
		{Criteria: query.Field("name").Eq("a"), Action: update.Func(func(doc *d.Document) error {
			return errors.New("rejected")
		})},
	}, txn.Continue))

	// invalid criteria and missing actions fail before reading any candidate
	require.Equal(t, 2, res.Candidates)
	require.Zero(t, res.Modified)
	require.Len(t, res.Errors, 4)
	for i, e := range res.Errors {
		require.Equal(t, i, e.Index)
	}
	require.Equal(t, "rejected", res.Errors[3].Message)
}

func TestUpdateDeleteCountMismatch(t *testing.T) {
	for _, skew := range []int{-1, 1} {
		db := openDB(t, InMemoryMode(true))
		ctx := context.Background()
		tx, rec := beginRecording(t, db)

		insertDocs(t, tx, "users",
			newDoc(map[string]interface{}{"name": "a", "age": 1}),
			newDoc(map[string]interface{}{"name": "b", "age": 1}))
		rec.reset()
		rec.deleteSkew = skew

		_, err := tx.Update(ctx, "users", []txn.UpdateOperation{
			{Criteria: query.Field("age").Eq(1), Action: update.Inc("age", 1)},
			{Criteria: query.Field("name").Eq("b"), Action: update.Set("name", "c")},
		}, txn.Continue).Await(ctx)

		var fatal *txn.FatalError
		require.ErrorAs(t, err, &fatal)
		require.ErrorIs(t, err, ErrCountMismatch)
		require.False(t, txn.IsUserError(err))

		require.Equal(t, 1, rec.deletes)
		require.Zero(t, rec.inserts)
		require.Equal(t, 1, rec.cursors)
	}
}

func TestUpdateAfterCommit(t *testing.T) {
	db := openDB(t, InMemoryMode(true))
	ctx := context.Background()
	tx := begin(t, db)

	insertDocs(t, tx, "users", newDoc(map[string]interface{}{"name": "a"}))
	await(t, tx.Commit(ctx))

	_, err := tx.Update(ctx, "users", []txn.UpdateOperation{
		{Criteria: query.Field("name").Eq("a"), Action: update.Set("age", 1)},
	}, txn.Continue).Await(ctx)

	var fatal *txn.FatalError
	require.ErrorAs(t, err, &fatal)
	require.ErrorIs(t, err, storage.ErrTransactionClosed)
}

func TestUpdateInsertFailureIsFatal(t *testing.T) {
	db := openDB(t, InMemoryMode(true), WithMaxRowSize(128))
	ctx := context.Background()
	tx, rec := beginRecording(t, db)

	insertDocs(t, tx, "users", newDoc(map[string]interface{}{"name": "a"}))
	rec.reset()

	big := make([]byte, 256)
	_, err := tx.Update(ctx, "users", []txn.UpdateOperation{
		{Action: update.Set("blob", big)},
	}, txn.Continue).Await(ctx)

	require.ErrorIs(t, err, ErrCountMismatch)
	require.Equal(t, 1, rec.deletes)
	require.Equal(t, 1, rec.inserts)
}

// Package storetest contains checks shared by the store implementations.
package storetest

import (
	"fmt"
	"testing"

	"github.com/ostafen/torod/store"
	"github.com/stretchr/testify/require"
)

// Run checks the behaviour expected from every store.Store.
// newStore must return a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("SetGetDelete", func(t *testing.T) { testSetGetDelete(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("Cursor", func(t *testing.T) { testCursor(t, newStore(t)) })
	t.Run("PrefixCursor", func(t *testing.T) { testPrefixCursor(t, newStore(t)) })
	t.Run("ReadOnly", func(t *testing.T) { testReadOnly(t, newStore(t)) })
}

func key(i int) []byte {
	return []byte(fmt.Sprintf("key-%03d", i))
}

func testSetGetDelete(t *testing.T, s store.Store) {
	defer s.Close()

	tx, err := s.Begin(true)
	require.NoError(t, err)

	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	value, err := tx.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	value, err = tx.Get([]byte("missing"))
	require.NoError(t, err)
	require.Nil(t, value)

	require.NoError(t, tx.Set([]byte("b"), []byte("2")))
	require.NoError(t, tx.Delete([]byte("b")))
	require.NoError(t, tx.Commit())

	tx, err = s.Begin(false)
	require.NoError(t, err)
	defer tx.Rollback()

	value, err = tx.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	value, err = tx.Get([]byte("b"))
	require.NoError(t, err)
	require.Nil(t, value)
}

func testRollback(t *testing.T, s store.Store) {
	defer s.Close()

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	tx, err = s.Begin(false)
	require.NoError(t, err)
	defer tx.Rollback()

	value, err := tx.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, value)
}

func testCursor(t *testing.T, s store.Store) {
	defer s.Close()

	tx, err := s.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	for i := 0; i < 20; i++ {
		require.NoError(t, tx.Set(key(i), []byte{byte(i)}))
	}

	cursor, err := tx.Cursor(true, nil)
	require.NoError(t, err)

	n := 5
	for require.NoError(t, cursor.Seek(key(5))); cursor.Valid(); cursor.Next() {
		item, err := cursor.Item()
		require.NoError(t, err)
		require.Equal(t, key(n), item.Key)
		require.Equal(t, []byte{byte(n)}, item.Value)
		n++
	}
	require.Equal(t, 20, n)
	require.NoError(t, cursor.Close())

	cursor, err = tx.Cursor(false, nil)
	require.NoError(t, err)

	n = 19
	for require.NoError(t, cursor.Seek(key(99))); cursor.Valid(); cursor.Next() {
		item, err := cursor.Item()
		require.NoError(t, err)
		require.Equal(t, key(n), item.Key)
		n--
	}
	require.Equal(t, -1, n)
	require.NoError(t, cursor.Close())
}

func testPrefixCursor(t *testing.T, s store.Store) {
	defer s.Close()

	tx, err := s.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	for _, k := range []string{"a", "ab-1", "ab-2", "b-1"} {
		require.NoError(t, tx.Set([]byte(k), []byte(k)))
	}

	prefix := []byte("ab-")
	cursor, err := tx.Cursor(true, prefix)
	require.NoError(t, err)
	defer cursor.Close()

	var keys []string
	for require.NoError(t, cursor.Seek(prefix)); cursor.Valid(); cursor.Next() {
		item, err := cursor.Item()
		require.NoError(t, err)
		keys = append(keys, string(item.Key))
	}
	require.Equal(t, []string{"ab-1", "ab-2"}, keys)
}

func testReadOnly(t *testing.T, s store.Store) {
	defer s.Close()

	tx, err := s.Begin(false)
	require.NoError(t, err)
	defer tx.Rollback()

	require.Error(t, tx.Set([]byte("a"), []byte("1")))
	require.Error(t, tx.Delete([]byte("a")))
}

package bbolt

import (
	"testing"

	"github.com/ostafen/torod/store"
	"github.com/ostafen/torod/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestBbolt(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx.Commit())
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	tx, err = s.Begin(false)
	require.NoError(t, err)
	defer tx.Rollback()

	value, err := tx.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)
}

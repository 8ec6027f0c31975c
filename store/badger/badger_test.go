package badger

import (
	"testing"
	"time"

	"github.com/ostafen/torod/store"
	"github.com/ostafen/torod/store/storetest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBadgerInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := OpenInMemory(zaptest.NewLogger(t))
		require.NoError(t, err)
		return s
	})
}

func TestBadgerOnDisk(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := OpenWithOptions(Options{Dir: t.TempDir(), GCReclaimInterval: 10 * time.Millisecond})
		require.NoError(t, err)
		return s
	})
}

func TestSingleIterator(t *testing.T) {
	s, err := OpenInMemory(nil)
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, tx.Set([]byte("a"), []byte("1")))

	first, err := tx.Cursor(true, nil)
	require.NoError(t, err)

	// opening a second cursor invalidates the first one instead of panicking
	second, err := tx.Cursor(true, nil)
	require.NoError(t, err)
	require.False(t, first.Valid())

	require.NoError(t, second.Seek(nil))
	require.True(t, second.Valid())
	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}

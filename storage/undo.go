package storage

import "github.com/ostafen/torod/store"

type undoEntry struct {
	key  []byte
	prev []byte // nil if the key did not exist
}

// undoLog records the previous value of every key written through it,
// so that writes can be reverted while the store transaction is still open.
type undoLog struct {
	tx      store.Tx
	entries []undoEntry
}

func (l *undoLog) set(key, value []byte) error {
	prev, err := l.tx.Get(key)
	if err != nil {
		return err
	}

	if err := l.tx.Set(key, value); err != nil {
		return err
	}
	l.entries = append(l.entries, undoEntry{key: key, prev: prev})
	return nil
}

func (l *undoLog) delete(key []byte) error {
	prev, err := l.tx.Get(key)
	if err != nil || prev == nil {
		return err
	}

	if err := l.tx.Delete(key); err != nil {
		return err
	}
	l.entries = append(l.entries, undoEntry{key: key, prev: prev})
	return nil
}

func (l *undoLog) mark() int {
	return len(l.entries)
}

// revert undoes every write recorded after mark, most recent first.
func (l *undoLog) revert(mark int) error {
	for i := len(l.entries) - 1; i >= mark; i-- {
		e := l.entries[i]

		var err error
		if e.prev == nil {
			err = l.tx.Delete(e.key)
		} else {
			err = l.tx.Set(e.key, e.prev)
		}

		if err != nil {
			return err
		}
		l.entries = l.entries[:i]
	}
	return nil
}

func (l *undoLog) reset() {
	l.entries = l.entries[:0]
}

package txn

import "fmt"

// WriteFailMode governs how a batch write reacts to the failure of one of its items.
type WriteFailMode int

const (
	// Continue writes every item it can and reports the ones which failed.
	// A failed item leaves nothing behind.
	Continue WriteFailMode = iota
	// Isolated undoes the failing item and keeps the others. Inside a single
	// store transaction it behaves as Continue.
	Isolated
	// Transactional undoes the whole batch on the first failing item.
	Transactional
)

func (m WriteFailMode) String() string {
	switch m {
	case Continue:
		return "CONTINUE"
	case Isolated:
		return "ISOLATED"
	case Transactional:
		return "TRANSACTIONAL"
	}
	return fmt.Sprintf("WriteFailMode(%d)", int(m))
}

// Valid reports whether m is one of the defined modes.
func (m WriteFailMode) Valid() bool {
	return m >= Continue && m <= Transactional
}

package internal

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustCode(t *testing.T, v interface{}) []byte {
	data, err := OrderedCode(nil, v)
	require.NoError(t, err)
	return data
}

func TestOrderedCodeEqualValues(t *testing.T) {
	at := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	m1 := map[string]interface{}{
		"name": "a",
		"age":  int64(1),
		"tags": []interface{}{"x", uint64(2)},
		"sub":  map[string]interface{}{"at": at, "ok": true},
	}
	m2 := map[string]interface{}{
		"sub":  map[string]interface{}{"ok": true, "at": at},
		"tags": []interface{}{"x", 2.0},
		"age":  1.0,
		"name": "a",
	}

	require.Zero(t, Compare(m1, m2))
	require.Equal(t, mustCode(t, m1), mustCode(t, m2))
}

func TestOrderedCodeDistinctValues(t *testing.T) {
	values := []interface{}{
		nil,
		int64(1),
		1.5,
		uint64(1 << 63),
		"1",
		true,
		false,
		[]byte("1"),
		[]interface{}{},
		[]interface{}{nil},
		map[string]interface{}{},
		map[string]interface{}{"": nil},
		map[string]interface{}{"a": map[string]interface{}{}},
	}

	for i := range values {
		for j := range values {
			if i == j {
				continue
			}
			require.False(t, bytes.Equal(mustCode(t, values[i]), mustCode(t, values[j])), "%v vs %v", values[i], values[j])
		}
	}
}

func TestOrderedCodeKeyBoundaries(t *testing.T) {
	// nesting must not be confused with sibling keys
	a := map[string]interface{}{"a": map[string]interface{}{"b": "c"}, "d": "e"}
	b := map[string]interface{}{"a": map[string]interface{}{"b": "c", "d": "e"}}
	require.NotEqual(t, mustCode(t, a), mustCode(t, b))
}

func TestOrderedCodeUnsupported(t *testing.T) {
	_, err := OrderedCode(nil, make(chan int))
	require.Error(t, err)
}

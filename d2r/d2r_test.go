package d2r

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	d "github.com/ostafen/torod/document"
	"github.com/stretchr/testify/require"
)

func TestTranslateRows(t *testing.T) {
	doc := d.NewDocument()
	doc.Set("name", "a")
	doc.Set("b.y", 1)
	doc.Set("b.x.z", true)
	doc.Set("a", map[string]interface{}{})
	doc.Set("tags", []interface{}{"x", map[string]interface{}{"k": 1}})

	split, err := NewTranslator(0).Translate(context.Background(), "users", doc)
	require.NoError(t, err)
	require.Equal(t, "users", split.Collection)

	paths := make([]string, 0, len(split.Rows))
	for _, row := range split.Rows {
		paths = append(paths, strings.Join(row.Path, "."))
	}
	require.Equal(t, []string{"", "a", "b", "b.x"}, paths)

	root := split.Rows[0]
	require.True(t, root.IsRoot())
	require.Equal(t, map[string]interface{}{
		"name": "a",
		"tags": []interface{}{"x", map[string]interface{}{"k": int64(1)}},
	}, root.Fields)
	require.Empty(t, split.Rows[1].Fields)
	require.Equal(t, map[string]interface{}{"y": int64(1)}, split.Rows[2].Fields)
	require.Equal(t, map[string]interface{}{"z": true}, split.Rows[3].Fields)

	joined, err := Join(split.Rows)
	require.NoError(t, err)
	require.True(t, joined.Equal(doc))
}

func TestTranslateErrors(t *testing.T) {
	tr := NewTranslator(2)
	ctx := context.Background()

	_, err := tr.Translate(ctx, "", d.NewDocument())
	require.ErrorIs(t, err, ErrEmptyCollection)

	_, err = tr.Translate(ctx, "c", nil)
	require.ErrorIs(t, err, ErrNilDocument)

	doc := d.NewDocument()
	doc.Set("a.b", 1)
	_, err = tr.Translate(ctx, "c", doc)
	require.NoError(t, err)

	doc.Set("a.b.c.d", 1)
	_, err = tr.Translate(ctx, "c", doc)
	require.ErrorIs(t, err, ErrTooDeep)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Translate(cancelled, "c", d.NewDocument())
	require.ErrorIs(t, err, context.Canceled)
}

func TestJoinErrors(t *testing.T) {
	_, err := Join(nil)
	require.ErrorIs(t, err, ErrNoRoot)

	_, err = Join([]Row{{Path: []string{"a"}}})
	require.ErrorIs(t, err, ErrNoRoot)

	_, err = Join([]Row{
		{Fields: map[string]interface{}{"a": int64(1)}},
		{Path: []string{"a"}, Fields: map[string]interface{}{"b": int64(2)}},
	})
	require.Error(t, err)
}

func TestRowEncoding(t *testing.T) {
	now := time.Now()

	row := Row{
		Path: []string{"a", "b"},
		Fields: map[string]interface{}{
			"int":   int64(-3),
			"uint":  uint64(7),
			"float": 1.5,
			"str":   "x",
			"time":  now,
			"list":  []interface{}{int64(1), "y"},
			"nil":   nil,
		},
	}

	data, err := EncodeRow(row)
	require.NoError(t, err)

	decoded, err := DecodeRow(data)
	require.NoError(t, err)
	require.Equal(t, row.Path, decoded.Path)
	require.True(t, now.Equal(decoded.Fields["time"].(time.Time)))

	delete(row.Fields, "time")
	delete(decoded.Fields, "time")
	require.Equal(t, row.Fields, decoded.Fields)

	data, err = EncodeRow(Row{})
	require.NoError(t, err)
	decoded, err = DecodeRow(data)
	require.NoError(t, err)
	require.True(t, decoded.IsRoot())
	require.Empty(t, decoded.Fields)
}

type address struct {
	City    string `torod:"city"`
	Country string `torod:"country"`
}

type person struct {
	Name    string   `torod:"name"`
	Age     int      `torod:"age"`
	Email   string   `torod:"email"`
	Home    address  `torod:"home"`
	Work    *address `torod:"work"`
	Hobbies []string `torod:"hobbies"`
}

func TestSplitJoinRandomDocuments(t *testing.T) {
	tr := NewTranslator(0)

	for i := 0; i < 50; i++ {
		var p person
		require.NoError(t, gofakeit.Struct(&p))

		doc := d.NewDocumentOf(&p)
		require.NotNil(t, doc)

		split, err := tr.Translate(context.Background(), "people", doc)
		require.NoError(t, err)

		rows := make([]Row, 0, len(split.Rows))
		for _, row := range split.Rows {
			data, err := EncodeRow(row)
			require.NoError(t, err)

			decoded, err := DecodeRow(data)
			require.NoError(t, err)
			rows = append(rows, decoded)
		}

		joined, err := Join(rows)
		require.NoError(t, err)
		require.True(t, joined.Equal(doc), "%s != %s", joined, doc)
	}
}

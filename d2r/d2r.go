// Package d2r translates documents to rows and back.
//
// A document is split into one row per object it contains: the root object first,
// then nested objects in depth-first order, visiting keys in sorted order.
// Each row only holds the non-object fields of its object.
package d2r

import (
	"context"
	"errors"
	"fmt"

	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/internal"
	"github.com/ostafen/torod/util"
)

const MaxDepthDefault = 32

var (
	ErrNilDocument     = errors.New("nil document")
	ErrEmptyCollection = errors.New("empty collection name")
	ErrTooDeep         = errors.New("document nesting is too deep")
	ErrNoRoot          = errors.New("missing root row")
)

// Row holds the scalar, array and nil fields of the object found at Path.
type Row struct {
	Path   []string
	Fields map[string]interface{}
}

func (r Row) IsRoot() bool {
	return len(r.Path) == 0
}

type SplitDocument struct {
	Collection string
	Rows       []Row
}

type Translator struct {
	maxDepth int
}

// NewTranslator returns a translator rejecting documents nested deeper than maxDepth.
// A non positive value selects MaxDepthDefault.
func NewTranslator(maxDepth int) *Translator {
	if maxDepth <= 0 {
		maxDepth = MaxDepthDefault
	}
	return &Translator{maxDepth: maxDepth}
}

func (t *Translator) MaxDepth() int {
	return t.maxDepth
}

func (t *Translator) Translate(ctx context.Context, collection string, doc *d.Document) (*SplitDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if collection == "" {
		return nil, ErrEmptyCollection
	}

	if doc == nil {
		return nil, ErrNilDocument
	}

	split := &SplitDocument{Collection: collection}
	if err := t.split(split, nil, doc.ToMap()); err != nil {
		return nil, err
	}
	return split, nil
}

func (t *Translator) split(split *SplitDocument, path []string, object map[string]interface{}) error {
	if len(path) > t.maxDepth {
		return fmt.Errorf("%w: %d levels, at most %d allowed", ErrTooDeep, len(path), t.maxDepth)
	}

	row := Row{Path: path, Fields: make(map[string]interface{})}
	var children []string
	for _, key := range util.MapKeys(object, true, false) {
		if _, isMap := object[key].(map[string]interface{}); isMap {
			children = append(children, key)
			continue
		}
		row.Fields[key] = object[key]
	}
	split.Rows = append(split.Rows, row)

	for _, key := range children {
		childPath := append(append(make([]string, 0, len(path)+1), path...), key)
		if err := t.split(split, childPath, object[key].(map[string]interface{})); err != nil {
			return err
		}
	}
	return nil
}

// Join rebuilds the document represented by rows.
func Join(rows []Row) (*d.Document, error) {
	if len(rows) == 0 || !rows[0].IsRoot() {
		return nil, ErrNoRoot
	}

	root := make(map[string]interface{})
	for _, row := range rows {
		object := root
		for _, key := range row.Path {
			child, isMap := object[key].(map[string]interface{})
			if !isMap {
				if _, exists := object[key]; exists {
					return nil, fmt.Errorf("row %v: field %q is not an object", row.Path, key)
				}
				child = make(map[string]interface{})
				object[key] = child
			}
			object = child
		}

		for k, v := range row.Fields {
			object[k] = v
		}
	}

	doc := d.NewDocumentOf(root)
	if doc == nil {
		return nil, errors.New("rows contain values which cannot be normalized")
	}
	return doc, nil
}

// EncodeRow serializes a row with msgpack.
func EncodeRow(row Row) ([]byte, error) {
	path := make([]interface{}, 0, len(row.Path))
	for _, key := range row.Path {
		path = append(path, key)
	}
	return internal.Encode(map[string]interface{}{
		"p": path,
		"f": row.Fields,
	})
}

func DecodeRow(data []byte) (Row, error) {
	var m map[string]interface{}
	if err := internal.Decode(data, &m); err != nil {
		return Row{}, err
	}

	rawPath, _ := m["p"].([]interface{})
	path := make([]string, 0, len(rawPath))
	for _, key := range rawPath {
		s, ok := key.(string)
		if !ok {
			return Row{}, fmt.Errorf("invalid row path element %v", key)
		}
		path = append(path, s)
	}

	fields, _ := m["f"].(map[string]interface{})
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return Row{Path: path, Fields: fields}, nil
}

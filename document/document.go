package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ostafen/torod/internal"
	"github.com/ostafen/torod/util"
)

// Document represents a document as a map. Documents have no assigned
// identity: two documents with the same content are indistinguishable.
type Document struct {
	fields map[string]interface{}
}

// NewDocument creates a new empty document.
func NewDocument() *Document {
	return &Document{
		fields: make(map[string]interface{}),
	}
}

// NewDocumentOf creates a new document and initializes it with the content of the provided object.
// It returns nil if the object cannot be converted to a valid Document.
func NewDocumentOf(o interface{}) *Document {
	normalized, _ := internal.Normalize(o)
	fields, _ := normalized.(map[string]interface{})
	if fields == nil {
		return nil
	}

	return &Document{
		fields: fields,
	}
}

// Copy returns a deep copy of the document. Leaf values are shared.
func (doc *Document) Copy() *Document {
	return &Document{
		fields: util.CopyMap(doc.fields),
	}
}

func lookupField(name string, fieldMap map[string]interface{}, force bool) (map[string]interface{}, interface{}, string) {
	fields := strings.Split(name, ".")

	var exists bool
	var f interface{}
	currMap := fieldMap
	for i, field := range fields {
		f, exists = currMap[field]

		m, isMap := f.(map[string]interface{})

		if force {
			if (!exists || !isMap) && i < len(fields)-1 {
				m = make(map[string]interface{})
				currMap[field] = m
				f = m
			}
		} else if !exists || (!isMap && i < len(fields)-1) {
			return nil, nil, ""
		}

		if i < len(fields)-1 {
			currMap = m
		}
	}
	return currMap, f, fields[len(fields)-1]
}

// Has returns true if the document contains a field with the supplied name.
func (doc *Document) Has(name string) bool {
	fieldMap, _, _ := lookupField(name, doc.fields, false)
	return fieldMap != nil
}

// Get retrieves the value of a field. Nested fields can be accessed using dot.
func (doc *Document) Get(name string) interface{} {
	_, v, _ := lookupField(name, doc.fields, false)
	return v
}

// Set maps a field to a value. Nested fields can be accessed using dot.
// Values which cannot be normalized are ignored.
func (doc *Document) Set(name string, value interface{}) {
	normalizedValue, err := internal.Normalize(value)
	if err == nil {
		m, _, fieldName := lookupField(name, doc.fields, true)
		m[fieldName] = normalizedValue
	}
}

// SetAll sets each field specified in the input map to the corresponding value. Nested fields can be accessed using dot.
func (doc *Document) SetAll(values map[string]interface{}) {
	for updateField, updateValue := range values {
		doc.Set(updateField, updateValue)
	}
}

// Unset removes a field, reporting whether it was present.
func (doc *Document) Unset(name string) bool {
	m, _, fieldName := lookupField(name, doc.fields, false)
	if m == nil {
		return false
	}
	delete(m, fieldName)
	return true
}

// ToMap returns a deep copy of the document fields. Nested fields are represented by sub-maps.
func (doc *Document) ToMap() map[string]interface{} {
	return util.CopyMap(doc.fields)
}

// Fields returns a lexicographically sorted slice of all available field names in the document.
// Nested fields, if included, are represented using dot notation.
func (doc *Document) Fields(includeSubFields bool) []string {
	return util.MapKeys(doc.fields, true, includeSubFields)
}

// Len returns the number of top level fields.
func (doc *Document) Len() int {
	return len(doc.fields)
}

// Unmarshal stores the document in the value pointed by v.
func (doc *Document) Unmarshal(v interface{}) error {
	return internal.Convert(doc.fields, v)
}

// Fingerprint returns a stable key derived from the document structure.
// Structurally equal documents, as defined by Equal, share the same fingerprint.
func (doc *Document) Fingerprint() ([]byte, error) {
	return internal.OrderedCode(nil, doc.fields)
}

// Equal reports whether two documents have the same content.
func (doc *Document) Equal(other *Document) bool {
	if doc == nil || other == nil {
		return doc == other
	}
	return internal.Compare(doc.fields, other.fields) == 0
}

// Compare orders documents by content.
func (doc *Document) Compare(other *Document) int {
	return internal.Compare(doc.fields, other.fields)
}

func (doc *Document) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range doc.Fields(false) {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %v", key, doc.fields[key])
	}
	buf.WriteByte('}')
	return buf.String()
}

func Decode(data []byte) (*Document, error) {
	doc := NewDocument()
	err := internal.Decode(data, &doc.fields)
	return doc, err
}

func Encode(doc *Document) ([]byte, error) {
	return internal.Encode(doc.fields)
}

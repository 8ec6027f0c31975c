package update

import (
	"errors"
	"fmt"
	"strings"

	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/internal"
	"github.com/ostafen/torod/util"
)

var ErrNilAction = errors.New("nil update action")

// FieldError reports an action which cannot be applied to a field of a document.
type FieldError struct {
	Op    string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Op, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Action describes a modification of a document.
type Action interface {
	apply(doc *d.Document) error
}

// Apply runs action on a copy of candidate.
// It returns nil if the action leaves the document unchanged.
func Apply(candidate *d.Document, action Action) (*d.Document, error) {
	if action == nil {
		return nil, ErrNilAction
	}

	updated := candidate.Copy()
	if err := action.apply(updated); err != nil {
		return nil, err
	}

	if updated.Equal(candidate) {
		return nil, nil
	}
	return updated, nil
}

func checkField(op, field string) error {
	if field == "" || strings.HasPrefix(field, ".") || strings.HasSuffix(field, ".") || strings.Contains(field, "..") {
		return &FieldError{Op: op, Field: field, Err: errors.New("invalid field name")}
	}
	return nil
}

type setAction struct {
	values map[string]interface{}
}

// Set assigns value to field, creating intermediate objects when needed.
func Set(field string, value interface{}) Action {
	return &setAction{values: map[string]interface{}{field: value}}
}

// SetAll assigns each value of the map to the corresponding field.
func SetAll(values map[string]interface{}) Action {
	return &setAction{values: values}
}

func (a *setAction) apply(doc *d.Document) error {
	for _, field := range util.MapKeys(a.values, true, false) {
		if err := checkField("set", field); err != nil {
			return err
		}

		normalized, err := internal.Normalize(a.values[field])
		if err != nil {
			return &FieldError{Op: "set", Field: field, Err: err}
		}
		doc.Set(field, normalized)
	}
	return nil
}

type unsetAction struct {
	fields []string
}

// Unset removes the supplied fields. Missing fields are ignored.
func Unset(fields ...string) Action {
	return &unsetAction{fields: fields}
}

func (a *unsetAction) apply(doc *d.Document) error {
	for _, field := range a.fields {
		doc.Unset(field)
	}
	return nil
}

type arithmeticAction struct {
	op    string
	field string
	value interface{}
}

// Inc adds delta to a numeric field. A missing field is set to delta.
func Inc(field string, delta interface{}) Action {
	return &arithmeticAction{op: "inc", field: field, value: delta}
}

// Mul multiplies a numeric field by factor. A missing field is set to zero.
func Mul(field string, factor interface{}) Action {
	return &arithmeticAction{op: "mul", field: field, value: factor}
}

func (a *arithmeticAction) apply(doc *d.Document) error {
	if err := checkField(a.op, a.field); err != nil {
		return err
	}

	operand, err := internal.Normalize(a.value)
	if err != nil || !util.IsNumber(operand) {
		return &FieldError{Op: a.op, Field: a.field, Err: fmt.Errorf("operand must be a number, got %v", a.value)}
	}

	if !doc.Has(a.field) {
		if a.op == "inc" {
			doc.Set(a.field, operand)
		} else {
			doc.Set(a.field, zeroOf(operand))
		}
		return nil
	}

	current := doc.Get(a.field)
	if !util.IsNumber(current) {
		return &FieldError{Op: a.op, Field: a.field, Err: fmt.Errorf("cannot apply to a value of type %s", internal.TypeName(current))}
	}
	doc.Set(a.field, arithmetic(a.op, current, operand))
	return nil
}

func zeroOf(v interface{}) interface{} {
	switch v.(type) {
	case float64:
		return float64(0)
	case uint64:
		return uint64(0)
	}
	return int64(0)
}

func arithmetic(op string, x, y interface{}) interface{} {
	if util.IsFloat(x) || util.IsFloat(y) {
		a, b := util.ToFloat64(x), util.ToFloat64(y)
		if op == "inc" {
			return a + b
		}
		return a * b
	}

	ux, isXUint := x.(uint64)
	uy, isYUint := y.(uint64)
	if isXUint && isYUint {
		if op == "inc" {
			return ux + uy
		}
		return ux * uy
	}

	a, b := util.ToInt64(x), util.ToInt64(y)
	if op == "inc" {
		return a + b
	}
	return a * b
}

type renameAction struct {
	from, to string
}

// Rename moves the value of field from to field to. A missing source field is a no-op.
func Rename(from, to string) Action {
	return &renameAction{from: from, to: to}
}

func (a *renameAction) apply(doc *d.Document) error {
	if err := checkField("rename", a.from); err != nil {
		return err
	}
	if err := checkField("rename", a.to); err != nil {
		return err
	}

	if a.from == a.to || strings.HasPrefix(a.to, a.from+".") || strings.HasPrefix(a.from, a.to+".") {
		return &FieldError{Op: "rename", Field: a.from, Err: fmt.Errorf("cannot rename to %q", a.to)}
	}

	if !doc.Has(a.from) {
		return nil
	}

	value := doc.Get(a.from)
	doc.Unset(a.from)
	doc.Set(a.to, value)
	return nil
}

type replaceAction struct {
	doc *d.Document
}

// Replace substitutes the whole content of the document.
func Replace(doc *d.Document) Action {
	return &replaceAction{doc: doc}
}

func (a *replaceAction) apply(doc *d.Document) error {
	if a.doc == nil {
		return errors.New("replace: nil document")
	}

	for _, field := range doc.Fields(false) {
		doc.Unset(field)
	}
	doc.SetAll(a.doc.ToMap())
	return nil
}

type funcAction struct {
	fn func(doc *d.Document) error
}

// Func applies an arbitrary function to the document.
func Func(fn func(doc *d.Document) error) Action {
	return &funcAction{fn: fn}
}

func (a *funcAction) apply(doc *d.Document) error {
	if a.fn == nil {
		return ErrNilAction
	}
	return a.fn(doc)
}

type composeAction struct {
	actions []Action
}

// Compose applies actions in order. The first failing action stops the chain.
func Compose(actions ...Action) Action {
	return &composeAction{actions: actions}
}

func (a *composeAction) apply(doc *d.Document) error {
	for _, action := range a.actions {
		if action == nil {
			return ErrNilAction
		}

		if err := action.apply(doc); err != nil {
			return err
		}
	}
	return nil
}

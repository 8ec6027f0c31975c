package query

import (
	"fmt"
	"regexp"
	"strings"

	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/internal"
)

// Op identifies the comparison performed by a FieldCriteria.
type Op uint8

const (
	ExistsOp Op = iota
	EqOp
	GtOp
	GtEqOp
	LtOp
	LtEqOp
	LikeOp
	InOp
	ContainsOp
	FunctionOp
	DocumentEqOp
)

var opNames = [...]string{
	ExistsOp:     "exists",
	EqOp:         "==",
	GtOp:         ">",
	GtEqOp:       ">=",
	LtOp:         "<",
	LtEqOp:       "<=",
	LikeOp:       "like",
	InOp:         "in",
	ContainsOp:   "contains",
	FunctionOp:   "func",
	DocumentEqOp: "equals",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Logical joins the two sides of a LogicalCriteria.
type Logical uint8

const (
	And Logical = iota
	Or
)

func (l Logical) String() string {
	if l == And {
		return "AND"
	}
	return "OR"
}

// Criteria represents a predicate for selecting documents.
// It follows a fluent API style so that you can easily chain together multiple criteria.
type Criteria interface {
	Satisfy(doc *d.Document) bool
	Accept(v CriteriaVisitor) interface{}
	Not() Criteria
	And(c Criteria) Criteria
	Or(c Criteria) Criteria
}

type CriteriaVisitor interface {
	VisitFieldCriteria(c *FieldCriteria) interface{}
	VisitNotCriteria(c *NotCriteria) interface{}
	VisitLogicalCriteria(c *LogicalCriteria) interface{}
}

// FieldCriteria compares a single document field against a value.
type FieldCriteria struct {
	Op    Op
	Field string
	Value interface{}

	re    *regexp.Regexp
	reErr error
}

// NotCriteria negates the wrapped criteria.
type NotCriteria struct {
	Inner Criteria
}

// LogicalCriteria combines two criteria with a logical operator.
type LogicalCriteria struct {
	Op          Logical
	Left, Right Criteria
}

func (c *FieldCriteria) Not() Criteria { return &NotCriteria{Inner: c} }
func (c *FieldCriteria) And(other Criteria) Criteria { return combine(And, c, other) }
func (c *FieldCriteria) Or(other Criteria) Criteria { return combine(Or, c, other) }

func (c *NotCriteria) Not() Criteria { return c.Inner }
func (c *NotCriteria) And(other Criteria) Criteria { return combine(And, c, other) }
func (c *NotCriteria) Or(other Criteria) Criteria { return combine(Or, c, other) }

func (c *LogicalCriteria) Not() Criteria { return &NotCriteria{Inner: c} }
func (c *LogicalCriteria) And(other Criteria) Criteria { return combine(And, c, other) }
func (c *LogicalCriteria) Or(other Criteria) Criteria { return combine(Or, c, other) }

func (c *FieldCriteria) Accept(v CriteriaVisitor) interface{} { return v.VisitFieldCriteria(c) }
func (c *NotCriteria) Accept(v CriteriaVisitor) interface{} { return v.VisitNotCriteria(c) }
func (c *LogicalCriteria) Accept(v CriteriaVisitor) interface{} { return v.VisitLogicalCriteria(c) }

func combine(op Logical, left, right Criteria) Criteria {
	return &LogicalCriteria{Op: op, Left: left, Right: right}
}

func (c *NotCriteria) Satisfy(doc *d.Document) bool {
	return !c.Inner.Satisfy(doc)
}

func (c *LogicalCriteria) Satisfy(doc *d.Document) bool {
	if c.Op == And {
		return c.Left.Satisfy(doc) && c.Right.Satisfy(doc)
	}
	return c.Left.Satisfy(doc) || c.Right.Satisfy(doc)
}

func (c *FieldCriteria) Satisfy(doc *d.Document) bool {
	switch c.Op {
	case ExistsOp:
		return doc.Has(c.Field)
	case EqOp:
		return doc.Has(c.Field) && internal.Compare(doc.Get(c.Field), resolve(doc, c.Value)) == 0
	case GtOp, GtEqOp, LtOp, LtEqOp:
		return c.compare(doc)
	case LikeOp:
		s, ok := doc.Get(c.Field).(string)
		return ok && c.re != nil && c.re.MatchString(s)
	case InOp:
		return c.in(doc)
	case ContainsOp:
		return c.contains(doc)
	case FunctionOp:
		return c.Value.(func(*d.Document) bool)(doc)
	case DocumentEqOp:
		return doc.Compare(c.Value.(*d.Document)) == 0
	}
	return false
}

func newFieldCriteria(op Op, field string, value interface{}) *FieldCriteria {
	return &FieldCriteria{Op: op, Field: field, Value: value}
}

// Equals returns a criteria matched only by documents structurally equal to doc.
func Equals(doc *d.Document) Criteria {
	return newFieldCriteria(DocumentEqOp, "", doc.Copy())
}

type field struct {
	name string
}

func IsField(v interface{}) bool {
	_, ok := v.(*field)
	return ok
}

// Field represents a document field. It is used to create a new criteria.
// Values passed to the comparison methods may be another Field, or a string
// of the form "$name", to compare against a field of the same document.
func Field(name string) *field {
	return &field{name: name}
}

func (f *field) Exists() Criteria {
	return newFieldCriteria(ExistsOp, f.name, nil)
}

func (f *field) NotExists() Criteria {
	return f.Exists().Not()
}

func (f *field) IsNil() Criteria { return f.Eq(nil) }
func (f *field) IsTrue() Criteria { return f.Eq(true) }
func (f *field) IsFalse() Criteria { return f.Eq(false) }

func (f *field) IsNilOrNotExists() Criteria {
	return f.IsNil().Or(f.NotExists())
}

func (f *field) Eq(value interface{}) Criteria { return newFieldCriteria(EqOp, f.name, value) }
func (f *field) Neq(value interface{}) Criteria { return f.Eq(value).Not() }
func (f *field) Gt(value interface{}) Criteria { return newFieldCriteria(GtOp, f.name, value) }
func (f *field) GtEq(value interface{}) Criteria { return newFieldCriteria(GtEqOp, f.name, value) }
func (f *field) Lt(value interface{}) Criteria { return newFieldCriteria(LtOp, f.name, value) }
func (f *field) LtEq(value interface{}) Criteria { return newFieldCriteria(LtEqOp, f.name, value) }

func (f *field) In(values ...interface{}) Criteria {
	return newFieldCriteria(InOp, f.name, values)
}

func (f *field) Contains(elems ...interface{}) Criteria {
	return newFieldCriteria(ContainsOp, f.name, elems)
}

// Like matches string fields against a regular expression.
// An invalid pattern matches nothing and is reported by Validate.
func (f *field) Like(pattern string) Criteria {
	c := newFieldCriteria(LikeOp, f.name, pattern)
	c.re, c.reErr = regexp.Compile(pattern)
	return c
}

// resolve dereferences value when it names another field of doc.
func resolve(doc *d.Document, value interface{}) interface{} {
	switch v := value.(type) {
	case *field:
		return doc.Get(v.name)
	case string:
		if strings.HasPrefix(v, "$") {
			return doc.Get(strings.TrimLeft(v, "$"))
		}
	}
	return value
}

func (c *FieldCriteria) compare(doc *d.Document) bool {
	other, err := internal.Normalize(resolve(doc, c.Value))
	if err != nil {
		return false
	}

	res := internal.Compare(doc.Get(c.Field), other)
	switch c.Op {
	case GtOp:
		return res > 0
	case GtEqOp:
		return res >= 0
	case LtOp:
		return res < 0
	default:
		return res <= 0
	}
}

func (c *FieldCriteria) in(doc *d.Document) bool {
	value := doc.Get(c.Field)
	for _, candidate := range c.Value.([]interface{}) {
		if internal.Compare(resolve(doc, candidate), value) == 0 {
			return true
		}
	}
	return false
}

func (c *FieldCriteria) contains(doc *d.Document) bool {
	slice, _ := doc.Get(c.Field).([]interface{})
	if slice == nil {
		return false
	}

	for _, elem := range c.Value.([]interface{}) {
		if !containsValue(slice, resolve(doc, elem)) {
			return false
		}
	}
	return true
}

func containsValue(slice []interface{}, value interface{}) bool {
	for _, v := range slice {
		if internal.Compare(value, v) == 0 {
			return true
		}
	}
	return false
}

// InvalidCriteriaError reports a criteria which cannot be evaluated.
type InvalidCriteriaError struct {
	Field  string
	Reason string
}

func (e *InvalidCriteriaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid criteria: %s", e.Reason)
	}
	return fmt.Sprintf("invalid criteria on field %q: %s", e.Field, e.Reason)
}

type validationVisitor struct{}

func (v *validationVisitor) VisitFieldCriteria(c *FieldCriteria) interface{} {
	switch c.Op {
	case LikeOp:
		if c.reErr != nil {
			return &InvalidCriteriaError{Field: c.Field, Reason: c.reErr.Error()}
		}
	case GtOp, GtEqOp, LtOp, LtEqOp:
		if _, err := internal.Normalize(c.Value); err != nil && !IsField(c.Value) {
			return &InvalidCriteriaError{Field: c.Field, Reason: err.Error()}
		}
	case FunctionOp:
		if fn, _ := c.Value.(func(*d.Document) bool); fn == nil {
			return &InvalidCriteriaError{Reason: "nil match function"}
		}
	}
	return nil
}

func (v *validationVisitor) VisitNotCriteria(c *NotCriteria) interface{} {
	return c.Inner.Accept(v)
}

func (v *validationVisitor) VisitLogicalCriteria(c *LogicalCriteria) interface{} {
	if err := c.Left.Accept(v); err != nil {
		return err
	}
	return c.Right.Accept(v)
}

// Validate checks that c can be evaluated. A nil criteria is valid and matches every document.
func Validate(c Criteria) error {
	if c == nil {
		return nil
	}

	if err, _ := c.Accept(&validationVisitor{}).(error); err != nil {
		return err
	}
	return nil
}

type stringVisitor struct{}

func (v *stringVisitor) VisitFieldCriteria(c *FieldCriteria) interface{} {
	switch c.Op {
	case ExistsOp:
		return fmt.Sprintf("exists(%s)", c.Field)
	case FunctionOp:
		return "func(doc)"
	case DocumentEqOp:
		return fmt.Sprintf("equals(%v)", c.Value.(*d.Document).ToMap())
	}

	value := c.Value
	if f, ok := value.(*field); ok {
		value = "$" + f.name
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, value)
}

func (v *stringVisitor) VisitNotCriteria(c *NotCriteria) interface{} {
	return fmt.Sprintf("NOT (%s)", c.Inner.Accept(v))
}

func (v *stringVisitor) VisitLogicalCriteria(c *LogicalCriteria) interface{} {
	return fmt.Sprintf("(%s %s %s)", c.Left.Accept(v), c.Op, c.Right.Accept(v))
}

// Describe renders c in a human readable form. A nil criteria is rendered as "*".
func Describe(c Criteria) string {
	if c == nil {
		return "*"
	}
	return c.Accept(&stringVisitor{}).(string)
}

package query

import (
	"sort"

	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/internal"
)

// Query represents a generic query which is submitted to a specific collection.
type Query struct {
	collection string
	criteria   Criteria
	limit      int
	skip       int
	sortOpts   []SortOption
}

// NewQuery returns a query selecting every document of the supplied collection.
func NewQuery(collection string) *Query {
	return &Query{
		collection: collection,
		criteria:   nil,
		limit:      -1,
		skip:       0,
		sortOpts:   nil,
	}
}

func (q *Query) copy() *Query {
	return &Query{
		collection: q.collection,
		criteria:   q.criteria,
		limit:      q.limit,
		skip:       q.skip,
		sortOpts:   q.sortOpts,
	}
}

// Satisfy reports whether doc is selected by the query criteria.
func (q *Query) Satisfy(doc *d.Document) bool {
	if q.criteria == nil {
		return true
	}
	return q.criteria.Satisfy(doc)
}

// MatchFunc selects all the documents which satisfy the supplied predicate function.
func (q *Query) MatchFunc(p func(doc *d.Document) bool) *Query {
	return q.Where(newFieldCriteria(FunctionOp, "", p))
}

// Where returns a new Query which select all the documents fullfilling the provided Criteria.
func (q *Query) Where(c Criteria) *Query {
	newQuery := q.copy()
	newQuery.criteria = c
	return newQuery
}

// Skips sets the query so that the first n documents of the result set are discarded.
func (q *Query) Skip(n int) *Query {
	if n >= 0 {
		newQuery := q.copy()
		newQuery.skip = n
		return newQuery
	}
	return q
}

// Limit sets the query q to consider at most n records.
// As a consequence, the FindAll() method will output at most n documents,
// and any integer m returned by Count() will satisfy the condition m <= n.
func (q *Query) Limit(n int) *Query {
	newQuery := q.copy()
	newQuery.limit = n
	return newQuery
}

// SortOption is used to specify sorting options to the Sort method.
// It consists of a field name and a sorting direction (1 for ascending and -1 for descending).
// Any other positive of negative value (except from 1 and -1) will be equivalent, respectively, to 1 or -1.
// A direction value of 0 (which is also the default value) is assumed to be ascending.
type SortOption struct {
	Field     string
	Direction int
}

func normalizeSortOptions(opts []SortOption) []SortOption {
	normOpts := make([]SortOption, 0, len(opts))
	for _, opt := range opts {
		if opt.Direction >= 0 {
			normOpts = append(normOpts, SortOption{Field: opt.Field, Direction: 1})
		} else {
			normOpts = append(normOpts, SortOption{Field: opt.Field, Direction: -1})
		}
	}
	return normOpts
}

// Sort sets the query so that the returned documents are sorted according list of options.
func (q *Query) Sort(opts ...SortOption) *Query {
	newQuery := q.copy()
	newQuery.sortOpts = normalizeSortOptions(opts)
	return newQuery
}

func (q *Query) Collection() string {
	return q.collection
}

func (q *Query) Criteria() Criteria {
	return q.criteria
}

func (q *Query) GetLimit() int {
	return q.limit
}

func (q *Query) GetSkip() int {
	return q.skip
}

func (q *Query) SortOptions() []SortOption {
	return q.sortOpts
}

// Apply sorts docs according to the query sort options, then applies skip and limit.
// Documents comparing equal keep their relative order.
func (q *Query) Apply(docs []*d.Document) []*d.Document {
	if len(q.sortOpts) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			return compareDocuments(docs[i], docs[j], q.sortOpts) < 0
		})
	}

	if q.skip > 0 {
		if q.skip >= len(docs) {
			return docs[:0]
		}
		docs = docs[q.skip:]
	}

	if q.limit >= 0 && q.limit < len(docs) {
		docs = docs[:q.limit]
	}
	return docs
}

func compareDocuments(first, second *d.Document, sortOpts []SortOption) int {
	for _, opt := range sortOpts {
		field := opt.Field
		v1, v2 := first.Get(field), second.Get(field)

		if res := internal.Compare(v1, v2) * opt.Direction; res != 0 {
			return res
		}
	}
	return 0
}

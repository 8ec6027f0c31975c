package txn

import (
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/update"
)

// DeleteOperation removes the documents matching Criteria.
// A nil Criteria matches every document of the collection.
type DeleteOperation struct {
	Criteria query.Criteria
	JustOne  bool
}

// UpdateOperation applies Action to the documents matching Criteria.
type UpdateOperation struct {
	Criteria query.Criteria
	Action   update.Action
	JustOne  bool

	// InsertIfNotFound is not supported: batches containing it are rejected.
	InsertIfNotFound bool
}

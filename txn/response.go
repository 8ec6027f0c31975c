package txn

import "fmt"

// WriteError ties a failure to one item of a submitted batch.
type WriteError struct {
	Index    int
	SubIndex int
	Message  string
}

func NewWriteError(index int, err error) WriteError {
	return WriteError{Index: index, SubIndex: -1, Message: err.Error()}
}

func (e WriteError) Error() string {
	if e.SubIndex < 0 {
		return fmt.Sprintf("write error at %d: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("write error at %d.%d: %s", e.Index, e.SubIndex, e.Message)
}

type InsertResponse struct {
	Inserted int
	Errors   []WriteError
}

type DeleteResponse struct {
	Deleted int
	Errors  []WriteError
}

type UpdateResponse struct {
	Candidates int
	Modified   int
	Errors     []WriteError
}

// UpdateResponseBuilder accumulates the outcome of an update batch.
// It is meant to be used by a single goroutine.
type UpdateResponseBuilder struct {
	candidates int
	modified   int
	errors     []WriteError
}

func NewUpdateResponseBuilder() *UpdateResponseBuilder {
	return &UpdateResponseBuilder{}
}

func (b *UpdateResponseBuilder) AddCandidates(n int) *UpdateResponseBuilder {
	b.candidates += n
	return b
}

func (b *UpdateResponseBuilder) AddModified(n int) *UpdateResponseBuilder {
	b.modified += n
	return b
}

func (b *UpdateResponseBuilder) AddError(e WriteError) *UpdateResponseBuilder {
	b.errors = append(b.errors, e)
	return b
}

// Build returns a snapshot of the accumulated counters.
// Later calls to the builder do not affect returned responses.
func (b *UpdateResponseBuilder) Build() UpdateResponse {
	var errs []WriteError
	if len(b.errors) > 0 {
		errs = append(make([]WriteError, 0, len(b.errors)), b.errors...)
	}
	return UpdateResponse{
		Candidates: b.candidates,
		Modified:   b.modified,
		Errors:     errs,
	}
}

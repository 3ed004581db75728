package app

import (
	"vsync/internal/model"
)

// Operation tracks one push or pull while it runs. It is persisted as a
// model.SyncOperation when it starts and finished when it ends.
type Operation struct {
	ID     int64
	OpID   string
	Verb   string
	Vault  string
	Status string
	Detail string
}

// NewOperation creates an in-memory running operation.
func NewOperation(opID, verb, vault string) *Operation {
	return &Operation{
		OpID:   opID,
		Verb:   verb,
		Vault:  vault,
		Status: model.StatusRunning,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Finish sets the final status from err. detail is kept on success; on
// failure the error text replaces it.
func (op *Operation) Finish(err error, detail string) {
	if err != nil {
		op.Status = model.StatusFailed
		op.Detail = err.Error()
		return
	}
	op.Status = model.StatusSucceeded
	op.Detail = detail
}

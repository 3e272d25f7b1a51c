package app

import "moodops/internal/model"

// CommandOperation tracks a CLI command that may mutate the database.
// Operations are created in memory with ID=0. Only DB-mutating commands
// persist them (giving them an auto-increment ID from the database).
type CommandOperation struct {
	ID         int64
	Kind       string
	Parameters string
	Status     string // "success" or "error"
}

// NewCommandOperation creates a new in-memory command operation.
func NewCommandOperation(kind, parameters string) *CommandOperation {
	return &CommandOperation{
		Kind:       kind,
		Parameters: parameters,
		Status:     model.StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *CommandOperation) Persisted() bool {
	return op.ID != 0
}

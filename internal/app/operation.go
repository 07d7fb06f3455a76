package app

import "time"

// Operation tracks the CLI command being run. Its ID tags every log line
// of the run; Mutated records whether the registry must be saved on Close.
type Operation struct {
	ID      string
	Name    string
	Mutated bool
	Status  string // "success" or "error"
}

// NewOperation creates an operation whose ID is the UTC start time.
func NewOperation(name string, started time.Time) *Operation {
	return &Operation{
		ID:     started.UTC().Format("20060102T150405Z"),
		Name:   name,
		Status: "success",
	}
}

// Touch marks the registry as changed by this operation.
func (op *Operation) Touch() { op.Mutated = true }

// Fail marks the operation as unsuccessful.
func (op *Operation) Fail() { op.Status = "error" }

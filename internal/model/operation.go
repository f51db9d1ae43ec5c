package model

import "time"

// Operation is one atomic, recorded transition of the view. Operations form
// an append-only chain (a DAG when concurrent heads exist) with a single
// current head per repository.
type Operation struct {
	ID          OperationID       `json:"-"`
	Parents     []OperationID     `json:"parents"`
	View        ViewID            `json:"view"`
	Description string            `json:"description"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// IsRoot reports whether this is the initial operation of the log.
func (op *Operation) IsRoot() bool {
	return len(op.Parents) == 0
}

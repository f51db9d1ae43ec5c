package repo

import (
	"time"

	"strata.dev/strata/internal/model"
)

// Transaction is one atomic unit of repository change. It is created against
// a loaded operation, accumulates changes in a MutableRepo, and on Commit
// writes a new view and operation and advances the head pointer with a
// compare-and-swap. An abandoned Transaction leaves the repository untouched
// apart from unreferenced objects.
type Transaction struct {
	base      *ReadonlyRepo
	mut       *MutableRepo
	startTime time.Time
	tags      map[string]string
}

// StartTransaction begins a transaction against the operation this repo was
// loaded at.
func (r *ReadonlyRepo) StartTransaction() *Transaction {
	return &Transaction{
		base:      r,
		mut:       newMutableRepo(r),
		startTime: r.clock(),
	}
}

// MutableRepo returns the overlay all changes go through.
func (tx *Transaction) MutableRepo() *MutableRepo {
	return tx.mut
}

// BaseRepo returns the repo the transaction was started from.
func (tx *Transaction) BaseRepo() *ReadonlyRepo {
	return tx.base
}

// SetTag attaches metadata to the operation that Commit will write.
func (tx *Transaction) SetTag(key, value string) {
	if tx.tags == nil {
		tx.tags = make(map[string]string)
	}
	tx.tags[key] = value
}

// DeletedBookmarks returns the names of local bookmarks present at the base
// operation but absent in the transaction's view.
func (tx *Transaction) DeletedBookmarks() []string {
	var deleted []string
	for _, name := range tx.base.view.BookmarkNames() {
		if tx.mut.view.LocalBookmark(name).IsAbsent() {
			deleted = append(deleted, name)
		}
	}
	return deleted
}

// Commit writes the new view and an operation describing it, then advances
// the operation head. If another process advanced the head since this
// transaction started, nothing is written to the head and the caller gets a
// ConcurrentModificationError; every object written stays unreferenced.
func (tx *Transaction) Commit(description string) (*model.Operation, error) {
	viewID, err := tx.base.ops.WriteView(tx.mut.view)
	if err != nil {
		return nil, err
	}
	op := &model.Operation{
		Parents:     []model.OperationID{tx.base.operation.ID},
		View:        viewID,
		Description: description,
		StartTime:   tx.startTime,
		EndTime:     tx.base.clock(),
		Tags:        tx.tags,
	}
	op, err = tx.base.ops.WriteOperation(op)
	if err != nil {
		return nil, err
	}
	if err := tx.base.ops.UpdateHead(tx.base.operation.ID, op.ID); err != nil {
		return nil, err
	}
	return op, nil
}

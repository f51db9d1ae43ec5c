// Package opstore persists the operation log: view snapshots, operation
// objects, and the single mutable head pointer. Objects are content-addressed
// and append-only; only the head file ever changes, guarded by a
// compare-and-swap so concurrent processes are detected rather than merged
// silently.
package opstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/store"
)

// OpStore manages the operation log under one directory. A store with an
// empty headPath is memory-backed (tests) and keeps the head in memHead.
type OpStore struct {
	objects  store.ObjectStore
	headPath string
	lockPath string
	memHead  model.OperationID
}

// Init creates a new operation log with a root operation over an empty view
// and returns the store positioned at that head.
func Init(dir string) (*OpStore, error) {
	s, err := open(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.headPath); err == nil {
		return nil, fmt.Errorf("operation log already exists in %s", dir)
	}
	viewID, err := s.WriteView(model.NewView())
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rootOp := &model.Operation{
		View:        viewID,
		Description: "initialize repo",
		StartTime:   now,
		EndTime:     now,
	}
	rootOp, err = s.WriteOperation(rootOp)
	if err != nil {
		return nil, err
	}
	if err := store.SafeWrite(s.headPath, []byte(rootOp.ID.String()+"\n"), 0644); err != nil {
		return nil, errors.NewBackendError("write op head", "", err)
	}
	return s, nil
}

// Load opens an existing operation log.
func Load(dir string) (*OpStore, error) {
	s, err := open(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.headPath); err != nil {
		return nil, fmt.Errorf("no operation log in %s: %w", dir, err)
	}
	return s, nil
}

func open(dir string) (*OpStore, error) {
	objects, err := store.NewFileStore(filepath.Join(dir, "objects"))
	if err != nil {
		return nil, err
	}
	return &OpStore{
		objects:  objects,
		headPath: filepath.Join(dir, "head"),
		lockPath: filepath.Join(dir, "head.lock"),
	}, nil
}

// InMemory creates an operation log backed by memory, for tests.
func InMemory() (*OpStore, error) {
	s := &OpStore{objects: store.NewMemoryStore()}
	viewID, err := s.WriteView(model.NewView())
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rootOp, err := s.WriteOperation(&model.Operation{
		View:        viewID,
		Description: "initialize repo",
		StartTime:   now,
		EndTime:     now,
	})
	if err != nil {
		return nil, err
	}
	s.memHead = rootOp.ID
	return s, nil
}

// ReadView reads a view snapshot by id.
func (s *OpStore) ReadView(id model.ViewID) (*model.View, error) {
	data, err := s.objects.Get(id)
	if err != nil {
		return nil, errors.NewBackendError("read view", id.String(), err)
	}
	view := model.NewView()
	if err := json.Unmarshal(data, view); err != nil {
		return nil, errors.NewBackendError("decode view", id.String(), err)
	}
	return view, nil
}

// WriteView stores a view snapshot.
func (s *OpStore) WriteView(view *model.View) (model.ViewID, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return model.ViewID{}, errors.NewBackendError("encode view", "", err)
	}
	id, err := s.objects.Put(data)
	if err != nil {
		return model.ViewID{}, errors.NewBackendError("write view", "", err)
	}
	return id, nil
}

// ReadOperation reads an operation by id.
func (s *OpStore) ReadOperation(id model.OperationID) (*model.Operation, error) {
	data, err := s.objects.Get(id)
	if err != nil {
		return nil, errors.NewBackendError("read operation", id.String(), err)
	}
	var op model.Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, errors.NewBackendError("decode operation", id.String(), err)
	}
	op.ID = id
	return &op, nil
}

// WriteOperation stores an operation, filling in its id.
func (s *OpStore) WriteOperation(op *model.Operation) (*model.Operation, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, errors.NewBackendError("encode operation", "", err)
	}
	id, err := s.objects.Put(data)
	if err != nil {
		return nil, errors.NewBackendError("write operation", "", err)
	}
	op.ID = id
	return op, nil
}

// Head returns the current head operation id.
func (s *OpStore) Head() (model.OperationID, error) {
	if s.headPath == "" {
		return s.memHead, nil
	}
	data, err := os.ReadFile(s.headPath)
	if err != nil {
		return model.OperationID{}, errors.NewBackendError("read op head", "", err)
	}
	id, err := model.ParseID(strings.TrimSpace(string(data)))
	if err != nil {
		return model.OperationID{}, errors.NewBackendError("parse op head", "", err)
	}
	return id, nil
}

// UpdateHead advances the head from old to new. If the head no longer
// matches old, another process committed in between and the caller gets a
// ConcurrentModificationError; it must reload and retry.
func (s *OpStore) UpdateHead(old, newHead model.OperationID) error {
	if s.headPath == "" {
		if s.memHead != old {
			return errors.NewConcurrentModificationError(old.Short(), s.memHead.Short())
		}
		s.memHead = newHead
		return nil
	}

	// The lock only serializes the compare-and-swap itself; it is never
	// held across user interaction or object writes.
	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.NewConcurrentModificationError(old.Short(), "unknown (head locked)")
		}
		return errors.NewBackendError("lock op head", "", err)
	}
	lock.Close()
	defer os.Remove(s.lockPath)

	current, err := s.Head()
	if err != nil {
		return err
	}
	if current != old {
		return errors.NewConcurrentModificationError(old.Short(), current.Short())
	}
	if err := store.SafeWrite(s.headPath, []byte(newHead.String()+"\n"), 0644); err != nil {
		return errors.NewBackendError("write op head", "", err)
	}
	return nil
}

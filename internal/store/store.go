// Package store implements the content-addressable object store for commits,
// trees, and file blobs. Objects are immutable and keyed by the digest of
// their canonical JSON encoding, so writes are idempotent and the store
// dedupes identical objects.
package store

import (
	"encoding/json"
	"sync"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
)

// ObjectStore is the raw get/put surface of a backend. Implementations must
// be safe for concurrent readers; Put of existing content is a no-op.
type ObjectStore interface {
	Get(id model.ID) ([]byte, error)
	Put(data []byte) (model.ID, error)
	Has(id model.ID) bool
}

// Store wraps an ObjectStore with typed encode/decode for the repository
// object model plus the two well-known objects every repository has: the
// empty tree and the root commit.
type Store struct {
	objects ObjectStore

	mu          sync.RWMutex
	commitCache map[model.CommitID]*model.Commit
	treeCache   map[model.TreeID]*model.Tree

	emptyTreeID  model.TreeID
	rootCommitID model.CommitID
}

// New creates a Store over the given backend and materializes the root
// objects.
func New(objects ObjectStore) (*Store, error) {
	s := &Store{
		objects:     objects,
		commitCache: make(map[model.CommitID]*model.Commit),
		treeCache:   make(map[model.TreeID]*model.Tree),
	}
	emptyTreeID, err := s.WriteTree(model.NewTree())
	if err != nil {
		return nil, err
	}
	s.emptyTreeID = emptyTreeID
	root := &model.Commit{Tree: emptyTreeID}
	rootID, err := s.writeCommitRaw(root)
	if err != nil {
		return nil, err
	}
	s.rootCommitID = rootID
	return s, nil
}

// EmptyTreeID returns the id of the tree with no entries.
func (s *Store) EmptyTreeID() model.TreeID {
	return s.emptyTreeID
}

// RootCommitID returns the id of the virtual root commit. The root commit
// has no parents, the empty tree, and can never be rewritten.
func (s *Store) RootCommitID() model.CommitID {
	return s.rootCommitID
}

// RootCommit returns the root commit object.
func (s *Store) RootCommit() *model.Commit {
	root, _ := s.GetCommit(s.rootCommitID)
	return root
}

// GetCommit reads a commit by id.
func (s *Store) GetCommit(id model.CommitID) (*model.Commit, error) {
	s.mu.RLock()
	if cached, ok := s.commitCache[id]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	data, err := s.objects.Get(id)
	if err != nil {
		return nil, errors.NewBackendError("read commit", id.String(), err)
	}
	var commit model.Commit
	if err := json.Unmarshal(data, &commit); err != nil {
		return nil, errors.NewBackendError("decode commit", id.String(), err)
	}
	commit.ID = id

	s.mu.Lock()
	s.commitCache[id] = &commit
	s.mu.Unlock()
	return &commit, nil
}

// WriteCommit stores a commit, filling in its id. Writing identical field
// values twice yields the same id and does not touch the backend twice.
func (s *Store) WriteCommit(commit *model.Commit) (*model.Commit, error) {
	id, err := s.writeCommitRaw(commit)
	if err != nil {
		return nil, err
	}
	commit.ID = id
	s.mu.Lock()
	s.commitCache[id] = commit
	s.mu.Unlock()
	return commit, nil
}

func (s *Store) writeCommitRaw(commit *model.Commit) (model.CommitID, error) {
	data, err := json.Marshal(commit)
	if err != nil {
		return model.CommitID{}, errors.NewBackendError("encode commit", "", err)
	}
	id, err := s.objects.Put(data)
	if err != nil {
		return model.CommitID{}, errors.NewBackendError("write commit", "", err)
	}
	return id, nil
}

// GetTree reads a tree by id.
func (s *Store) GetTree(id model.TreeID) (*model.Tree, error) {
	s.mu.RLock()
	if cached, ok := s.treeCache[id]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	data, err := s.objects.Get(id)
	if err != nil {
		return nil, errors.NewBackendError("read tree", id.String(), err)
	}
	tree := model.NewTree()
	if err := json.Unmarshal(data, tree); err != nil {
		return nil, errors.NewBackendError("decode tree", id.String(), err)
	}

	s.mu.Lock()
	s.treeCache[id] = tree
	s.mu.Unlock()
	return tree, nil
}

// WriteTree stores a tree and returns its id.
func (s *Store) WriteTree(tree *model.Tree) (model.TreeID, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return model.TreeID{}, errors.NewBackendError("encode tree", "", err)
	}
	id, err := s.objects.Put(data)
	if err != nil {
		return model.TreeID{}, errors.NewBackendError("write tree", "", err)
	}
	s.mu.Lock()
	s.treeCache[id] = tree
	s.mu.Unlock()
	return id, nil
}

// ReadBlob reads file content by id.
func (s *Store) ReadBlob(id model.BlobID) ([]byte, error) {
	data, err := s.objects.Get(id)
	if err != nil {
		return nil, errors.NewBackendError("read blob", id.String(), err)
	}
	return data, nil
}

// WriteBlob stores file content and returns its id.
func (s *Store) WriteBlob(data []byte) (model.BlobID, error) {
	id, err := s.objects.Put(data)
	if err != nil {
		return model.BlobID{}, errors.NewBackendError("write blob", "", err)
	}
	return id, nil
}

// Package repo ties the object store, the reachability index, and the
// operation log into a repository: a ReadonlyRepo loaded at one operation,
// and a MutableRepo overlay that accumulates rewrites inside a transaction.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/index"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/opstore"
	"strata.dev/strata/internal/store"
)

// DefaultWorkspace is the workspace name used by a single-workspace repo.
const DefaultWorkspace = "default"

// ReadonlyRepo is a repository loaded at one operation. It is never
// mutated; all changes go through a Transaction.
type ReadonlyRepo struct {
	store     *store.Store
	ops       *opstore.OpStore
	index     *index.Index
	view      *model.View
	operation *model.Operation

	user           model.Signature
	clock          func() time.Time
	immutableHeads []model.CommitID
}

// Init creates a new repository under dir and returns it loaded at the
// initial operation, with a working-copy commit for the default workspace.
func Init(dir string) (*ReadonlyRepo, error) {
	repoDir := filepath.Join(dir, ".strata")
	if _, err := os.Stat(repoDir); err == nil {
		return nil, errors.NewUserError("repository already exists in %s", dir)
	}
	objects, err := store.NewFileStore(filepath.Join(repoDir, "objects"))
	if err != nil {
		return nil, err
	}
	st, err := store.New(objects)
	if err != nil {
		return nil, err
	}
	ops, err := opstore.Init(filepath.Join(repoDir, "op"))
	if err != nil {
		return nil, err
	}
	repo, err := load(st, ops)
	if err != nil {
		return nil, err
	}
	return repo.initWorkingCopy()
}

// Load opens the repository stored under dir at the current head operation.
func Load(dir string) (*ReadonlyRepo, error) {
	repoDir := filepath.Join(dir, ".strata")
	objects, err := store.NewFileStore(filepath.Join(repoDir, "objects"))
	if err != nil {
		return nil, err
	}
	st, err := store.New(objects)
	if err != nil {
		return nil, err
	}
	ops, err := opstore.Load(filepath.Join(repoDir, "op"))
	if err != nil {
		return nil, fmt.Errorf("not a strata repository: %w", err)
	}
	return load(st, ops)
}

// InMemory creates a repository backed entirely by memory, for tests.
func InMemory() (*ReadonlyRepo, error) {
	st, err := store.New(store.NewMemoryStore())
	if err != nil {
		return nil, err
	}
	ops, err := opstore.InMemory()
	if err != nil {
		return nil, err
	}
	repo, err := load(st, ops)
	if err != nil {
		return nil, err
	}
	return repo.initWorkingCopy()
}

func load(st *store.Store, ops *opstore.OpStore) (*ReadonlyRepo, error) {
	headID, err := ops.Head()
	if err != nil {
		return nil, err
	}
	op, err := ops.ReadOperation(headID)
	if err != nil {
		return nil, err
	}
	view, err := ops.ReadView(op.View)
	if err != nil {
		return nil, err
	}
	repo := &ReadonlyRepo{
		store:     st,
		ops:       ops,
		view:      view,
		operation: op,
		clock:     time.Now,
	}
	if err := repo.buildIndex(); err != nil {
		return nil, err
	}
	return repo, nil
}

// initWorkingCopy gives the default workspace a fresh empty commit on the
// root commit.
func (r *ReadonlyRepo) initWorkingCopy() (*ReadonlyRepo, error) {
	if !r.view.WcCommit(DefaultWorkspace).IsZero() {
		return r, nil
	}
	tx := r.StartTransaction()
	wc, err := tx.MutableRepo().
		NewCommit([]model.CommitID{r.store.RootCommitID()}, r.store.EmptyTreeID()).
		Write()
	if err != nil {
		return nil, err
	}
	tx.MutableRepo().SetWcCommit(DefaultWorkspace, wc.ID)
	if _, err := tx.Commit(fmt.Sprintf("add workspace '%s'", DefaultWorkspace)); err != nil {
		return nil, err
	}
	return r.Reload()
}

// buildIndex indexes every commit reachable from the view's pointers.
func (r *ReadonlyRepo) buildIndex() error {
	ix := index.New()
	if err := ix.Add(r.store.RootCommitID(), nil); err != nil {
		return err
	}

	var visit func(id model.CommitID) error
	visiting := make(map[model.CommitID]bool)
	visit = func(id model.CommitID) error {
		if id.IsZero() || ix.Has(id) {
			return nil
		}
		if visiting[id] {
			return errors.NewBackendError("index", id.String(), fmt.Errorf("commit graph cycle"))
		}
		visiting[id] = true
		commit, err := r.store.GetCommit(id)
		if err != nil {
			return err
		}
		for _, parent := range commit.Parents {
			if err := visit(parent); err != nil {
				return err
			}
		}
		delete(visiting, id)
		return ix.Add(id, commit.Parents)
	}

	for _, id := range r.view.Heads {
		if err := visit(id); err != nil {
			return err
		}
	}
	for _, id := range r.view.WcCommits {
		if err := visit(id); err != nil {
			return err
		}
	}
	for _, target := range r.view.Bookmarks {
		if err := visit(target.Commit); err != nil {
			return err
		}
	}
	for _, remotes := range r.view.RemoteBookmarks {
		for _, ref := range remotes {
			if err := visit(ref.Target.Commit); err != nil {
				return err
			}
		}
	}
	r.index = ix
	return nil
}

// Reload re-reads the repository at the current head operation, keeping the
// configured user and clock.
func (r *ReadonlyRepo) Reload() (*ReadonlyRepo, error) {
	reloaded, err := load(r.store, r.ops)
	if err != nil {
		return nil, err
	}
	reloaded.user = r.user
	reloaded.clock = r.clock
	reloaded.immutableHeads = r.immutableHeads
	return reloaded, nil
}

// Store returns the object store.
func (r *ReadonlyRepo) Store() *store.Store {
	return r.store
}

// OpStore returns the operation log store.
func (r *ReadonlyRepo) OpStore() *opstore.OpStore {
	return r.ops
}

// Index returns the reachability index at this operation.
func (r *ReadonlyRepo) Index() *index.Index {
	return r.index
}

// View returns the view at this operation. Callers must not mutate it.
func (r *ReadonlyRepo) View() *model.View {
	return r.view
}

// Operation returns the operation this repo was loaded at.
func (r *ReadonlyRepo) Operation() *model.Operation {
	return r.operation
}

// GetCommit reads a commit from the store.
func (r *ReadonlyRepo) GetCommit(id model.CommitID) (*model.Commit, error) {
	return r.store.GetCommit(id)
}

// SetUser configures the signature used for new commits.
func (r *ReadonlyRepo) SetUser(name, email string) {
	r.user = model.Signature{Name: name, Email: email}
}

// SetClock overrides the time source, for deterministic tests.
func (r *ReadonlyRepo) SetClock(clock func() time.Time) {
	r.clock = clock
}

// SetImmutableHeads marks the given commits and all their ancestors as
// immutable, in addition to the always-immutable root commit.
func (r *ReadonlyRepo) SetImmutableHeads(heads []model.CommitID) {
	r.immutableHeads = heads
}

// NewUserSignature returns the configured user signature stamped with the
// current time.
func (r *ReadonlyRepo) NewUserSignature() model.Signature {
	sig := r.user
	if sig.Name == "" {
		sig.Name = "unknown"
	}
	if sig.Email == "" {
		sig.Email = "unknown@localhost"
	}
	sig.When = r.clock()
	return sig
}

// CheckRewritable returns an ImmutableCommitError if any of the given
// commits must not be rewritten: the root commit, or an ancestor of a
// configured immutable head.
func (r *ReadonlyRepo) CheckRewritable(ids []model.CommitID) error {
	for _, id := range ids {
		if id == r.store.RootCommitID() {
			return errors.NewImmutableCommitError(id.Short(), "the root commit cannot be rewritten")
		}
		for _, head := range r.immutableHeads {
			if r.index.IsAncestor(id, head) {
				return errors.NewImmutableCommitError(id.Short(), fmt.Sprintf("ancestor of immutable head %s", head.Short()))
			}
		}
	}
	return nil
}

// IsFastForward reports whether moving a bookmark from oldTarget to
// newTarget only moves it forward: the old target is absent or an ancestor
// of the new target.
func (r *ReadonlyRepo) IsFastForward(oldTarget model.RefTarget, newTarget model.CommitID) bool {
	if oldTarget.IsAbsent() {
		return true
	}
	return r.index.IsAncestor(oldTarget.Commit, newTarget)
}

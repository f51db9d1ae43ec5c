package repo

import (
	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/index"
	"strata.dev/strata/internal/merge"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/store"
)

// abandonInfo records how an abandoned commit's slot is filled in: its
// children adopt parents, and bookmarks either follow or are deleted.
type abandonInfo struct {
	parents         []model.CommitID
	retainBookmarks bool
}

// MutableRepo is the in-transaction overlay over a ReadonlyRepo. It tracks
// which commits were rewritten or abandoned so descendants and refs can be
// brought along, and accumulates view changes until the transaction commits.
type MutableRepo struct {
	base  *ReadonlyRepo
	index *index.Index
	view  *model.View

	// parentMapping maps each rewritten commit to its replacement and each
	// abandoned commit to its adopted parent set.
	parentMapping map[model.CommitID][]model.CommitID
	abandoned     map[model.CommitID]abandonInfo

	// pendingRoots are rewritten/abandoned commits whose descendants have
	// not been visited yet, in recording order.
	pendingRoots []model.CommitID

	numRewritten int
	numAbandoned int
}

func newMutableRepo(base *ReadonlyRepo) *MutableRepo {
	return &MutableRepo{
		base:          base,
		index:         base.index.Clone(),
		view:          base.view.Clone(),
		parentMapping: make(map[model.CommitID][]model.CommitID),
		abandoned:     make(map[model.CommitID]abandonInfo),
	}
}

// Base returns the ReadonlyRepo this overlay was started from.
func (m *MutableRepo) Base() *ReadonlyRepo {
	return m.base
}

// Store returns the object store.
func (m *MutableRepo) Store() *store.Store {
	return m.base.store
}

// Index returns the index, extended with commits written in this overlay.
func (m *MutableRepo) Index() *index.Index {
	return m.index
}

// View returns the in-progress view.
func (m *MutableRepo) View() *model.View {
	return m.view
}

// GetCommit reads a commit from the store.
func (m *MutableRepo) GetCommit(id model.CommitID) (*model.Commit, error) {
	return m.base.store.GetCommit(id)
}

// CheckRewritable delegates to the base repo's immutability rules.
func (m *MutableRepo) CheckRewritable(ids []model.CommitID) error {
	return m.base.CheckRewritable(ids)
}

// IsFastForward reports whether a bookmark move is forward-only, using the
// overlay's index so commits written in this transaction count.
func (m *MutableRepo) IsFastForward(oldTarget model.RefTarget, newTarget model.CommitID) bool {
	if oldTarget.IsAbsent() {
		return true
	}
	return m.index.IsAncestor(oldTarget.Commit, newTarget)
}

// SetLocalBookmark points a local bookmark at a target. An absent target
// deletes the bookmark.
func (m *MutableRepo) SetLocalBookmark(name string, target model.RefTarget) {
	m.view.SetLocalBookmark(name, target)
}

// RestoreView replaces the whole in-progress view, used when undoing an
// operation restores an earlier snapshot.
func (m *MutableRepo) RestoreView(view *model.View) {
	m.view = view.Clone()
}

// SetWcCommit points a workspace's working-copy slot at a commit.
func (m *MutableRepo) SetWcCommit(workspace string, id model.CommitID) {
	m.view.SetWcCommit(workspace, id)
}

// NewCommit starts a builder for a brand-new commit with the configured user
// as author and committer.
func (m *MutableRepo) NewCommit(parents []model.CommitID, tree model.TreeID) *CommitBuilder {
	sig := m.base.NewUserSignature()
	return &CommitBuilder{
		mut: m,
		commit: &model.Commit{
			Parents:   append([]model.CommitID(nil), parents...),
			Tree:      tree,
			Author:    sig,
			Committer: sig,
		},
	}
}

// RewriteCommit starts a builder seeded from an existing commit. Writing it
// records the old commit as rewritten, which queues its descendants for
// rebasing and moves refs.
func (m *MutableRepo) RewriteCommit(original *model.Commit) *CommitBuilder {
	commit := original.Clone()
	commit.ID = model.CommitID{}
	commit.Predecessors = []model.CommitID{original.ID}
	commit.Committer = m.base.NewUserSignature()
	return &CommitBuilder{
		mut:      m,
		commit:   commit,
		original: original,
	}
}

// Rewritten reports whether the commit was already rewritten or abandoned in
// this overlay.
func (m *MutableRepo) Rewritten(id model.CommitID) bool {
	_, ok := m.parentMapping[id]
	return ok
}

// NumRewritten returns how many commits were rewritten so far.
func (m *MutableRepo) NumRewritten() int {
	return m.numRewritten
}

// NumAbandoned returns how many commits were abandoned so far.
func (m *MutableRepo) NumAbandoned() int {
	return m.numAbandoned
}

// HasChanges reports whether anything was recorded or the view diverged.
func (m *MutableRepo) HasChanges() bool {
	return len(m.parentMapping) > 0 || len(m.pendingRoots) > 0 || m.numRewritten > 0
}

// RecordRewrittenCommit maps an old commit to its replacement. Called by
// CommitBuilder.Write; the refs pointing at the old commit are moved by
// RebaseRefs during the descendant walk.
func (m *MutableRepo) RecordRewrittenCommit(oldID, newID model.CommitID) {
	m.parentMapping[oldID] = []model.CommitID{newID}
	m.pendingRoots = append(m.pendingRoots, oldID)
	m.numRewritten++
}

// RecordAbandonedCommit maps an old commit to its (already resolved) parent
// set. Children adopt those parents; bookmarks follow them only when
// retainBookmarks is set, and are deleted otherwise.
func (m *MutableRepo) RecordAbandonedCommit(oldID model.CommitID, parents []model.CommitID, retainBookmarks bool) {
	m.parentMapping[oldID] = append([]model.CommitID(nil), parents...)
	m.abandoned[oldID] = abandonInfo{parents: parents, retainBookmarks: retainBookmarks}
	m.pendingRoots = append(m.pendingRoots, oldID)
	m.numAbandoned++
}

// TakePendingRoots returns the commits recorded since the last call, oldest
// first, and clears the queue. The parent mapping itself is kept so later
// lookups still resolve through it.
func (m *MutableRepo) TakePendingRoots() []model.CommitID {
	roots := m.pendingRoots
	m.pendingRoots = nil
	return roots
}

// RestorePendingRoots puts back records whose descendants were not covered
// by a walk.
func (m *MutableRepo) RestorePendingRoots(roots []model.CommitID) {
	m.pendingRoots = append(m.pendingRoots, roots...)
}

// ResolveParents maps a parent list through every recorded rewrite and
// abandonment, transitively, and deduplicates the result so no parent is an
// ancestor of another.
func (m *MutableRepo) ResolveParents(parents []model.CommitID) []model.CommitID {
	var resolved []model.CommitID
	var resolve func(id model.CommitID, visiting map[model.CommitID]bool)
	resolve = func(id model.CommitID, visiting map[model.CommitID]bool) {
		if visiting[id] {
			return
		}
		targets, ok := m.parentMapping[id]
		if !ok {
			resolved = append(resolved, id)
			return
		}
		visiting[id] = true
		for _, target := range targets {
			resolve(target, visiting)
		}
		delete(visiting, id)
	}
	for _, parent := range parents {
		resolve(parent, make(map[model.CommitID]bool))
	}
	return m.index.Heads(resolved)
}

// RebaseRefs moves all view refs off a rewritten or abandoned commit:
// bookmarks follow the replacement (or are deleted for an abandoned commit
// unless retained), working-copy slots follow or get a fresh empty commit,
// and the heads list is updated.
func (m *MutableRepo) RebaseRefs(oldID model.CommitID) error {
	info, wasAbandoned := m.abandoned[oldID]
	targets := m.parentMapping[oldID]

	for _, name := range m.view.BookmarkNames() {
		if m.view.LocalBookmark(name).Commit != oldID {
			continue
		}
		switch {
		case wasAbandoned && !info.retainBookmarks:
			m.view.SetLocalBookmark(name, model.AbsentRef())
		case len(targets) > 0:
			m.view.SetLocalBookmark(name, model.NormalRef(targets[0]))
		default:
			m.view.SetLocalBookmark(name, model.AbsentRef())
		}
	}

	for workspace, wc := range m.view.WcCommits {
		if wc != oldID {
			continue
		}
		if !wasAbandoned && len(targets) == 1 {
			m.view.SetWcCommit(workspace, targets[0])
			continue
		}
		// The working copy must stay checked out somewhere; replace an
		// abandoned working-copy commit with a fresh empty one on the
		// adopted parents.
		replacement, err := m.newEmptyCommit(info.parents)
		if err != nil {
			return err
		}
		m.view.SetWcCommit(workspace, replacement.ID)
	}

	m.view.RemoveHead(oldID)
	if wasAbandoned {
		for _, parent := range info.parents {
			m.view.AddHead(parent)
		}
		m.view.Heads = m.index.Heads(m.view.Heads)
	}
	return nil
}

// newEmptyCommit writes a commit with no changes relative to its parents.
func (m *MutableRepo) newEmptyCommit(parents []model.CommitID) (*model.Commit, error) {
	if len(parents) == 0 {
		parents = []model.CommitID{m.base.store.RootCommitID()}
	}
	tree, err := m.MergedParentTree(parents)
	if err != nil {
		return nil, err
	}
	treeID, err := m.base.store.WriteTree(tree)
	if err != nil {
		return nil, err
	}
	return m.NewCommit(parents, treeID).Write()
}

// MergedParentTree merges the trees of the given parents, the tree a child
// with no changes of its own would have.
func (m *MutableRepo) MergedParentTree(parents []model.CommitID) (*model.Tree, error) {
	commits := make([]*model.Commit, 0, len(parents))
	for _, id := range parents {
		commit, err := m.base.store.GetCommit(id)
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}
	return merge.Commits(m.base.store, m.index, commits)
}

// addHead registers a newly written commit as a head and drops its parents
// from the heads list.
func (m *MutableRepo) addHead(commit *model.Commit) {
	m.view.AddHead(commit.ID)
	for _, parent := range commit.Parents {
		m.view.RemoveHead(parent)
	}
}

// indexCommit adds a commit to the overlay's index, indexing any parents
// loaded from the store first.
func (m *MutableRepo) indexCommit(commit *model.Commit) error {
	for _, parent := range commit.Parents {
		if m.index.Has(parent) {
			continue
		}
		parentCommit, err := m.base.store.GetCommit(parent)
		if err != nil {
			return err
		}
		if err := m.indexCommit(parentCommit); err != nil {
			return err
		}
	}
	if err := m.index.Add(commit.ID, commit.Parents); err != nil {
		return errors.NewBackendError("index commit", commit.ID.String(), err)
	}
	return nil
}

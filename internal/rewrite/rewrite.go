// Package rewrite walks and rewrites descendants of changed commits. All
// graph surgery (rebase, reparent, abandon, duplicate) funnels through
// TransformDescendants, which visits each affected commit exactly once in
// topological order and keeps bookmarks and working copies pointing at live
// commits.
package rewrite

import (
	"strata.dev/strata/internal/merge"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
)

// Rewriter presents one commit during a descendant walk: the old commit and
// the parents it would have after every recorded rewrite is applied. The
// callback decides what to do with it.
type Rewriter struct {
	mut        *repo.MutableRepo
	old        *model.Commit
	newParents []model.CommitID
}

// NewRewriter prepares a rewriter for a single commit outside a walk, with
// its parents resolved through the recorded rewrites.
func NewRewriter(mut *repo.MutableRepo, old *model.Commit) *Rewriter {
	return &Rewriter{
		mut:        mut,
		old:        old,
		newParents: mut.ResolveParents(old.Parents),
	}
}

// OldCommit returns the commit being visited.
func (r *Rewriter) OldCommit() *model.Commit {
	return r.old
}

// NewParents returns the resolved parent set the commit would move onto.
func (r *Rewriter) NewParents() []model.CommitID {
	return r.newParents
}

// SetNewParents overrides the resolved parents, deduplicating the given set.
func (r *Rewriter) SetNewParents(parents []model.CommitID) {
	r.newParents = r.mut.Index().Heads(parents)
}

// ParentsChanged reports whether the resolved parents differ from the
// commit's current parents.
func (r *Rewriter) ParentsChanged() bool {
	if len(r.newParents) != len(r.old.Parents) {
		return true
	}
	for i, parent := range r.newParents {
		if parent != r.old.Parents[i] {
			return true
		}
	}
	return false
}

// Rebase starts a rewrite onto the new parents, carrying the commit's own
// changes over by merging its tree against the old and new parent trees.
// Conflicts become part of the rebased tree rather than failing the rebase.
func (r *Rewriter) Rebase() (*repo.CommitBuilder, error) {
	builder := r.mut.RewriteCommit(r.old).SetParents(r.newParents)
	if !r.ParentsChanged() {
		return builder, nil
	}
	st := r.mut.Store()
	oldParentTree, err := parentTree(r.mut, r.old.Parents)
	if err != nil {
		return nil, err
	}
	newParentTree, err := parentTree(r.mut, r.newParents)
	if err != nil {
		return nil, err
	}
	oldTree, err := st.GetTree(r.old.Tree)
	if err != nil {
		return nil, err
	}
	rebased, err := merge.Trees(st, oldParentTree, newParentTree, oldTree)
	if err != nil {
		return nil, err
	}
	treeID, err := st.WriteTree(rebased)
	if err != nil {
		return nil, err
	}
	return builder.SetTree(treeID), nil
}

// Reparent starts a rewrite onto the new parents keeping the commit's tree
// exactly as it is. Used when the tree is known to still be right, such as
// metadata-only rewrites upstream.
func (r *Rewriter) Reparent() *repo.CommitBuilder {
	return r.mut.RewriteCommit(r.old).SetParents(r.newParents)
}

// Abandon removes the commit from the visible graph. Its descendants adopt
// the resolved parents; bookmarks pointing at it are deleted unless
// retainBookmarks moves them to the first adopted parent instead.
func (r *Rewriter) Abandon(retainBookmarks bool) {
	r.mut.RecordAbandonedCommit(r.old.ID, r.newParents, retainBookmarks)
}

// parentTree merges the trees of a parent set.
func parentTree(mut *repo.MutableRepo, parents []model.CommitID) (*model.Tree, error) {
	commits := make([]*model.Commit, 0, len(parents))
	for _, id := range parents {
		commit, err := mut.GetCommit(id)
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}
	return merge.Commits(mut.Store(), mut.Index(), commits)
}

// TransformDescendants visits the roots and all their descendants in
// topological order, exactly once each. Commits already rewritten or
// abandoned before the walk only have their refs moved; for every other
// commit the callback chooses to rebase, reparent, abandon, or leave it.
// Leaving a commit whose parents did not change is a no-op; leaving one
// whose parents did change strands it, so callbacks normally rewrite
// whenever ParentsChanged.
func TransformDescendants(mut *repo.MutableRepo, roots []model.CommitID, fn func(*Rewriter) error) error {
	walked := make(map[model.CommitID]bool)
	for _, id := range mut.Index().Descendants(roots) {
		walked[id] = true
		if mut.Rewritten(id) {
			if err := mut.RebaseRefs(id); err != nil {
				return err
			}
			continue
		}
		commit, err := mut.GetCommit(id)
		if err != nil {
			return err
		}
		rw := &Rewriter{
			mut:        mut,
			old:        commit,
			newParents: mut.ResolveParents(commit.Parents),
		}
		if err := fn(rw); err != nil {
			return err
		}
		if mut.Rewritten(id) {
			if err := mut.RebaseRefs(id); err != nil {
				return err
			}
		}
	}

	// Everything recorded during the walk had its descendants visited here;
	// only earlier records outside this walk stay queued.
	var leftover []model.CommitID
	for _, id := range mut.TakePendingRoots() {
		if !walked[id] {
			leftover = append(leftover, id)
		}
	}
	mut.RestorePendingRoots(leftover)
	return nil
}

// RebaseDescendants rebases every not-yet-visited descendant of the commits
// recorded as rewritten or abandoned, and returns how many commits were
// rebased. Repo mutators call this once before committing the transaction.
func RebaseDescendants(mut *repo.MutableRepo) (int, error) {
	rebased := 0
	for {
		roots := mut.TakePendingRoots()
		if len(roots) == 0 {
			return rebased, nil
		}
		err := TransformDescendants(mut, roots, func(rw *Rewriter) error {
			if !rw.ParentsChanged() {
				return nil
			}
			builder, err := rw.Rebase()
			if err != nil {
				return err
			}
			if _, err := builder.Write(); err != nil {
				return err
			}
			rebased++
			return nil
		})
		if err != nil {
			return rebased, err
		}
	}
}

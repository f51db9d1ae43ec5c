package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/testhelper"
)

// replacement resolves a rewritten or abandoned commit to what took its
// place in the overlay.
func replacement(mut *repo.MutableRepo, id model.CommitID) model.CommitID {
	resolved := mut.ResolveParents([]model.CommitID{id})
	if len(resolved) != 1 {
		return model.CommitID{}
	}
	return resolved[0]
}

func TestRebaseDescendantsFollowsRewrite(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Commit("c", "b")
	s.Bookmark("main", "c")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	newA, err := mut.RewriteCommit(s.GetCommit("a")).SetDescription("a reworded").Write()
	require.NoError(t, err)
	rebased, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)
	assert.Equal(t, 2, rebased)

	newB := replacement(mut, s.ID("b"))
	newC := replacement(mut, s.ID("c"))
	assert.NotEqual(t, s.ID("b"), newB)
	assert.NotEqual(t, s.ID("c"), newC)

	_, err = tx.Commit("reword a")
	require.NoError(t, err)
	s.Reload()

	s.Relabel("a", newA.ID)
	s.Relabel("b", newB)
	s.Relabel("c", newC)

	// The chain hangs together and the bookmark followed the tip.
	assert.Equal(t, []model.CommitID{newA.ID}, s.GetCommit("b").Parents)
	assert.Equal(t, []model.CommitID{newB}, s.GetCommit("c").Parents)
	assert.Equal(t, newC, s.Repo.View().LocalBookmark("main").Commit)

	// Rebasing carried each commit's own changes along.
	assert.Equal(t, "a content\n", s.FileContent("c", "a"))
	assert.Equal(t, "b content\n", s.FileContent("c", "b"))
	assert.Equal(t, "c content\n", s.FileContent("c", "c"))
}

func TestDiamondDescendantsRebasedExactlyOnce(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Commit("c", "a")
	s.Commit("merge", "b", "c")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	_, err := mut.RewriteCommit(s.GetCommit("a")).SetDescription("a reworded").Write()
	require.NoError(t, err)
	rebased, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)
	assert.Equal(t, 3, rebased, "b, c, and the merge each rebase once")

	newB := replacement(mut, s.ID("b"))
	newC := replacement(mut, s.ID("c"))
	newMerge := replacement(mut, s.ID("merge"))

	mergeCommit, err := mut.GetCommit(newMerge)
	require.NoError(t, err)
	assert.Equal(t, []model.CommitID{newB, newC}, mergeCommit.Parents)
}

func TestAbandonDeletesBookmarkAndRebasesChildren(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Bookmark("feature", "a")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	rewrite.NewRewriter(mut, s.GetCommit("a")).Abandon(false)
	_, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)
	newB := replacement(mut, s.ID("b"))

	_, err = tx.Commit("abandon a")
	require.NoError(t, err)
	s.Reload()
	s.Relabel("b", newB)

	assert.True(t, s.Repo.View().LocalBookmark("feature").IsAbsent())
	assert.Equal(t, []model.CommitID{s.ID("root")}, s.GetCommit("b").Parents)

	// b keeps its own change but loses what a introduced.
	assert.Equal(t, "b content\n", s.FileContent("b", "b"))
	tree, err := s.Repo.Store().GetTree(s.GetCommit("b").Tree)
	require.NoError(t, err)
	assert.True(t, tree.Value("a").IsAbsent())
}

func TestAbandonRetainBookmarksMovesToParent(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Bookmark("feature", "b")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	rewrite.NewRewriter(mut, s.GetCommit("b")).Abandon(true)
	_, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)
	_, err = tx.Commit("abandon b")
	require.NoError(t, err)
	s.Reload()

	assert.Equal(t, s.ID("a"), s.Repo.View().LocalBookmark("feature").Commit)
}

func TestAbandonedWorkingCopyGetsFreshCommit(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.SetWc("b")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	rewrite.NewRewriter(mut, s.GetCommit("b")).Abandon(false)
	_, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)
	_, err = tx.Commit("abandon b")
	require.NoError(t, err)
	s.Reload()

	wcID := s.Repo.View().WcCommit(repo.DefaultWorkspace)
	require.False(t, wcID.IsZero())
	assert.NotEqual(t, s.ID("b"), wcID)

	wc, err := s.Repo.GetCommit(wcID)
	require.NoError(t, err)
	assert.Equal(t, []model.CommitID{s.ID("a")}, wc.Parents)
	assert.Empty(t, wc.Description)
	assert.Equal(t, s.GetCommit("a").Tree, wc.Tree, "the replacement carries no changes of its own")
}

func TestRedundantParentsCollapse(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Commit("merge", "a", "b")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	// Abandoning b redirects the merge's second parent to a, which its first
	// parent already is; the duplicate collapses.
	rewrite.NewRewriter(mut, s.GetCommit("b")).Abandon(false)
	_, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)

	newMerge := replacement(mut, s.ID("merge"))
	mergeCommit, err := mut.GetCommit(newMerge)
	require.NoError(t, err)
	assert.Equal(t, []model.CommitID{s.ID("a")}, mergeCommit.Parents)
}

func TestReparentKeepsTree(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	_, err := mut.RewriteCommit(s.GetCommit("a")).SetDescription("a reworded").Write()
	require.NoError(t, err)

	var newB *model.Commit
	err = rewrite.TransformDescendants(mut, mut.TakePendingRoots(), func(rw *rewrite.Rewriter) error {
		if !rw.ParentsChanged() {
			return nil
		}
		written, err := rw.Reparent().Write()
		if err != nil {
			return err
		}
		newB = written
		return nil
	})
	require.NoError(t, err)

	require.NotNil(t, newB)
	assert.NotEqual(t, s.ID("b"), newB.ID)
	assert.Equal(t, s.GetCommit("b").Tree, newB.Tree)
}

func TestTransformDescendantsSkipsPreRecordedCommits(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	_, err := mut.RewriteCommit(s.GetCommit("a")).SetDescription("a reworded").Write()
	require.NoError(t, err)

	var visited []model.CommitID
	err = rewrite.TransformDescendants(mut, mut.TakePendingRoots(), func(rw *rewrite.Rewriter) error {
		visited = append(visited, rw.OldCommit().ID)
		return nil
	})
	require.NoError(t, err)

	// The already-rewritten a only has its refs moved; the callback sees b.
	assert.Equal(t, []model.CommitID{s.ID("b")}, visited)
}

func TestDuplicateCommitsKeepsSubgraphShape(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	copies, err := rewrite.DuplicateCommits(mut, []model.CommitID{s.ID("a"), s.ID("b")})
	require.NoError(t, err)
	require.Len(t, copies, 2)

	copyA, err := mut.GetCommit(copies[s.ID("a")])
	require.NoError(t, err)
	copyB, err := mut.GetCommit(copies[s.ID("b")])
	require.NoError(t, err)

	// The copy of b hangs off the copy of a, not the original.
	assert.Equal(t, []model.CommitID{s.ID("root")}, copyA.Parents)
	assert.Equal(t, []model.CommitID{copyA.ID}, copyB.Parents)
	assert.Equal(t, []model.CommitID{s.ID("a")}, copyA.Predecessors)

	// Copies are new commits; the originals are untouched.
	assert.NotEqual(t, s.ID("a"), copyA.ID)
	assert.Equal(t, s.GetCommit("b").Tree, copyB.Tree)
	assert.False(t, mut.Rewritten(s.ID("a")))
}

func TestDuplicateOntoRebasesTree(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Commit("target", "root")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	copies, err := rewrite.DuplicateOnto(mut, []model.CommitID{s.ID("b")}, []model.CommitID{s.ID("target")})
	require.NoError(t, err)
	require.Len(t, copies, 1)

	copyB, err := mut.GetCommit(copies[s.ID("b")])
	require.NoError(t, err)
	assert.Equal(t, []model.CommitID{s.ID("target")}, copyB.Parents)

	// The copied tree carries b's change over the new parent, dropping what
	// the old parent contributed.
	tree, err := mut.Store().GetTree(copyB.Tree)
	require.NoError(t, err)
	assert.True(t, tree.Value("b").IsPresent())
	assert.True(t, tree.Value("target").IsPresent())
	assert.True(t, tree.Value("a").IsAbsent())
}

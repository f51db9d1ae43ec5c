package absorb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata.dev/strata/internal/absorb"
	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/testhelper"
)

// writeCommit creates a commit with explicit files and description, unlike
// Scenario.CommitWithFiles which uses the label as the description.
func writeCommit(t *testing.T, s *testhelper.Scenario, label, description string, parents []string, files map[string]string) model.CommitID {
	t.Helper()
	parentIDs := make([]model.CommitID, len(parents))
	for i, parent := range parents {
		parentIDs[i] = s.ID(parent)
	}

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	tree, err := mut.MergedParentTree(parentIDs)
	require.NoError(t, err)
	tree = tree.Clone()
	for path, content := range files {
		blob, err := mut.Store().WriteBlob([]byte(content))
		require.NoError(t, err)
		tree.Set(path, model.Resolved(&model.TreeValue{Kind: model.KindFile, Blob: blob}))
	}
	treeID, err := mut.Store().WriteTree(tree)
	require.NoError(t, err)
	commit, err := mut.NewCommit(parentIDs, treeID).SetDescription(description).Write()
	require.NoError(t, err)
	_, err = tx.Commit("add commit " + label)
	require.NoError(t, err)

	s.Relabel(label, commit.ID)
	s.Reload()
	return commit.ID
}

func resolveOne(mut *repo.MutableRepo, id model.CommitID) model.CommitID {
	resolved := mut.ResolveParents([]model.CommitID{id})
	if len(resolved) != 1 {
		return model.CommitID{}
	}
	return resolved[0]
}

func TestAbsorbIntoOwningAncestor(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"},
		map[string]string{"file.txt": "alpha\nbeta\ngamma\n"})
	writeCommit(t, s, "b", "b", []string{"a"},
		map[string]string{"file.txt": "alpha\nbeta\ngamma\ndelta\n"})
	writeCommit(t, s, "src", "", []string{"b"},
		map[string]string{"file.txt": "alpha\nbeta\ngamma\ndelta improved\n"})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	stats, err := absorb.Absorb(mut, s.ID("src"), absorb.Options{})
	require.NoError(t, err)

	// The modified line was introduced by b, so b takes the change.
	assert.Equal(t, map[model.CommitID][]string{s.ID("b"): {"file.txt"}}, stats.Absorbed)
	assert.True(t, stats.AbandonedSource, "the source had nothing left and no description")

	newB := resolveOne(mut, s.ID("b"))
	require.False(t, newB.IsZero())
	_, err = tx.Commit("absorb")
	require.NoError(t, err)
	s.Reload()
	s.Relabel("b", newB)

	assert.Equal(t, "alpha\nbeta\ngamma\ndelta improved\n", s.FileContent("b", "file.txt"))
	// a was not touched.
	assert.Equal(t, "alpha\nbeta\ngamma\n", s.FileContent("a", "file.txt"))
}

func TestAbsorbInsertionBetweenOwnedLines(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"},
		map[string]string{"file.txt": "alpha\ngamma\n"})
	writeCommit(t, s, "src", "keep me", []string{"a"},
		map[string]string{"file.txt": "alpha\nbeta\ngamma\n"})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	stats, err := absorb.Absorb(mut, s.ID("src"), absorb.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"file.txt"}, stats.Absorbed[s.ID("a")])
	assert.False(t, stats.AbandonedSource, "a described source is kept even when emptied")
	assert.Equal(t, 1, stats.Rebased)

	newA := resolveOne(mut, s.ID("a"))
	_, err = tx.Commit("absorb")
	require.NoError(t, err)
	s.Reload()
	s.Relabel("a", newA)

	assert.Equal(t, "alpha\nbeta\ngamma\n", s.FileContent("a", "file.txt"))
}

func TestAbsorbRespectsDestinationFilter(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"},
		map[string]string{"file.txt": "alpha\n"})
	writeCommit(t, s, "b", "b", []string{"a"},
		map[string]string{"file.txt": "alpha\nbeta\n"})
	writeCommit(t, s, "src", "wip", []string{"b"},
		map[string]string{"file.txt": "alpha\nbeta changed\n"})

	// The hunk belongs to b, so restricting the destinations to a leaves
	// nothing to move.
	tx := s.Repo.StartTransaction()
	_, err := absorb.Absorb(tx.MutableRepo(), s.ID("src"),
		absorb.Options{Destinations: []model.CommitID{s.ID("a")}})
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "nothing to absorb")

	tx = s.Repo.StartTransaction()
	stats, err := absorb.Absorb(tx.MutableRepo(), s.ID("src"),
		absorb.Options{Destinations: []model.CommitID{s.ID("b")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"file.txt"}, stats.Absorbed[s.ID("b")])
}

func TestAbsorbRejectsUnrelatedDestination(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"},
		map[string]string{"file.txt": "alpha\n"})
	s.Commit("elsewhere", "root")
	writeCommit(t, s, "src", "", []string{"a"},
		map[string]string{"file.txt": "alpha changed\n"})

	tx := s.Repo.StartTransaction()
	_, err := absorb.Absorb(tx.MutableRepo(), s.ID("src"),
		absorb.Options{Destinations: []model.CommitID{s.ID("elsewhere")}})
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "none of the destinations")
}

func TestAbsorbRespectsPathFilter(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"}, map[string]string{
		"one.txt":      "one\n",
		"dir/deep.txt": "deep\n",
	})
	writeCommit(t, s, "src", "wip", []string{"a"}, map[string]string{
		"one.txt":      "one changed\n",
		"dir/deep.txt": "deep changed\n",
	})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	stats, err := absorb.Absorb(mut, s.ID("src"), absorb.Options{Paths: []string{"dir"}})
	require.NoError(t, err)

	// Only the file under dir/ moved; one.txt stays in the source.
	assert.Equal(t, []string{"dir/deep.txt"}, stats.Absorbed[s.ID("a")])
	assert.False(t, stats.AbandonedSource)

	newA := resolveOne(mut, s.ID("a"))
	newSrc := resolveOne(mut, s.ID("src"))
	_, err = tx.Commit("absorb")
	require.NoError(t, err)
	s.Reload()
	s.Relabel("a", newA)
	s.Relabel("src", newSrc)

	assert.Equal(t, "deep changed\n", s.FileContent("a", "dir/deep.txt"))
	assert.Equal(t, "one\n", s.FileContent("a", "one.txt"))
	assert.Equal(t, "one changed\n", s.FileContent("src", "one.txt"))
}

func TestAbsorbAmbiguousHunkStaysInSource(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"},
		map[string]string{"file.txt": "first\n"})
	writeCommit(t, s, "b", "b", []string{"a"},
		map[string]string{"file.txt": "first\nsecond\n"})
	// One hunk rewriting a line from a and a line from b together has no
	// single owner.
	writeCommit(t, s, "src", "", []string{"b"},
		map[string]string{"file.txt": "FIRST\nSECOND\n"})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	_, err := absorb.Absorb(mut, s.ID("src"), absorb.Options{})
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "nothing to absorb")
}

func TestAbsorbDoesNotTouchImmutableLines(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "a", "a", []string{"root"},
		map[string]string{"file.txt": "protected\n"})
	writeCommit(t, s, "b", "b", []string{"a"},
		map[string]string{"other.txt": "b stuff\n"})
	writeCommit(t, s, "src", "", []string{"b"},
		map[string]string{"file.txt": "tampered\n"})
	s.Repo.SetImmutableHeads([]model.CommitID{s.ID("a")})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	_, err := absorb.Absorb(mut, s.ID("src"), absorb.Options{})
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "nothing to absorb")
}

func TestAbsorbRejectsMergeSource(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "root")
	s.Commit("merge", "a", "b")

	tx := s.Repo.StartTransaction()
	_, err := absorb.Absorb(tx.MutableRepo(), s.ID("merge"), absorb.Options{})
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "merge")
}

func TestAbsorbNeedsMutableAncestors(t *testing.T) {
	s := testhelper.NewScenario(t)
	writeCommit(t, s, "src", "", []string{"root"},
		map[string]string{"file.txt": "content\n"})

	tx := s.Repo.StartTransaction()
	_, err := absorb.Absorb(tx.MutableRepo(), s.ID("src"), absorb.Options{})
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "no mutable ancestors")
}

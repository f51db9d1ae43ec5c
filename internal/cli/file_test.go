package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/testhelper"
)

func executableBit(t *testing.T, s *testhelper.Scenario, label, path string) bool {
	t.Helper()
	commit := s.GetCommit(label)
	tree, err := s.Repo.Store().GetTree(commit.Tree)
	require.NoError(t, err)
	value, ok := tree.Value(path).AsResolved()
	require.True(t, ok)
	require.NotNil(t, value)
	return value.Executable
}

func TestSetExecutableRewritesCommitAndDescendants(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.CommitWithFiles("a", []string{"root"}, map[string]string{"tool.sh": "#!/bin/sh\n"})
	s.Commit("b", "a")

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	commit, err := mut.GetCommit(s.ID("a"))
	require.NoError(t, err)

	changed, err := setExecutable(mut, commit, []string{"tool.sh"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	rebased, err := rewrite.RebaseDescendants(mut)
	require.NoError(t, err)
	assert.Equal(t, 1, rebased)

	newA := mut.ResolveParents([]model.CommitID{s.ID("a")})[0]
	newB := mut.ResolveParents([]model.CommitID{s.ID("b")})[0]
	_, err = tx.Commit("chmod")
	require.NoError(t, err)
	s.Reload()
	s.Relabel("a", newA)
	s.Relabel("b", newB)

	assert.True(t, executableBit(t, s, "a", "tool.sh"))
	assert.True(t, executableBit(t, s, "b", "tool.sh"))
	assert.Equal(t, []model.CommitID{newA}, s.GetCommit("b").Parents)
}

func TestSetExecutableNoChangeLeavesCommitAlone(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.CommitWithFiles("a", []string{"root"}, map[string]string{"doc.txt": "text\n"})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	commit, err := mut.GetCommit(s.ID("a"))
	require.NoError(t, err)

	changed, err := setExecutable(mut, commit, []string{"doc.txt"}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.False(t, mut.HasChanges())
}

func TestSetExecutableRejectsMissingPath(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.CommitWithFiles("a", []string{"root"}, map[string]string{"doc.txt": "text\n"})

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	commit, err := mut.GetCommit(s.ID("a"))
	require.NoError(t, err)

	_, err = setExecutable(mut, commit, []string{"nope.txt"}, true)
	require.ErrorIs(t, err, errors.ErrUser)
	assert.Contains(t, err.Error(), "no such file")
}

func TestParseChmodMode(t *testing.T) {
	executable, err := parseChmodMode("x")
	require.NoError(t, err)
	assert.True(t, executable)

	executable, err = parseChmodMode("n")
	require.NoError(t, err)
	assert.False(t, executable)

	_, err = parseChmodMode("rwx")
	require.ErrorIs(t, err, errors.ErrUser)
}

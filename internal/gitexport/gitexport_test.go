package gitexport_test

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitobj "github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata.dev/strata/internal/gitexport"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/testhelper"
)

func newGitRepo(t *testing.T) *git.Repository {
	t.Helper()
	gitRepo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	return gitRepo
}

func exportedCommit(t *testing.T, gitRepo *git.Repository, hash string) *gitobj.Commit {
	t.Helper()
	commit, err := gitRepo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	return commit
}

func TestExportBookmarkAsBranch(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.CommitWithFiles("a", []string{"root"}, map[string]string{
		"file.txt":        "hello\n",
		"dir/nested.txt":  "nested\n",
		"dir/another.txt": "another\n",
	})
	s.Commit("b", "a")
	s.Bookmark("main", "b")

	gitRepo := newGitRepo(t)
	stats, err := gitexport.Export(s.Repo, gitRepo)
	require.NoError(t, err)

	require.Contains(t, stats.Exported, "main")
	assert.Empty(t, stats.Skipped)

	ref, err := gitRepo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	assert.Equal(t, stats.Exported["main"], ref.Hash().String())

	commit := exportedCommit(t, gitRepo, stats.Exported["main"])
	assert.Equal(t, "b", commit.Message)
	assert.Equal(t, "Test User", commit.Author.Name)
	assert.Equal(t, "test@example.com", commit.Author.Email)

	// The child of the virtual root becomes a parentless git commit.
	require.Equal(t, 1, commit.NumParents())
	parent, err := commit.Parent(0)
	require.NoError(t, err)
	assert.Equal(t, 0, parent.NumParents())
	assert.Equal(t, "a", parent.Message)

	file, err := parent.File("dir/nested.txt")
	require.NoError(t, err)
	content, err := file.Contents()
	require.NoError(t, err)
	assert.Equal(t, "nested\n", content)
}

func TestExportSharesAncestryBetweenBookmarks(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Commit("b", "a")
	s.Commit("c", "a")
	s.Bookmark("left", "b")
	s.Bookmark("right", "c")

	gitRepo := newGitRepo(t)
	stats, err := gitexport.Export(s.Repo, gitRepo)
	require.NoError(t, err)
	require.Len(t, stats.Exported, 2)

	left := exportedCommit(t, gitRepo, stats.Exported["left"])
	right := exportedCommit(t, gitRepo, stats.Exported["right"])
	leftParent, err := left.Parent(0)
	require.NoError(t, err)
	rightParent, err := right.Parent(0)
	require.NoError(t, err)
	assert.Equal(t, leftParent.Hash, rightParent.Hash, "the shared ancestor is exported once")
}

func TestExportSkipsConflictedBookmarks(t *testing.T) {
	s := testhelper.NewScenario(t)
	s.Commit("a", "root")
	s.Bookmark("clean", "a")

	// A commit whose tree still carries an unresolved conflict.
	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	blob := func(content string) *model.TreeValue {
		id, err := mut.Store().WriteBlob([]byte(content))
		require.NoError(t, err)
		return &model.TreeValue{Kind: model.KindFile, Blob: id}
	}
	tree := model.NewTree()
	tree.Set("conflicted.txt", model.NewMerge([]*model.TreeValue{
		blob("side a\n"), blob("base\n"), blob("side b\n"),
	}))
	treeID, err := mut.Store().WriteTree(tree)
	require.NoError(t, err)
	conflicted, err := mut.NewCommit([]model.CommitID{s.ID("a")}, treeID).
		SetDescription("conflicted").
		Write()
	require.NoError(t, err)
	mut.SetLocalBookmark("broken", model.NormalRef(conflicted.ID))
	_, err = tx.Commit("add conflicted commit")
	require.NoError(t, err)
	s.Reload()

	gitRepo := newGitRepo(t)
	stats, err := gitexport.Export(s.Repo, gitRepo)
	require.NoError(t, err)

	assert.Contains(t, stats.Exported, "clean")
	assert.Equal(t, []string{"broken"}, stats.Skipped)
	_, err = gitRepo.Reference(plumbing.NewBranchReferenceName("broken"), true)
	require.Error(t, err)
}

func TestExportExecutableAndSymlink(t *testing.T) {
	s := testhelper.NewScenario(t)

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()
	blobID, err := mut.Store().WriteBlob([]byte("#!/bin/sh\n"))
	require.NoError(t, err)
	tree := model.NewTree()
	tree.Set("run.sh", model.Resolved(&model.TreeValue{Kind: model.KindFile, Blob: blobID, Executable: true}))
	tree.Set("link", model.Resolved(&model.TreeValue{Kind: model.KindSymlink, Target: "run.sh"}))
	treeID, err := mut.Store().WriteTree(tree)
	require.NoError(t, err)
	commit, err := mut.NewCommit([]model.CommitID{s.ID("root")}, treeID).
		SetDescription("tooling").
		Write()
	require.NoError(t, err)
	mut.SetLocalBookmark("tools", model.NormalRef(commit.ID))
	_, err = tx.Commit("add tooling commit")
	require.NoError(t, err)
	s.Reload()

	gitRepo := newGitRepo(t)
	stats, err := gitexport.Export(s.Repo, gitRepo)
	require.NoError(t, err)

	exported := exportedCommit(t, gitRepo, stats.Exported["tools"])
	gitTree, err := exported.Tree()
	require.NoError(t, err)

	entry, err := gitTree.FindEntry("run.sh")
	require.NoError(t, err)
	assert.True(t, entry.Mode.IsFile())
	assert.Equal(t, "0100755", entry.Mode.String())

	entry, err = gitTree.FindEntry("link")
	require.NoError(t, err)
	assert.Equal(t, "0120000", entry.Mode.String())
}

// Package testhelper provides shared test utilities: an in-memory scenario
// builder that labels commits so tests can describe graphs by name.
package testhelper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
)

// Scenario wraps an in-memory repository with labeled commits. Every
// mutation runs in its own transaction and reloads the repo, so tests see
// the same state a fresh process would.
type Scenario struct {
	t    *testing.T
	Repo *repo.ReadonlyRepo
	ids  map[string]model.CommitID

	clock time.Time
}

// NewScenario creates an empty in-memory repository with a deterministic
// clock and user.
func NewScenario(t *testing.T) *Scenario {
	t.Helper()
	r, err := repo.InMemory()
	require.NoError(t, err)
	s := &Scenario{
		t:     t,
		Repo:  r,
		ids:   make(map[string]model.CommitID),
		clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	r.SetUser("Test User", "test@example.com")
	r.SetClock(s.now)
	s.ids["root"] = r.Store().RootCommitID()
	return s
}

// now returns a strictly increasing time so otherwise identical commits get
// distinct ids.
func (s *Scenario) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// Commit creates a labeled commit whose tree contains one file named after
// the label, on top of the given parent labels ("root" for the root commit).
func (s *Scenario) Commit(label string, parents ...string) model.CommitID {
	s.t.Helper()
	return s.CommitWithFiles(label, parents, map[string]string{label: label + " content\n"})
}

// CommitWithFiles creates a labeled commit with the given files layered over
// the merged parent tree.
func (s *Scenario) CommitWithFiles(label string, parents []string, files map[string]string) model.CommitID {
	s.t.Helper()
	parentIDs := make([]model.CommitID, len(parents))
	for i, parent := range parents {
		parentIDs[i] = s.ID(parent)
	}

	tx := s.Repo.StartTransaction()
	mut := tx.MutableRepo()

	tree, err := mut.MergedParentTree(parentIDs)
	require.NoError(s.t, err)
	tree = tree.Clone()
	for path, content := range files {
		blob, err := mut.Store().WriteBlob([]byte(content))
		require.NoError(s.t, err)
		tree.Set(path, model.Resolved(&model.TreeValue{Kind: model.KindFile, Blob: blob}))
	}
	treeID, err := mut.Store().WriteTree(tree)
	require.NoError(s.t, err)

	commit, err := mut.NewCommit(parentIDs, treeID).SetDescription(label).Write()
	require.NoError(s.t, err)
	_, err = tx.Commit("add commit " + label)
	require.NoError(s.t, err)

	s.ids[label] = commit.ID
	s.reload()
	return commit.ID
}

// Bookmark points a local bookmark at a labeled commit.
func (s *Scenario) Bookmark(name, label string) {
	s.t.Helper()
	tx := s.Repo.StartTransaction()
	tx.MutableRepo().SetLocalBookmark(name, model.NormalRef(s.ID(label)))
	_, err := tx.Commit("create bookmark " + name)
	require.NoError(s.t, err)
	s.reload()
}

// SetWc points the default workspace at a labeled commit.
func (s *Scenario) SetWc(label string) {
	s.t.Helper()
	tx := s.Repo.StartTransaction()
	tx.MutableRepo().SetWcCommit(repo.DefaultWorkspace, s.ID(label))
	_, err := tx.Commit("edit commit " + label)
	require.NoError(s.t, err)
	s.reload()
}

// ID returns the commit id recorded for a label.
func (s *Scenario) ID(label string) model.CommitID {
	s.t.Helper()
	id, ok := s.ids[label]
	require.True(s.t, ok, "unknown commit label %q", label)
	return id
}

// Relabel records a new id under a label, for following a commit through a
// rewrite.
func (s *Scenario) Relabel(label string, id model.CommitID) {
	s.ids[label] = id
}

// GetCommit reads the labeled commit from the store.
func (s *Scenario) GetCommit(label string) *model.Commit {
	s.t.Helper()
	commit, err := s.Repo.GetCommit(s.ID(label))
	require.NoError(s.t, err)
	return commit
}

// Reload re-reads the repo at the current head operation.
func (s *Scenario) Reload() {
	s.t.Helper()
	s.reload()
}

func (s *Scenario) reload() {
	s.t.Helper()
	reloaded, err := s.Repo.Reload()
	require.NoError(s.t, err)
	s.Repo = reloaded
}

// FileContent reads a resolved file from a labeled commit's tree.
func (s *Scenario) FileContent(label, path string) string {
	s.t.Helper()
	commit := s.GetCommit(label)
	tree, err := s.Repo.Store().GetTree(commit.Tree)
	require.NoError(s.t, err)
	value, ok := tree.Value(path).AsResolved()
	require.True(s.t, ok, "path %q is conflicted in %s", path, label)
	require.NotNil(s.t, value, "path %q is absent in %s", path, label)
	content, err := s.Repo.Store().ReadBlob(value.Blob)
	require.NoError(s.t, err)
	return string(content)
}

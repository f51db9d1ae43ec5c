package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.NewMemoryStore())
	require.NoError(t, err)
	return s
}

func fileTree(t *testing.T, st *store.Store, files map[string]string) *model.Tree {
	t.Helper()
	tree := model.NewTree()
	for path, content := range files {
		blob, err := st.WriteBlob([]byte(content))
		require.NoError(t, err)
		tree.Set(path, model.Resolved(&model.TreeValue{Kind: model.KindFile, Blob: blob}))
	}
	return tree
}

func resolvedContent(t *testing.T, st *store.Store, tree *model.Tree, path string) string {
	t.Helper()
	value, ok := tree.Value(path).AsResolved()
	require.True(t, ok, "path %q is conflicted", path)
	require.NotNil(t, value, "path %q is absent", path)
	content, err := st.ReadBlob(value.Blob)
	require.NoError(t, err)
	return string(content)
}

func TestTreesOneSideChanged(t *testing.T) {
	st := newTestStore(t)
	base := fileTree(t, st, map[string]string{"a.txt": "base\n"})
	sideA := fileTree(t, st, map[string]string{"a.txt": "changed\n"})
	sideB := fileTree(t, st, map[string]string{"a.txt": "base\n"})

	merged, err := Trees(st, base, sideA, sideB)
	require.NoError(t, err)
	assert.Equal(t, "changed\n", resolvedContent(t, st, merged, "a.txt"))
}

func TestTreesBothSidesAgree(t *testing.T) {
	st := newTestStore(t)
	base := fileTree(t, st, map[string]string{"a.txt": "base\n"})
	sideA := fileTree(t, st, map[string]string{"a.txt": "same change\n"})
	sideB := fileTree(t, st, map[string]string{"a.txt": "same change\n"})

	merged, err := Trees(st, base, sideA, sideB)
	require.NoError(t, err)
	assert.Equal(t, "same change\n", resolvedContent(t, st, merged, "a.txt"))
}

func TestTreesDisjointEditsMergeCleanly(t *testing.T) {
	st := newTestStore(t)
	base := fileTree(t, st, map[string]string{"a.txt": "one\ntwo\nthree\nfour\nfive\n"})
	sideA := fileTree(t, st, map[string]string{"a.txt": "ONE\ntwo\nthree\nfour\nfive\n"})
	sideB := fileTree(t, st, map[string]string{"a.txt": "one\ntwo\nthree\nfour\nFIVE\n"})

	merged, err := Trees(st, base, sideA, sideB)
	require.NoError(t, err)
	assert.Equal(t, "ONE\ntwo\nthree\nfour\nFIVE\n", resolvedContent(t, st, merged, "a.txt"))
	assert.False(t, merged.HasConflict())
}

func TestTreesOverlappingEditsConflict(t *testing.T) {
	st := newTestStore(t)
	base := fileTree(t, st, map[string]string{"a.txt": "line\n"})
	sideA := fileTree(t, st, map[string]string{"a.txt": "side a\n"})
	sideB := fileTree(t, st, map[string]string{"a.txt": "side b\n"})

	merged, err := Trees(st, base, sideA, sideB)
	require.NoError(t, err)
	assert.True(t, merged.HasConflict())
	assert.False(t, merged.Value("a.txt").IsResolved())
}

func TestTreesAdditionAndDeletion(t *testing.T) {
	st := newTestStore(t)
	base := fileTree(t, st, map[string]string{"keep.txt": "keep\n", "gone.txt": "old\n"})
	sideA := fileTree(t, st, map[string]string{"keep.txt": "keep\n", "gone.txt": "old\n", "new.txt": "fresh\n"})
	sideB := fileTree(t, st, map[string]string{"keep.txt": "keep\n"})

	merged, err := Trees(st, base, sideA, sideB)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", resolvedContent(t, st, merged, "new.txt"))
	assert.Equal(t, "keep\n", resolvedContent(t, st, merged, "keep.txt"))
	assert.True(t, merged.Value("gone.txt").IsAbsent())
}

func TestTreesDeleteVersusEditConflicts(t *testing.T) {
	st := newTestStore(t)
	base := fileTree(t, st, map[string]string{"a.txt": "base\n"})
	sideA := fileTree(t, st, map[string]string{"a.txt": "edited\n"})
	sideB := model.NewTree()

	merged, err := Trees(st, base, sideA, sideB)
	require.NoError(t, err)
	assert.True(t, merged.HasConflict())
}

func TestMergeLines(t *testing.T) {
	base := []byte("a\nb\nc\n")

	merged, clean := MergeLines(base, []byte("A\nb\nc\n"), []byte("a\nb\nC\n"))
	require.True(t, clean)
	assert.Equal(t, "A\nb\nC\n", string(merged))

	_, clean = MergeLines(base, []byte("x\nb\nc\n"), []byte("y\nb\nc\n"))
	assert.False(t, clean)
}

func TestMergeLinesInsertionAtSameSpot(t *testing.T) {
	base := []byte("a\nz\n")

	// Both sides insert different text between the same lines.
	_, clean := MergeLines(base, []byte("a\none\nz\n"), []byte("a\ntwo\nz\n"))
	assert.False(t, clean)

	// Identical insertions merge.
	merged, clean := MergeLines(base, []byte("a\nsame\nz\n"), []byte("a\nsame\nz\n"))
	require.True(t, clean)
	assert.Equal(t, "a\nsame\nz\n", string(merged))
}

func TestMaterializeResolvedFile(t *testing.T) {
	st := newTestStore(t)
	blob, err := st.WriteBlob([]byte("plain content\n"))
	require.NoError(t, err)

	out, err := Materialize(st, model.Resolved(&model.TreeValue{Kind: model.KindFile, Blob: blob}), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain content\n", string(out))
}

func TestMaterializeConflictMarkers(t *testing.T) {
	st := newTestStore(t)
	write := func(content string) *model.TreeValue {
		blob, err := st.WriteBlob([]byte(content))
		require.NoError(t, err)
		return &model.TreeValue{Kind: model.KindFile, Blob: blob}
	}
	a := write("stable\nside a\n")
	base := write("stable\nbase\n")
	b := write("stable\nside b\n")

	out, err := Materialize(st, model.NewMerge([]*model.TreeValue{a, base, b}), "a.txt")
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "stable\n")
	assert.Contains(t, text, "<<<<<<< Conflict 1 of 1\n")
	assert.Contains(t, text, "side a\n")
	assert.Contains(t, text, "base\n")
	assert.Contains(t, text, "side b\n")
	assert.Contains(t, text, ">>>>>>> Conflict 1 of 1 ends\n")
}

func TestDiff3StableRuns(t *testing.T) {
	hunks := Diff3([]byte("a\nb\nc\n"), []byte("a\nB\nc\n"), []byte("a\nb\nc\n"))

	require.Len(t, hunks, 3)
	assert.True(t, hunks[0].Stable)
	assert.False(t, hunks[1].Stable)
	assert.Equal(t, []string{"B\n"}, hunks[1].A)
	assert.Equal(t, []string{"b\n"}, hunks[1].Base)
	assert.True(t, hunks[2].Stable)
}

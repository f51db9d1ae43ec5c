// Package merge computes three-way (and N-way) merges of tree content. The
// result of a merge is a tree whose entries are either resolved values or
// structural conflicts; conflicts are only rendered to marker text by
// Materialize, for display or editing.
package merge

import (
	"sort"

	"strata.dev/strata/internal/index"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/store"
)

// Trees performs a per-path diff3-style merge of two sides against a base.
// Where the sides agree, or only one differs from the base, the result is
// the agreeing/changed value; where both differ and disagree, the result is
// an unresolved conflict carrying both candidates and the base. Pure: reads
// objects, writes at most new blobs for cleanly merged file content.
func Trees(st *store.Store, base, sideA, sideB *model.Tree) (*model.Tree, error) {
	result := model.NewTree()
	for _, path := range unionPaths(base, sideA, sideB) {
		merged, err := value(st, base.Value(path), sideA.Value(path), sideB.Value(path))
		if err != nil {
			return nil, err
		}
		result.Set(path, merged)
	}
	return result, nil
}

// Commits merges the trees of the given commits, generalizing to octopus
// merges by folding each extra side against the common ancestor accumulated
// so far. No commits yields the empty tree.
func Commits(st *store.Store, ix *index.Index, commits []*model.Commit) (*model.Tree, error) {
	if len(commits) == 0 {
		return model.NewTree(), nil
	}
	result, err := st.GetTree(commits[0].Tree)
	if err != nil {
		return nil, err
	}
	ancestorID := commits[0].ID
	for _, commit := range commits[1:] {
		ca, ok := ix.CommonAncestor(ancestorID, commit.ID)
		if !ok {
			ca = st.RootCommitID()
		}
		ancestorCommit, err := st.GetCommit(ca)
		if err != nil {
			return nil, err
		}
		baseTree, err := st.GetTree(ancestorCommit.Tree)
		if err != nil {
			return nil, err
		}
		sideTree, err := st.GetTree(commit.Tree)
		if err != nil {
			return nil, err
		}
		result, err = Trees(st, baseTree, result, sideTree)
		if err != nil {
			return nil, err
		}
		ancestorID = ca
	}
	return result, nil
}

// value merges one path. Trivial cases resolve structurally; three-term
// file conflicts additionally attempt per-field and content-level merges.
func value(st *store.Store, base, sideA, sideB model.Merge) (model.Merge, error) {
	merged := model.Flatten(base, sideA, sideB).Resolve()
	if merged.IsResolved() {
		return merged, nil
	}
	return resolveFileConflict(st, merged)
}

// resolveFileConflict tries to resolve a two-sided file conflict by merging
// the executable bit and the content independently, each by the three-way
// rule. Anything it cannot resolve keeps its structural form.
func resolveFileConflict(st *store.Store, conflict model.Merge) (model.Merge, error) {
	terms := conflict.Terms()
	if len(terms) != 3 {
		return conflict, nil
	}
	a, base, b := terms[0], terms[1], terms[2]
	if !isFile(a) || !isFile(base) || !isFile(b) {
		return conflict, nil
	}

	executable, ok := mergeBool(base.Executable, a.Executable, b.Executable)
	if !ok {
		return conflict, nil
	}

	blob := a.Blob
	if a.Blob != b.Blob {
		switch {
		case a.Blob == base.Blob:
			blob = b.Blob
		case b.Blob == base.Blob:
			blob = a.Blob
		default:
			baseContent, err := st.ReadBlob(base.Blob)
			if err != nil {
				return model.Merge{}, err
			}
			aContent, err := st.ReadBlob(a.Blob)
			if err != nil {
				return model.Merge{}, err
			}
			bContent, err := st.ReadBlob(b.Blob)
			if err != nil {
				return model.Merge{}, err
			}
			mergedContent, clean := MergeLines(baseContent, aContent, bContent)
			if !clean {
				return conflict, nil
			}
			blob, err = st.WriteBlob(mergedContent)
			if err != nil {
				return model.Merge{}, err
			}
		}
	}
	return model.Resolved(&model.TreeValue{
		Kind:       model.KindFile,
		Blob:       blob,
		Executable: executable,
	}), nil
}

func isFile(v *model.TreeValue) bool {
	return v != nil && v.Kind == model.KindFile
}

// mergeBool is the three-way rule on a scalar bit.
func mergeBool(base, a, b bool) (bool, bool) {
	switch {
	case a == b:
		return a, true
	case a == base:
		return b, true
	case b == base:
		return a, true
	default:
		return false, false
	}
}

func unionPaths(trees ...*model.Tree) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, tree := range trees {
		for _, path := range tree.Paths() {
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}
	// Paths() is sorted per tree but the union is not; re-sort for
	// deterministic merge order.
	sort.Strings(paths)
	return paths
}

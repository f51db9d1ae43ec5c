// Package absorb moves changes from a source commit into the mutable
// ancestors that last touched the changed lines. Each changed hunk is
// attributed by line ownership; hunks whose lines belong to more than one
// ancestor, or to an immutable one, stay in the source.
package absorb

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/rewrite"
)

// Options narrows what an absorb run may touch.
type Options struct {
	// Destinations restricts which ancestors may receive hunks; empty means
	// every mutable first-parent ancestor. Hunks owned by other ancestors
	// stay in the source.
	Destinations []model.CommitID
	// Paths restricts the files considered, each entry matching a file or a
	// directory prefix; empty means all files.
	Paths []string
}

// Stats reports what an absorb run did.
type Stats struct {
	// Absorbed maps each rewritten destination to the paths changed in it.
	Absorbed map[model.CommitID][]string
	// Rebased is the number of descendant commits rebased afterwards.
	Rebased int
	// AbandonedSource is set when the source became empty and was dropped.
	AbandonedSource bool
}

// hunk is one changed region of a file, in the coordinates of the source's
// parent version, with its replacement text from the source version.
type hunk struct {
	baseLo, baseHi int
	lines          []string
}

// pathPlan collects the hunks going into one file of one destination, along
// with the parent version their coordinates refer to.
type pathPlan struct {
	hunks       []hunk
	parentLines []string
}

// Absorb distributes the changes of the source commit into its mutable
// first-parent ancestors and rebases everything downstream. If the source
// ends up with no changes and no description, it is abandoned.
func Absorb(mut *repo.MutableRepo, sourceID model.CommitID, opts Options) (*Stats, error) {
	source, err := mut.GetCommit(sourceID)
	if err != nil {
		return nil, err
	}
	if len(source.Parents) != 1 {
		return nil, errors.NewUserError("cannot absorb from a merge commit")
	}
	if err := mut.CheckRewritable([]model.CommitID{sourceID}); err != nil {
		return nil, err
	}

	ancestors, err := mutableAncestors(mut, source.Parents[0])
	if err != nil {
		return nil, err
	}
	if len(ancestors) == 0 {
		return nil, errors.NewUserErrorWithHint(
			"no mutable ancestors to absorb into",
			"use 'describe' or 'commit' to keep the changes where they are")
	}

	// Ownership is still computed over the whole mutable chain; a narrowed
	// destination set only changes which owners may receive hunks.
	var allowed map[model.CommitID]bool
	if len(opts.Destinations) > 0 {
		allowed = make(map[model.CommitID]bool, len(opts.Destinations))
		for _, id := range opts.Destinations {
			allowed[id] = true
		}
		any := false
		for _, commit := range ancestors {
			if allowed[commit.ID] {
				any = true
				break
			}
		}
		if !any {
			return nil, errors.NewUserError("none of the destinations is a mutable ancestor of the source")
		}
	}

	parentTree, err := mut.MergedParentTree(source.Parents)
	if err != nil {
		return nil, err
	}
	sourceTree, err := mut.Store().GetTree(source.Tree)
	if err != nil {
		return nil, err
	}

	// destination commit -> path -> planned hunks.
	planned := make(map[model.CommitID]map[string]*pathPlan)
	for _, path := range sourceTree.Paths() {
		if !pathSelected(opts.Paths, path) {
			continue
		}
		if err := planPath(mut, ancestors, allowed, parentTree, sourceTree, path, planned); err != nil {
			return nil, err
		}
	}
	if len(planned) == 0 {
		return nil, errors.NewUserError("nothing to absorb")
	}

	stats := &Stats{Absorbed: make(map[model.CommitID][]string)}
	for _, dest := range ancestors {
		byPath, ok := planned[dest.ID]
		if !ok {
			continue
		}
		paths, err := rewriteDestination(mut, dest, byPath)
		if err != nil {
			return nil, err
		}
		if len(paths) > 0 {
			stats.Absorbed[dest.ID] = paths
		}
	}
	if len(stats.Absorbed) == 0 {
		return nil, errors.NewUserError("nothing to absorb")
	}

	rebased, err := rewrite.RebaseDescendants(mut)
	if err != nil {
		return nil, err
	}
	stats.Rebased = rebased

	abandoned, err := dropEmptiedSource(mut, sourceID)
	if err != nil {
		return nil, err
	}
	stats.AbandonedSource = abandoned
	return stats, nil
}

// mutableAncestors walks first parents from start while the commits stay
// rewritable, nearest first.
func mutableAncestors(mut *repo.MutableRepo, start model.CommitID) ([]*model.Commit, error) {
	var ancestors []*model.Commit
	id := start
	for {
		if err := mut.CheckRewritable([]model.CommitID{id}); err != nil {
			return ancestors, nil
		}
		commit, err := mut.GetCommit(id)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, commit)
		if len(commit.Parents) != 1 {
			return ancestors, nil
		}
		id = commit.Parents[0]
	}
}

// planPath attributes each changed hunk of one file to a destination. Files
// that are added, deleted, conflicted, or not regular files stay in the
// source.
func planPath(mut *repo.MutableRepo, ancestors []*model.Commit, allowed map[model.CommitID]bool, parentTree, sourceTree *model.Tree, path string, planned map[model.CommitID]map[string]*pathPlan) error {
	oldValue, okOld := resolvedFile(parentTree.Value(path))
	newValue, okNew := resolvedFile(sourceTree.Value(path))
	if !okOld || !okNew || oldValue.Blob == newValue.Blob {
		return nil
	}

	oldContent, err := mut.Store().ReadBlob(oldValue.Blob)
	if err != nil {
		return err
	}
	newContent, err := mut.Store().ReadBlob(newValue.Blob)
	if err != nil {
		return err
	}
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	owners, err := annotate(mut, ancestors, path, oldLines)
	if err != nil {
		return err
	}

	for _, op := range difflib.NewMatcher(oldLines, newLines).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		h := hunk{baseLo: op.I1, baseHi: op.I2, lines: newLines[op.J1:op.J2]}
		dest := attribute(owners, h)
		if dest.IsZero() {
			continue
		}
		if allowed != nil && !allowed[dest] {
			continue
		}
		byPath := planned[dest]
		if byPath == nil {
			byPath = make(map[string]*pathPlan)
			planned[dest] = byPath
		}
		plan := byPath[path]
		if plan == nil {
			plan = &pathPlan{parentLines: oldLines}
			byPath[path] = plan
		}
		plan.hunks = append(plan.hunks, h)
	}
	return nil
}

// annotate computes, for each line of the parent version of path, which
// mutable ancestor introduced it. Lines older than the mutable range get the
// zero id. The parent version is the version in ancestors[0]'s tree.
func annotate(mut *repo.MutableRepo, ancestors []*model.Commit, path string, parentLines []string) ([]model.CommitID, error) {
	// versions[k] is the file at ancestors[k]; one more for the boundary
	// version below the last mutable ancestor. An absent or conflicted
	// version truncates the chain, so everything older stays unowned.
	versions := [][]string{parentLines}
	for k := 1; k <= len(ancestors); k++ {
		var tree *model.Tree
		var err error
		if k < len(ancestors) {
			tree, err = mut.Store().GetTree(ancestors[k].Tree)
		} else {
			tree, err = mut.MergedParentTree(ancestors[k-1].Parents)
		}
		if err != nil {
			return nil, err
		}
		value, ok := resolvedFile(tree.Value(path))
		if !ok {
			versions = append(versions, nil)
			break
		}
		content, err := mut.Store().ReadBlob(value.Blob)
		if err != nil {
			return nil, err
		}
		versions = append(versions, splitLines(content))
	}

	// Walk from the oldest version forward: a line unmatched in the next
	// older version was introduced by the commit owning this version.
	deeper := make([]model.CommitID, len(versions[len(versions)-1]))
	for k := len(versions) - 2; k >= 0; k-- {
		match := matchMap(versions[k], versions[k+1])
		owners := make([]model.CommitID, len(versions[k]))
		for i := range owners {
			if match[i] >= 0 {
				owners[i] = deeper[match[i]]
			} else {
				owners[i] = ancestors[k].ID
			}
		}
		deeper = owners
	}
	return deeper, nil
}

// attribute picks the destination owning every line a hunk touches. A pure
// insertion is anchored on its neighboring lines, which must agree. The zero
// id means the hunk is unattributable and stays in the source.
func attribute(owners []model.CommitID, h hunk) model.CommitID {
	if h.baseLo < h.baseHi {
		owner := owners[h.baseLo]
		for i := h.baseLo + 1; i < h.baseHi; i++ {
			if owners[i] != owner {
				return model.CommitID{}
			}
		}
		return owner
	}

	// Insertion: both neighbors (where present) must have the same owner.
	var owner model.CommitID
	if h.baseLo > 0 {
		owner = owners[h.baseLo-1]
	}
	if h.baseLo < len(owners) {
		neighbor := owners[h.baseLo]
		if owner.IsZero() {
			owner = neighbor
		} else if neighbor != owner {
			return model.CommitID{}
		}
	}
	return owner
}

// rewriteDestination splices the planned hunks into the destination's own
// file versions and records the rewrite. Returns the paths changed.
func rewriteDestination(mut *repo.MutableRepo, dest *model.Commit, byPath map[string]*pathPlan) ([]string, error) {
	st := mut.Store()
	tree, err := st.GetTree(dest.Tree)
	if err != nil {
		return nil, err
	}
	tree = tree.Clone()

	var paths []string
	for path, plan := range byPath {
		value, ok := resolvedFile(tree.Value(path))
		if !ok {
			continue
		}
		content, err := st.ReadBlob(value.Blob)
		if err != nil {
			return nil, err
		}
		spliced, ok := splice(splitLines(content), plan)
		if !ok {
			continue
		}
		blob, err := st.WriteBlob(spliced)
		if err != nil {
			return nil, err
		}
		updated := *value
		updated.Blob = blob
		tree.Set(path, model.Resolved(&updated))
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, nil
	}
	sort.Strings(paths)

	treeID, err := st.WriteTree(tree)
	if err != nil {
		return nil, err
	}
	if _, err := mut.RewriteCommit(dest).SetTree(treeID).Write(); err != nil {
		return nil, err
	}
	return paths, nil
}

// splice applies a plan's hunks to the destination's version of the file.
// Hunk coordinates are mapped from the parent version via line matching; a
// hunk whose boundary lines do not map cleanly is skipped. The bool result
// is false when nothing applied.
func splice(destLines []string, plan *pathPlan) ([]byte, bool) {
	match := matchMap(plan.parentLines, destLines)

	type edit struct {
		lo, hi int
		lines  []string
	}
	var edits []edit
	for _, h := range plan.hunks {
		var lo, hi int
		if h.baseLo < h.baseHi {
			lo = match[h.baseLo]
			hi = match[h.baseHi-1] + 1
			if lo < 0 || match[h.baseHi-1] < 0 || hi-lo != h.baseHi-h.baseLo {
				continue
			}
		} else if h.baseLo > 0 {
			if match[h.baseLo-1] < 0 {
				continue
			}
			lo = match[h.baseLo-1] + 1
			hi = lo
		} else {
			if len(plan.parentLines) == 0 || match[0] < 0 {
				continue
			}
			lo = match[0]
			hi = lo
		}
		edits = append(edits, edit{lo: lo, hi: hi, lines: h.lines})
	}
	if len(edits) == 0 {
		return nil, false
	}

	// Apply from the bottom up so earlier offsets stay valid.
	sort.Slice(edits, func(i, j int) bool { return edits[i].lo < edits[j].lo })
	out := append([]string(nil), destLines...)
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		spliced := append([]string(nil), out[:e.lo]...)
		spliced = append(spliced, e.lines...)
		spliced = append(spliced, out[e.hi:]...)
		out = spliced
	}
	var buf []byte
	for _, line := range out {
		buf = append(buf, line...)
	}
	return buf, true
}

// pathSelected reports whether path matches one of the filters, either
// exactly or under a directory prefix.
func pathSelected(filters []string, path string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, filter := range filters {
		filter = strings.TrimSuffix(filter, "/")
		if path == filter || strings.HasPrefix(path, filter+"/") {
			return true
		}
	}
	return false
}

// resolvedFile unwraps a merge value that is a resolved regular file.
func resolvedFile(mv model.Merge) (*model.TreeValue, bool) {
	value, ok := mv.AsResolved()
	if !ok || value == nil || value.Kind != model.KindFile {
		return nil, false
	}
	return value, true
}

// dropEmptiedSource abandons the rebased source if it has no changes left
// and no description.
func dropEmptiedSource(mut *repo.MutableRepo, sourceID model.CommitID) (bool, error) {
	resolved := mut.ResolveParents([]model.CommitID{sourceID})
	if len(resolved) != 1 {
		return false, nil
	}
	source, err := mut.GetCommit(resolved[0])
	if err != nil {
		return false, err
	}
	if source.Description != "" {
		return false, nil
	}
	parentTree, err := mut.MergedParentTree(source.Parents)
	if err != nil {
		return false, err
	}
	parentTreeID, err := mut.Store().WriteTree(parentTree)
	if err != nil {
		return false, err
	}
	if source.Tree != parentTreeID {
		return false, nil
	}

	rw := rewrite.NewRewriter(mut, source)
	rw.Abandon(false)
	if _, err := rewrite.RebaseDescendants(mut); err != nil {
		return false, err
	}
	return true, nil
}

// matchMap maps each line index in a to its match in b, -1 if unmatched.
func matchMap(a, b []string) []int {
	m := make([]int, len(a))
	for i := range m {
		m[i] = -1
	}
	for _, block := range difflib.NewMatcher(a, b).GetMatchingBlocks() {
		for k := 0; k < block.Size; k++ {
			m[block.A+k] = block.B + k
		}
	}
	return m
}

// splitLines splits keeping terminators so joining reproduces the input.
func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

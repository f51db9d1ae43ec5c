// Package index maintains an in-memory reachability index over the commit
// graph: ancestor queries, topological descendant walks, and common-ancestor
// lookup. The index grows incrementally as commits are added; a commit's
// parents must be indexed before the commit itself.
package index

import (
	"fmt"

	"strata.dev/strata/internal/model"
)

type entry struct {
	id         model.CommitID
	parents    []int
	generation int
}

// Index is the reachability index. Positions are assigned in insertion
// order, which is therefore a valid topological order (parents first).
type Index struct {
	positions map[model.CommitID]int
	entries   []entry
}

// New creates an empty index.
func New() *Index {
	return &Index{positions: make(map[model.CommitID]int)}
}

// Clone returns a copy that can be extended without affecting the receiver.
func (ix *Index) Clone() *Index {
	clone := &Index{
		positions: make(map[model.CommitID]int, len(ix.positions)),
		entries:   append([]entry(nil), ix.entries...),
	}
	for id, pos := range ix.positions {
		clone.positions[id] = pos
	}
	return clone
}

// Has reports whether the commit is indexed.
func (ix *Index) Has(id model.CommitID) bool {
	_, ok := ix.positions[id]
	return ok
}

// Len returns the number of indexed commits.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Add indexes a commit. Re-adding an indexed commit is a no-op. All parents
// must already be indexed.
func (ix *Index) Add(id model.CommitID, parents []model.CommitID) error {
	if ix.Has(id) {
		return nil
	}
	e := entry{id: id, parents: make([]int, 0, len(parents))}
	for _, parent := range parents {
		pos, ok := ix.positions[parent]
		if !ok {
			return fmt.Errorf("index: parent %s of %s not indexed", parent.Short(), id.Short())
		}
		e.parents = append(e.parents, pos)
		if gen := ix.entries[pos].generation + 1; gen > e.generation {
			e.generation = gen
		}
	}
	ix.positions[id] = len(ix.entries)
	ix.entries = append(ix.entries, e)
	return nil
}

// IsAncestor reports whether ancestor is reachable from descendant through
// parent edges. A commit is its own ancestor.
func (ix *Index) IsAncestor(ancestor, descendant model.CommitID) bool {
	ancestorPos, ok := ix.positions[ancestor]
	if !ok {
		return false
	}
	startPos, ok := ix.positions[descendant]
	if !ok {
		return false
	}
	minGen := ix.entries[ancestorPos].generation
	seen := map[int]bool{startPos: true}
	work := []int{startPos}
	for len(work) > 0 {
		pos := work[len(work)-1]
		work = work[:len(work)-1]
		if pos == ancestorPos {
			return true
		}
		for _, parent := range ix.entries[pos].parents {
			// Generations only decrease walking up; prune below the target.
			if !seen[parent] && ix.entries[parent].generation >= minGen {
				seen[parent] = true
				work = append(work, parent)
			}
		}
	}
	return false
}

// Descendants returns every commit at or below any of the roots (the roots
// themselves included), ordered so each commit's parents precede it.
func (ix *Index) Descendants(roots []model.CommitID) []model.CommitID {
	rootSet := make(map[int]bool, len(roots))
	minPos := len(ix.entries)
	for _, root := range roots {
		if pos, ok := ix.positions[root]; ok {
			rootSet[pos] = true
			if pos < minPos {
				minPos = pos
			}
		}
	}
	reachable := make([]bool, len(ix.entries))
	var result []model.CommitID
	for pos := minPos; pos < len(ix.entries); pos++ {
		if rootSet[pos] {
			reachable[pos] = true
		} else {
			for _, parent := range ix.entries[pos].parents {
				if reachable[parent] {
					reachable[pos] = true
					break
				}
			}
		}
		if reachable[pos] {
			result = append(result, ix.entries[pos].id)
		}
	}
	return result
}

// ancestorSet returns the positions of all ancestors of id, itself included.
func (ix *Index) ancestorSet(id model.CommitID) map[int]bool {
	set := make(map[int]bool)
	start, ok := ix.positions[id]
	if !ok {
		return set
	}
	work := []int{start}
	set[start] = true
	for len(work) > 0 {
		pos := work[len(work)-1]
		work = work[:len(work)-1]
		for _, parent := range ix.entries[pos].parents {
			if !set[parent] {
				set[parent] = true
				work = append(work, parent)
			}
		}
	}
	return set
}

// CommonAncestor returns the highest-generation commit that is an ancestor
// of both a and b. The root commit makes one always exist in a connected
// graph; ok is false only if either id is unknown.
func (ix *Index) CommonAncestor(a, b model.CommitID) (model.CommitID, bool) {
	if !ix.Has(a) || !ix.Has(b) {
		return model.CommitID{}, false
	}
	ancestorsA := ix.ancestorSet(a)
	best := -1
	for pos := range ix.ancestorSet(b) {
		if !ancestorsA[pos] {
			continue
		}
		if best == -1 || ix.entries[pos].generation > ix.entries[best].generation {
			best = pos
		}
	}
	if best == -1 {
		return model.CommitID{}, false
	}
	return ix.entries[best].id, true
}

// Heads removes duplicates and any id that is an ancestor of another id,
// preserving the order of first occurrence. Used to deduplicate parent sets
// when an abandoned merge commit's children adopt its parents.
func (ix *Index) Heads(ids []model.CommitID) []model.CommitID {
	var unique []model.CommitID
	seen := make(map[model.CommitID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	var heads []model.CommitID
	for i, id := range unique {
		redundant := false
		for j, other := range unique {
			if i != j && ix.IsAncestor(id, other) {
				redundant = true
				break
			}
		}
		if !redundant {
			heads = append(heads, id)
		}
	}
	return heads
}

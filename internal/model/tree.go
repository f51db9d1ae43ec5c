package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Tree is a mapping from repository-relative path to a merge value. Entries
// are stored flat (full paths, not nested directories) and serialize in
// sorted path order so the encoding is canonical.
type Tree struct {
	entries map[string]Merge
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{entries: make(map[string]Merge)}
}

// Value returns the merge value at path, or resolved absence.
func (t *Tree) Value(path string) Merge {
	if mv, ok := t.entries[path]; ok {
		return mv
	}
	return Absent()
}

// Set stores a merge value at path. Resolved absence deletes the entry.
func (t *Tree) Set(path string, mv Merge) {
	if mv.IsAbsent() {
		delete(t.entries, path)
		return
	}
	t.entries[path] = mv
}

// Paths returns all present paths in sorted order.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.entries))
	for path := range t.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of present entries.
func (t *Tree) Len() int {
	return len(t.entries)
}

// HasConflict reports whether any entry is unresolved.
func (t *Tree) HasConflict() bool {
	for _, mv := range t.entries {
		if !mv.IsResolved() {
			return true
		}
	}
	return false
}

// ConflictPaths returns the sorted paths of all unresolved entries.
func (t *Tree) ConflictPaths() []string {
	var paths []string
	for path, mv := range t.entries {
		if !mv.IsResolved() {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a copy sharing no mutable state with the receiver.
func (t *Tree) Clone() *Tree {
	clone := NewTree()
	for path, mv := range t.entries {
		clone.entries[path] = mv
	}
	return clone
}

// treeEntryJSON is the serialized form of one tree entry. Terms alternate
// add/remove starting positive; a null term is an absent entry.
type treeEntryJSON struct {
	Path  string       `json:"path"`
	Terms []*TreeValue `json:"terms"`
}

// MarshalJSON encodes entries as a path-sorted array for a canonical form.
func (t *Tree) MarshalJSON() ([]byte, error) {
	entries := make([]treeEntryJSON, 0, len(t.entries))
	for _, path := range t.Paths() {
		entries = append(entries, treeEntryJSON{
			Path:  path,
			Terms: t.entries[path].Terms(),
		})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var entries []treeEntryJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	t.entries = make(map[string]Merge, len(entries))
	for _, entry := range entries {
		if len(entry.Terms)%2 == 0 {
			return fmt.Errorf("tree entry %q: even term count %d", entry.Path, len(entry.Terms))
		}
		t.entries[entry.Path] = NewMerge(entry.Terms)
	}
	return nil
}

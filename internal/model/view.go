package model

import "sort"

// RefTarget is the target of a bookmark: absent, or a single commit id.
type RefTarget struct {
	Commit CommitID `json:"commit,omitempty"`
}

// AbsentRef returns the absent target.
func AbsentRef() RefTarget {
	return RefTarget{}
}

// NormalRef returns a target pointing at one commit.
func NormalRef(id CommitID) RefTarget {
	return RefTarget{Commit: id}
}

// IsAbsent reports whether the target points at nothing.
func (t RefTarget) IsAbsent() bool {
	return t.Commit.IsZero()
}

// IsPresent reports whether the target points at a commit.
func (t RefTarget) IsPresent() bool {
	return !t.IsAbsent()
}

// RemoteRef is the remote-tracking state of a bookmark on one remote.
type RemoteRef struct {
	Target  RefTarget `json:"target"`
	Tracked bool      `json:"tracked"`
}

// View is the mutable pointer-set of the repository at one point in the
// operation history: bookmarks, their remote-tracking counterparts, and the
// working-copy commit of each workspace.
type View struct {
	Bookmarks       map[string]RefTarget            `json:"bookmarks"`
	RemoteBookmarks map[string]map[string]RemoteRef `json:"remoteBookmarks,omitempty"`
	WcCommits       map[string]CommitID             `json:"wcCommits"`
	Heads           []CommitID                      `json:"heads"`
}

// NewView creates an empty view.
func NewView() *View {
	return &View{
		Bookmarks:       make(map[string]RefTarget),
		RemoteBookmarks: make(map[string]map[string]RemoteRef),
		WcCommits:       make(map[string]CommitID),
	}
}

// Clone returns a deep copy.
func (v *View) Clone() *View {
	clone := NewView()
	for name, target := range v.Bookmarks {
		clone.Bookmarks[name] = target
	}
	for name, remotes := range v.RemoteBookmarks {
		cloned := make(map[string]RemoteRef, len(remotes))
		for remote, ref := range remotes {
			cloned[remote] = ref
		}
		clone.RemoteBookmarks[name] = cloned
	}
	for ws, id := range v.WcCommits {
		clone.WcCommits[ws] = id
	}
	clone.Heads = append([]CommitID(nil), v.Heads...)
	return clone
}

// LocalBookmark returns the local target for name, absent if unset.
func (v *View) LocalBookmark(name string) RefTarget {
	return v.Bookmarks[name]
}

// SetLocalBookmark sets or deletes the local target for name.
func (v *View) SetLocalBookmark(name string, target RefTarget) {
	if target.IsAbsent() {
		delete(v.Bookmarks, name)
		return
	}
	v.Bookmarks[name] = target
}

// BookmarkNames returns all local bookmark names in sorted order.
func (v *View) BookmarkNames() []string {
	names := make([]string, 0, len(v.Bookmarks))
	for name := range v.Bookmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTrackedRemotes reports whether any remote counterpart of the bookmark
// is tracked. An absent local bookmark with tracked remotes is resurrected
// by a set, not created.
func (v *View) HasTrackedRemotes(name string) bool {
	for _, ref := range v.RemoteBookmarks[name] {
		if ref.Tracked {
			return true
		}
	}
	return false
}

// WcCommit returns the working-copy commit of the workspace, zero if the
// workspace is unknown.
func (v *View) WcCommit(workspace string) CommitID {
	return v.WcCommits[workspace]
}

// SetWcCommit assigns the working-copy commit of the workspace.
func (v *View) SetWcCommit(workspace string, id CommitID) {
	v.WcCommits[workspace] = id
}

// AddHead records a head commit, keeping the list free of duplicates.
func (v *View) AddHead(id CommitID) {
	for _, head := range v.Heads {
		if head == id {
			return
		}
	}
	v.Heads = append(v.Heads, id)
}

// RemoveHead drops a head commit if present.
func (v *View) RemoveHead(id CommitID) {
	for i, head := range v.Heads {
		if head == id {
			v.Heads = append(v.Heads[:i], v.Heads[i+1:]...)
			return
		}
	}
}

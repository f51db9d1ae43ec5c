// Package gitexport mirrors local bookmarks into a git repository. Commits
// are converted object by object (blobs, nested trees, commits) through
// go-git's storage layer; commits whose trees still carry conflicts cannot
// be represented in git and are skipped along with their descendants.
package gitexport

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitobj "github.com/go-git/go-git/v5/plumbing/object"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
)

// Stats reports what an export did.
type Stats struct {
	// Exported maps bookmark names to the git commit hash they now point at.
	Exported map[string]string
	// Skipped lists bookmarks that could not be exported because their
	// target or one of its ancestors has unresolved conflicts.
	Skipped []string
}

// Export writes every local bookmark of the repo into gitRepo as a branch
// under refs/heads/.
func Export(r *repo.ReadonlyRepo, gitRepo *git.Repository) (*Stats, error) {
	e := &exporter{
		repo:    r,
		storer:  gitRepo.Storer,
		hashes:  make(map[model.CommitID]plumbing.Hash),
		skipped: make(map[model.CommitID]bool),
	}
	stats := &Stats{Exported: make(map[string]string)}
	for _, name := range r.View().BookmarkNames() {
		target := r.View().LocalBookmark(name)
		if target.IsAbsent() {
			continue
		}
		hash, err := e.exportCommit(target.Commit)
		if err != nil {
			return nil, err
		}
		if e.skipped[target.Commit] {
			stats.Skipped = append(stats.Skipped, name)
			continue
		}
		ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
		if err := gitRepo.Storer.SetReference(ref); err != nil {
			return nil, errors.NewBackendError("set git ref", name, err)
		}
		stats.Exported[name] = hash.String()
	}
	return stats, nil
}

type exporter struct {
	repo    *repo.ReadonlyRepo
	storer  gitStorer
	hashes  map[model.CommitID]plumbing.Hash
	skipped map[model.CommitID]bool
}

// gitStorer is the slice of go-git's storage interface the exporter needs.
type gitStorer interface {
	NewEncodedObject() plumbing.EncodedObject
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
}

// exportCommit converts one commit and its ancestry, memoized. A zero hash
// with the commit marked skipped means it carries conflicts.
func (e *exporter) exportCommit(id model.CommitID) (plumbing.Hash, error) {
	if hash, ok := e.hashes[id]; ok {
		return hash, nil
	}
	if e.skipped[id] {
		return plumbing.ZeroHash, nil
	}

	commit, err := e.repo.GetCommit(id)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var parents []plumbing.Hash
	for _, parent := range commit.Parents {
		// The virtual root has no git counterpart; children of the root
		// become parentless git commits.
		if parent == e.repo.Store().RootCommitID() {
			continue
		}
		hash, err := e.exportCommit(parent)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if e.skipped[parent] {
			e.skipped[id] = true
			return plumbing.ZeroHash, nil
		}
		parents = append(parents, hash)
	}

	tree, err := e.repo.Store().GetTree(commit.Tree)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if tree.HasConflict() {
		e.skipped[id] = true
		return plumbing.ZeroHash, nil
	}
	treeHash, err := e.exportTree(tree)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	gitCommit := &gitobj.Commit{
		Author:       gitSignature(commit.Author),
		Committer:    gitSignature(commit.Committer),
		Message:      commit.Description,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := e.storer.NewEncodedObject()
	if err := gitCommit.Encode(obj); err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("encode git commit", id.String(), err)
	}
	hash, err := e.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("write git commit", id.String(), err)
	}
	e.hashes[id] = hash
	return hash, nil
}

// dirNode is one directory level of the nested git tree being assembled
// from the flat path map.
type dirNode struct {
	entries map[string]gitobj.TreeEntry
	dirs    map[string]*dirNode
}

func newDirNode() *dirNode {
	return &dirNode{
		entries: make(map[string]gitobj.TreeEntry),
		dirs:    make(map[string]*dirNode),
	}
}

func (n *dirNode) subdir(name string) *dirNode {
	sub, ok := n.dirs[name]
	if !ok {
		sub = newDirNode()
		n.dirs[name] = sub
	}
	return sub
}

func (e *exporter) exportTree(tree *model.Tree) (plumbing.Hash, error) {
	root := newDirNode()
	for _, path := range tree.Paths() {
		value, ok := tree.Value(path).AsResolved()
		if !ok || value == nil {
			continue
		}
		node := root
		parts := strings.Split(path, "/")
		for _, part := range parts[:len(parts)-1] {
			node = node.subdir(part)
		}
		entry, err := e.exportValue(parts[len(parts)-1], value)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		node.entries[entry.Name] = entry
	}
	return e.writeDir(root)
}

func (e *exporter) exportValue(name string, value *model.TreeValue) (gitobj.TreeEntry, error) {
	switch value.Kind {
	case model.KindFile:
		content, err := e.repo.Store().ReadBlob(value.Blob)
		if err != nil {
			return gitobj.TreeEntry{}, err
		}
		hash, err := e.writeBlob(content)
		if err != nil {
			return gitobj.TreeEntry{}, err
		}
		mode := filemode.Regular
		if value.Executable {
			mode = filemode.Executable
		}
		return gitobj.TreeEntry{Name: name, Mode: mode, Hash: hash}, nil
	case model.KindSymlink:
		hash, err := e.writeBlob([]byte(value.Target))
		if err != nil {
			return gitobj.TreeEntry{}, err
		}
		return gitobj.TreeEntry{Name: name, Mode: filemode.Symlink, Hash: hash}, nil
	default:
		// Submodule pointers reference objects in another store; export a
		// gitlink with a zero hash so the path at least round-trips.
		return gitobj.TreeEntry{Name: name, Mode: filemode.Submodule, Hash: plumbing.ZeroHash}, nil
	}
}

func (e *exporter) writeDir(node *dirNode) (plumbing.Hash, error) {
	entries := make([]gitobj.TreeEntry, 0, len(node.entries)+len(node.dirs))
	for _, entry := range node.entries {
		entries = append(entries, entry)
	}
	for name, sub := range node.dirs {
		hash, err := e.writeDir(sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, gitobj.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}
	sortTreeEntries(entries)

	tree := &gitobj.Tree{Entries: entries}
	obj := e.storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("encode git tree", "", err)
	}
	hash, err := e.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("write git tree", "", err)
	}
	return hash, nil
}

func (e *exporter) writeBlob(content []byte) (plumbing.Hash, error) {
	obj := e.storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("encode git blob", "", err)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, errors.NewBackendError("encode git blob", "", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("encode git blob", "", err)
	}
	hash, err := e.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, errors.NewBackendError("write git blob", "", err)
	}
	return hash, nil
}

func gitSignature(sig model.Signature) gitobj.Signature {
	return gitobj.Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

// sortTreeEntries sorts in git's canonical tree order, where directory
// names compare as if they had a trailing slash.
func sortTreeEntries(entries []gitobj.TreeEntry) {
	sortName := func(entry gitobj.TreeEntry) string {
		if entry.Mode == filemode.Dir {
			return entry.Name + "/"
		}
		return entry.Name
	}
	sort.Slice(entries, func(i, j int) bool {
		return sortName(entries[i]) < sortName(entries[j])
	})
}

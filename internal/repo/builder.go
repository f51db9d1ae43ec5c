package repo

import (
	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
)

// SignBehavior controls what happens to a commit's signature on write.
type SignBehavior int

const (
	// SignBehaviorKeep carries any existing signature through unchanged.
	SignBehaviorKeep SignBehavior = iota
	// SignBehaviorDrop discards any existing signature.
	SignBehaviorDrop
	// SignBehaviorSign signs the commit with the configured signer.
	SignBehaviorSign
)

// Signer produces a signature over the serialized commit payload.
type Signer func(payload []byte) ([]byte, error)

// CommitBuilder assembles a new or rewritten commit. Setters return the
// builder for chaining; nothing is persisted until Write.
type CommitBuilder struct {
	mut          *MutableRepo
	commit       *model.Commit
	original     *model.Commit
	signBehavior SignBehavior
	signer       Signer
}

// Parents returns the parent list as currently set.
func (b *CommitBuilder) Parents() []model.CommitID {
	return b.commit.Parents
}

// SetParents replaces the parent list.
func (b *CommitBuilder) SetParents(parents []model.CommitID) *CommitBuilder {
	b.commit.Parents = append([]model.CommitID(nil), parents...)
	return b
}

// Tree returns the tree id as currently set.
func (b *CommitBuilder) Tree() model.TreeID {
	return b.commit.Tree
}

// SetTree replaces the tree.
func (b *CommitBuilder) SetTree(tree model.TreeID) *CommitBuilder {
	b.commit.Tree = tree
	return b
}

// Description returns the description as currently set.
func (b *CommitBuilder) Description() string {
	return b.commit.Description
}

// SetDescription replaces the description.
func (b *CommitBuilder) SetDescription(description string) *CommitBuilder {
	b.commit.Description = description
	return b
}

// Author returns the author as currently set.
func (b *CommitBuilder) Author() model.Signature {
	return b.commit.Author
}

// SetAuthor replaces the author.
func (b *CommitBuilder) SetAuthor(author model.Signature) *CommitBuilder {
	b.commit.Author = author
	return b
}

// Committer returns the committer as currently set.
func (b *CommitBuilder) Committer() model.Signature {
	return b.commit.Committer
}

// SetCommitter replaces the committer.
func (b *CommitBuilder) SetCommitter(committer model.Signature) *CommitBuilder {
	b.commit.Committer = committer
	return b
}

// SetPredecessors records which commits this one was derived from. A copy
// of a commit needs this to get an id of its own; a field-identical commit
// with the same predecessors would be the same object.
func (b *CommitBuilder) SetPredecessors(predecessors []model.CommitID) *CommitBuilder {
	b.commit.Predecessors = append([]model.CommitID(nil), predecessors...)
	return b
}

// SetSignBehavior selects what happens to the signature on write.
func (b *CommitBuilder) SetSignBehavior(behavior SignBehavior) *CommitBuilder {
	b.signBehavior = behavior
	return b
}

// SetSigner provides the signer used by SignBehaviorSign.
func (b *CommitBuilder) SetSigner(signer Signer) *CommitBuilder {
	b.signer = signer
	return b
}

// Write persists the commit. For a rewrite whose every field still matches
// the original, the original is returned untouched and nothing is recorded,
// so rewriting with unchanged values is a no-op. Otherwise the commit is
// stored, indexed, added to the view heads, and (for a rewrite) the original
// is recorded as rewritten.
func (b *CommitBuilder) Write() (*model.Commit, error) {
	commit, err := b.finalize()
	if err != nil {
		return nil, err
	}
	if b.original != nil && unchangedRewrite(commit, b.original) {
		return b.original, nil
	}

	written, err := b.mut.Store().WriteCommit(commit)
	if err != nil {
		return nil, err
	}
	if err := b.mut.indexCommit(written); err != nil {
		return nil, err
	}
	b.mut.addHead(written)
	if b.original != nil {
		b.mut.RecordRewrittenCommit(b.original.ID, written.ID)
	}
	return written, nil
}

// WriteHidden persists the commit without touching the view, the index, or
// the rewrite record. Used for throwaway commits such as editor previews.
func (b *CommitBuilder) WriteHidden() (*model.Commit, error) {
	commit, err := b.finalize()
	if err != nil {
		return nil, err
	}
	return b.mut.Store().WriteCommit(commit)
}

func (b *CommitBuilder) finalize() (*model.Commit, error) {
	commit := b.commit.Clone()
	switch b.signBehavior {
	case SignBehaviorKeep:
	case SignBehaviorDrop:
		commit.Signature = nil
	case SignBehaviorSign:
		if b.signer == nil {
			return nil, errors.NewUserError("no commit signer is configured")
		}
		payload, err := commit.SigningPayload()
		if err != nil {
			return nil, err
		}
		signature, err := b.signer(payload)
		if err != nil {
			return nil, err
		}
		commit.Signature = signature
	}
	return commit, nil
}

// unchangedRewrite reports whether a rewrite would reproduce the original in
// every field a user can observe. The committer timestamp is excluded so a
// no-op rewrite does not churn ids.
func unchangedRewrite(commit, original *model.Commit) bool {
	if commit.Tree != original.Tree ||
		commit.Description != original.Description ||
		!commit.Author.Equal(original.Author) ||
		string(commit.Signature) != string(original.Signature) ||
		len(commit.Parents) != len(original.Parents) {
		return false
	}
	for i, parent := range commit.Parents {
		if parent != original.Parents[i] {
			return false
		}
	}
	return true
}

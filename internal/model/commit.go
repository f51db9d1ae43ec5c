package model

import (
	"encoding/json"
	"time"
)

// Signature identifies the author or committer of a commit.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}

// Equal compares two signatures, treating timestamps at different locations
// but the same instant as equal.
func (s Signature) Equal(other Signature) bool {
	return s.Name == other.Name && s.Email == other.Email && s.When.Equal(other.When)
}

// Commit is an immutable node in the history graph. The ID field is not
// part of the canonical encoding; it is the digest of the encoding of all
// other fields, computed by the store on write.
type Commit struct {
	ID           CommitID   `json:"-"`
	Parents      []CommitID `json:"parents"`
	Tree         TreeID     `json:"tree"`
	Author       Signature  `json:"author"`
	Committer    Signature  `json:"committer"`
	Description  string     `json:"description"`
	Signature    []byte     `json:"signature,omitempty"`
	Predecessors []CommitID `json:"predecessors,omitempty"`
}

// IsSigned reports whether the commit carries a cryptographic signature.
func (c *Commit) IsSigned() bool {
	return len(c.Signature) > 0
}

// ParentIDs returns a copy of the parent id list.
func (c *Commit) ParentIDs() []CommitID {
	parents := make([]CommitID, len(c.Parents))
	copy(parents, c.Parents)
	return parents
}

// Clone returns a deep copy. The copy keeps the same ID; callers rewriting
// the commit must clear it before re-storing.
func (c *Commit) Clone() *Commit {
	clone := *c
	clone.Parents = append([]CommitID(nil), c.Parents...)
	clone.Predecessors = append([]CommitID(nil), c.Predecessors...)
	clone.Signature = append([]byte(nil), c.Signature...)
	return &clone
}

// SigningPayload returns the canonical bytes a signature covers: the commit
// encoding with the signature itself left out.
func (c *Commit) SigningPayload() ([]byte, error) {
	unsigned := c.Clone()
	unsigned.Signature = nil
	return json.Marshal(unsigned)
}

// DescriptionFirstLine returns the first line of the description for
// one-line summaries.
func (c *Commit) DescriptionFirstLine() string {
	for i := 0; i < len(c.Description); i++ {
		if c.Description[i] == '\n' {
			return c.Description[:i]
		}
	}
	return c.Description
}

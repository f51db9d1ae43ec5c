// Package model defines the immutable object model of a strata repository:
// commits, trees, merge values, views, and operations. Objects are
// content-addressed: an object's id is the digest of its canonical JSON
// encoding, so two objects with identical fields are the same object.
package model

import (
	"fmt"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// ID is a content address: a CIDv1 (raw codec, SHA2-256) over an object's
// canonical encoding. The zero ID is undefined and means "no object".
type ID struct {
	c gocid.Cid
}

// Aliases document which kind of object an id refers to. They are
// interchangeable on purpose: the store dedupes purely by content.
type (
	// CommitID identifies a commit object
	CommitID = ID
	// TreeID identifies a tree object
	TreeID = ID
	// BlobID identifies a file-content blob
	BlobID = ID
	// OperationID identifies an operation-log entry
	OperationID = ID
	// ViewID identifies a view snapshot
	ViewID = ID
)

// ComputeID computes the id for the given canonical encoding.
func ComputeID(data []byte) ID {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only fails for unknown hash codes
		panic(fmt.Sprintf("multihash: %v", err))
	}
	return ID{c: gocid.NewCidV1(gocid.Raw, mh)}
}

// ParseID parses the string form produced by String().
func ParseID(s string) (ID, error) {
	c, err := gocid.Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ID{c: c}, nil
}

// IsZero reports whether the id is undefined.
func (id ID) IsZero() bool {
	return !id.c.Defined()
}

// String returns the canonical base32 string form.
func (id ID) String() string {
	if id.IsZero() {
		return "(none)"
	}
	return id.c.String()
}

// Short returns a truncated form for human-readable summaries.
func (id ID) Short() string {
	s := id.String()
	if len(s) > 12 {
		return s[len(s)-12:]
	}
	return s
}

// Filename returns the base32lower encoding used as an on-disk object name.
func (id ID) Filename() string {
	encoded, _ := multibase.Encode(multibase.Base32, id.c.Bytes())
	return encoded
}

// MarshalText implements encoding.TextMarshaler so ids serialize as their
// canonical string form, including as JSON map keys. The zero id encodes
// as the empty string.
func (id ID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return []byte{}, nil
	}
	return []byte(id.c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

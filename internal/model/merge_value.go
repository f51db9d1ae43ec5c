package model

// ValueKind distinguishes the kinds of tree entries.
type ValueKind string

// Tree entry kinds
const (
	KindFile      ValueKind = "file"
	KindSymlink   ValueKind = "symlink"
	KindSubmodule ValueKind = "submodule"
)

// TreeValue is one resolved tree entry: a file, symlink, or submodule.
// A nil *TreeValue denotes an absent entry.
type TreeValue struct {
	Kind       ValueKind `json:"kind"`
	Blob       BlobID    `json:"blob,omitempty"`
	Executable bool      `json:"executable,omitempty"`
	Target     string    `json:"target,omitempty"`
}

// Equal reports whether two values (either possibly nil) are identical.
func (v *TreeValue) Equal(other *TreeValue) bool {
	if v == nil || other == nil {
		return v == nil && other == nil
	}
	return *v == *other
}

// Merge is a tree entry that is either resolved or an unresolved N-way
// conflict. Terms are stored interleaved: terms[0], terms[2], ... are
// positive (adds) and terms[1], terms[3], ... are negative (removes), so the
// list always has odd length and alternates sign starting positive. A
// resolved value is the single-term case. A nil term is an absent entry.
type Merge struct {
	terms []*TreeValue
}

// Resolved returns a merge holding a single resolved value (or absence, for
// a nil value).
func Resolved(v *TreeValue) Merge {
	return Merge{terms: []*TreeValue{v}}
}

// Absent returns the resolved absent entry.
func Absent() Merge {
	return Resolved(nil)
}

// NewMerge builds a merge from interleaved terms. The term count must be odd.
func NewMerge(terms []*TreeValue) Merge {
	if len(terms)%2 == 0 {
		panic("merge terms must alternate add/remove starting and ending positive")
	}
	return Merge{terms: append([]*TreeValue(nil), terms...)}
}

// Terms returns the interleaved term list.
func (m Merge) Terms() []*TreeValue {
	return m.terms
}

// Adds returns the positive terms.
func (m Merge) Adds() []*TreeValue {
	adds := make([]*TreeValue, 0, (len(m.terms)+1)/2)
	for i := 0; i < len(m.terms); i += 2 {
		adds = append(adds, m.terms[i])
	}
	return adds
}

// Removes returns the negative terms.
func (m Merge) Removes() []*TreeValue {
	removes := make([]*TreeValue, 0, len(m.terms)/2)
	for i := 1; i < len(m.terms); i += 2 {
		removes = append(removes, m.terms[i])
	}
	return removes
}

// IsResolved reports whether the merge degenerated to a single value.
func (m Merge) IsResolved() bool {
	return len(m.terms) == 1
}

// AsResolved returns the resolved value, if any.
func (m Merge) AsResolved() (*TreeValue, bool) {
	if m.IsResolved() {
		return m.terms[0], true
	}
	return nil, false
}

// IsAbsent reports whether the merge is the resolved absent entry.
func (m Merge) IsAbsent() bool {
	return m.IsResolved() && m.terms[0] == nil
}

// IsPresent reports whether the merge contributes an entry (resolved value
// or unresolved conflict).
func (m Merge) IsPresent() bool {
	return !m.IsAbsent()
}

// Simplify cancels pairs of equal positive and negative terms. A fully
// cancelled conflict degenerates to resolved presence or absence.
func (m Merge) Simplify() Merge {
	terms := append([]*TreeValue(nil), m.terms...)
	for i := 1; i < len(terms); i += 2 {
		for j := 0; j < len(terms); j += 2 {
			if terms[i].Equal(terms[j]) {
				// Swap the matching add into the slot right after the
				// remove, then cut the adjacent pair. Deleting an adjacent
				// (remove, add) pair keeps every other term in a slot of
				// the same sign.
				terms[j], terms[i+1] = terms[i+1], terms[j]
				terms = append(terms[:i], terms[i+2:]...)
				// Restart the scan over the shortened list.
				i = -1
				break
			}
		}
	}
	return Merge{terms: terms}
}

// Resolve attempts trivial resolution: simplification plus the rule that a
// merge whose positive terms all agree resolves to that value. Returns the
// (possibly still conflicted) result.
func (m Merge) Resolve() Merge {
	simplified := m.Simplify()
	if simplified.IsResolved() {
		return simplified
	}
	adds := simplified.Adds()
	for _, add := range adds[1:] {
		if !add.Equal(adds[0]) {
			return simplified
		}
	}
	return Resolved(adds[0])
}

// Flatten expands any conflicted inputs into one interleaved term list:
// the result's positive terms are the adds of each side, its negative terms
// the removes of each side plus the base terms with signs inverted.
func Flatten(base Merge, sides ...Merge) Merge {
	terms := append([]*TreeValue(nil), sides[0].terms...)
	for _, side := range sides[1:] {
		// Negate the base: its adds become removes and vice versa.
		for _, t := range base.terms {
			terms = append(terms, t)
		}
		terms = append(terms, side.terms...)
	}
	return Merge{terms: terms}
}

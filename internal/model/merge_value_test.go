package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileValue(content string) *TreeValue {
	return &TreeValue{Kind: KindFile, Blob: ComputeID([]byte(content))}
}

func TestResolveAllAddsAgree(t *testing.T) {
	v := fileValue("same")
	other := fileValue("other")

	m := NewMerge([]*TreeValue{v, other, v})
	resolved := m.Resolve()

	require.True(t, resolved.IsResolved())
	got, _ := resolved.AsResolved()
	assert.True(t, got.Equal(v))
}

func TestSimplifyCancelsEqualPairs(t *testing.T) {
	a := fileValue("a")
	b := fileValue("b")

	// a is both added and removed, so only b survives.
	m := NewMerge([]*TreeValue{a, a, b})
	simplified := m.Simplify()

	require.True(t, simplified.IsResolved())
	got, _ := simplified.AsResolved()
	assert.True(t, got.Equal(b))
}

func TestSimplifyCancelsNonAdjacentPair(t *testing.T) {
	w := fileValue("w")
	x := fileValue("x")
	y := fileValue("y")
	r := fileValue("r")

	// The remove of y at index 1 matches the add of y at index 4, three
	// slots away. Cancelling them must leave w and x in positive slots and
	// r in the negative one.
	m := NewMerge([]*TreeValue{w, y, x, r, y})
	simplified := m.Simplify()

	require.Len(t, simplified.Terms(), 3)
	adds := simplified.Adds()
	require.Len(t, adds, 2)
	assert.True(t, adds[0].Equal(w))
	assert.True(t, adds[1].Equal(x))
	removes := simplified.Removes()
	require.Len(t, removes, 1)
	assert.True(t, removes[0].Equal(r))
}

func TestSimplifyNonAdjacentCancellationCascades(t *testing.T) {
	a := fileValue("a")
	b := fileValue("b")

	// The remove of a matches only the distant add of a; after that
	// cancellation the b pair becomes cancellable too.
	m := NewMerge([]*TreeValue{b, a, b, b, a})
	simplified := m.Simplify()

	require.True(t, simplified.IsResolved())
	got, _ := simplified.AsResolved()
	assert.True(t, got.Equal(b))
}

func TestSimplifyKeepsRealConflict(t *testing.T) {
	a := fileValue("a")
	b := fileValue("b")
	c := fileValue("c")

	m := NewMerge([]*TreeValue{a, b, c})
	simplified := m.Simplify()

	assert.False(t, simplified.IsResolved())
	assert.Len(t, simplified.Terms(), 3)
}

func TestSimplifyCancellationCascades(t *testing.T) {
	a := fileValue("a")
	b := fileValue("b")

	// Removing a cancels one add of a; the leftover pair then cancels too.
	m := NewMerge([]*TreeValue{a, a, b, b, a})
	simplified := m.Simplify()

	require.True(t, simplified.IsResolved())
	got, _ := simplified.AsResolved()
	assert.True(t, got.Equal(a))
}

func TestFlattenKeepsAlternation(t *testing.T) {
	base := Resolved(fileValue("base"))
	sideA := Resolved(fileValue("a"))
	sideB := NewMerge([]*TreeValue{fileValue("b1"), fileValue("mid"), fileValue("b2")})

	flat := Flatten(base, sideA, sideB)

	// A side of length 1, the base, and a side of length 3: 5 terms total.
	require.Len(t, flat.Terms(), 5)
	assert.Equal(t, 3, len(flat.Adds()))
	assert.Equal(t, 2, len(flat.Removes()))

	// The base term lands in a negative slot.
	assert.True(t, flat.Removes()[0].Equal(fileValue("base")))
}

func TestFlattenOneSideUnchangedResolves(t *testing.T) {
	base := Resolved(fileValue("base"))
	changed := Resolved(fileValue("new"))

	// side A kept the base value, side B changed it.
	resolved := Flatten(base, base, changed).Resolve()

	require.True(t, resolved.IsResolved())
	got, _ := resolved.AsResolved()
	assert.True(t, got.Equal(fileValue("new")))
}

func TestFlattenDeletionAndChangeConflicts(t *testing.T) {
	base := Resolved(fileValue("base"))
	deleted := Absent()
	changed := Resolved(fileValue("new"))

	result := Flatten(base, deleted, changed).Resolve()

	assert.False(t, result.IsResolved())
}

func TestAbsentIsNotPresent(t *testing.T) {
	assert.True(t, Absent().IsAbsent())
	assert.False(t, Absent().IsPresent())
	assert.True(t, Resolved(fileValue("x")).IsPresent())
}

func TestNewMergePanicsOnEvenTerms(t *testing.T) {
	assert.Panics(t, func() {
		NewMerge([]*TreeValue{fileValue("a"), fileValue("b")})
	})
}

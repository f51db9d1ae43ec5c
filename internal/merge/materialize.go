package merge

import (
	"fmt"
	"strings"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/store"
)

// Conflict marker lines. Materialized output is for display and manual
// editing only; parsing it back into structural form is a separate concern
// and not guaranteed to round-trip.
const (
	markerConflictStart = "<<<<<<<"
	markerConflictEnd   = ">>>>>>>"
	markerSide          = "+++++++"
	markerBase          = "-------"
)

// Materialize renders the merge value at path as file content. Resolved
// files render as their blob; conflicts render with conflict markers
// carrying every side and the base.
func Materialize(st *store.Store, mv model.Merge, path string) ([]byte, error) {
	if resolved, ok := mv.AsResolved(); ok {
		if resolved == nil {
			return nil, nil
		}
		switch resolved.Kind {
		case model.KindFile:
			return st.ReadBlob(resolved.Blob)
		case model.KindSymlink:
			return []byte(resolved.Target), nil
		default:
			return []byte(fmt.Sprintf("submodule %s\n", resolved.Blob.Short())), nil
		}
	}

	terms := mv.Terms()
	if len(terms) == 3 && isFile(terms[0]) && isFile(terms[1]) && isFile(terms[2]) {
		return materializeFileConflict(st, terms[0], terms[1], terms[2])
	}
	return materializeGenericConflict(st, mv)
}

// materializeFileConflict renders a two-sided content conflict hunk by
// hunk, keeping cleanly merged regions unmarked.
func materializeFileConflict(st *store.Store, a, base, b *model.TreeValue) ([]byte, error) {
	baseContent, err := st.ReadBlob(base.Blob)
	if err != nil {
		return nil, err
	}
	aContent, err := st.ReadBlob(a.Blob)
	if err != nil {
		return nil, err
	}
	bContent, err := st.ReadBlob(b.Blob)
	if err != nil {
		return nil, err
	}

	hunks := Diff3(baseContent, aContent, bContent)
	total := 0
	for _, hunk := range hunks {
		if conflicted(hunk) {
			total++
		}
	}

	var out strings.Builder
	n := 0
	for _, hunk := range hunks {
		if hunk.Stable {
			writeLines(&out, hunk.Base)
			continue
		}
		baseText := strings.Join(hunk.Base, "")
		aText := strings.Join(hunk.A, "")
		bText := strings.Join(hunk.B, "")
		switch {
		case aText == baseText:
			out.WriteString(bText)
		case bText == baseText || aText == bText:
			out.WriteString(aText)
		default:
			n++
			fmt.Fprintf(&out, "%s Conflict %d of %d\n", markerConflictStart, n, total)
			fmt.Fprintf(&out, "%s Contents of side #1\n", markerSide)
			writeLines(&out, hunk.A)
			fmt.Fprintf(&out, "%s Contents of base\n", markerBase)
			writeLines(&out, hunk.Base)
			fmt.Fprintf(&out, "%s Contents of side #2\n", markerSide)
			writeLines(&out, hunk.B)
			fmt.Fprintf(&out, "%s Conflict %d of %d ends\n", markerConflictEnd, n, total)
		}
	}
	return []byte(out.String()), nil
}

// materializeGenericConflict renders N-way or kind-mismatched conflicts as
// one marker block listing every term in full.
func materializeGenericConflict(st *store.Store, mv model.Merge) ([]byte, error) {
	var out strings.Builder
	fmt.Fprintf(&out, "%s Conflict 1 of 1\n", markerConflictStart)
	side := 0
	for i, term := range mv.Terms() {
		if i%2 == 0 {
			side++
			fmt.Fprintf(&out, "%s Contents of side #%d\n", markerSide, side)
		} else {
			fmt.Fprintf(&out, "%s Contents of base\n", markerBase)
		}
		text, err := termContent(st, term)
		if err != nil {
			return nil, err
		}
		out.Write(text)
		if len(text) > 0 && text[len(text)-1] != '\n' {
			out.WriteString("\n")
		}
	}
	fmt.Fprintf(&out, "%s Conflict 1 of 1 ends\n", markerConflictEnd)
	return []byte(out.String()), nil
}

func termContent(st *store.Store, term *model.TreeValue) ([]byte, error) {
	if term == nil {
		return []byte("(no content)\n"), nil
	}
	switch term.Kind {
	case model.KindFile:
		return st.ReadBlob(term.Blob)
	case model.KindSymlink:
		return []byte(fmt.Sprintf("symlink -> %s\n", term.Target)), nil
	default:
		return []byte(fmt.Sprintf("submodule %s\n", term.Blob.Short())), nil
	}
}

func conflicted(hunk Hunk) bool {
	if hunk.Stable {
		return false
	}
	baseText := strings.Join(hunk.Base, "")
	aText := strings.Join(hunk.A, "")
	bText := strings.Join(hunk.B, "")
	return aText != baseText && bText != baseText && aText != bText
}

func writeLines(out *strings.Builder, lines []string) {
	for _, line := range lines {
		out.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			out.WriteString("\n")
		}
	}
}

package merge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Hunk is one aligned region of a three-way line diff. Stable hunks match
// the base in both sides; unstable hunks carry the three candidate texts.
type Hunk struct {
	Stable bool
	Base   []string
	A      []string
	B      []string
}

// Diff3 aligns two sides against a base at line granularity.
func Diff3(base, a, b []byte) []Hunk {
	baseLines := splitLines(base)
	aLines := splitLines(a)
	bLines := splitLines(b)
	matchA := matchMap(baseLines, aLines)
	matchB := matchMap(baseLines, bLines)

	var hunks []Hunk
	lastBase, lastA, lastB := 0, 0, 0
	emitUnstable := func(baseHi, aHi, bHi int) {
		if baseHi > lastBase || aHi > lastA || bHi > lastB {
			hunks = append(hunks, Hunk{
				Base: baseLines[lastBase:baseHi],
				A:    aLines[lastA:aHi],
				B:    bLines[lastB:bHi],
			})
		}
	}

	i := 0
	for i < len(baseLines) {
		if matchA[i] == -1 || matchB[i] == -1 {
			i++
			continue
		}
		// Extend the run of lines stable in both sides.
		j := i + 1
		for j < len(baseLines) && matchA[j] == matchA[j-1]+1 && matchB[j] == matchB[j-1]+1 {
			j++
		}
		emitUnstable(i, matchA[i], matchB[i])
		hunks = append(hunks, Hunk{
			Stable: true,
			Base:   baseLines[i:j],
			A:      aLines[matchA[i] : matchA[i]+j-i],
			B:      bLines[matchB[i] : matchB[i]+j-i],
		})
		lastBase, lastA, lastB = j, matchA[i]+j-i, matchB[i]+j-i
		i = j
	}
	emitUnstable(len(baseLines), len(aLines), len(bLines))
	return hunks
}

// MergeLines performs a three-way line merge. The boolean result is false
// if any hunk was changed differently on both sides; in that case the
// returned content is nil and the caller keeps the structural conflict.
func MergeLines(base, a, b []byte) ([]byte, bool) {
	var out strings.Builder
	for _, hunk := range Diff3(base, a, b) {
		if hunk.Stable {
			for _, line := range hunk.Base {
				out.WriteString(line)
			}
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
			return nil, false
		}
	}
	return []byte(out.String()), true
}

// matchMap maps each base line index to its matched index in side, -1 if
// the line has no match.
func matchMap(base, side []string) []int {
	m := make([]int, len(base))
	for i := range m {
		m[i] = -1
	}
	matcher := difflib.NewMatcher(base, side)
	for _, block := range matcher.GetMatchingBlocks() {
		for k := 0; k < block.Size; k++ {
			m[block.A+k] = block.B + k
		}
	}
	return m
}

// splitLines splits on newlines keeping terminators, so joining the lines
// reproduces the input exactly.
func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

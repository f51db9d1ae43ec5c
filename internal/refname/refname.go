// Package refname validates and sanitizes bookmark names. Bookmarks are
// exported as git branches, so names must stay within what git refs allow.
package refname

import (
	"regexp"
	"strings"
)

const (
	// MaxBookmarkNameByteLength is the maximum length for a bookmark name.
	// Git refs have a max length of 256 bytes, minus 11 for "refs/heads/".
	MaxBookmarkNameByteLength = 245
)

var (
	// replaceRegex matches characters that are not valid in bookmark names.
	// Valid characters: letters, numbers, -, _, /, .
	replaceRegex = regexp.MustCompile(`[^-_/.a-zA-Z0-9]+`)

	// trailingRegex matches trailing slashes and dots that should be removed
	trailingRegex = regexp.MustCompile(`[/.]*$`)

	hyphenRegex = regexp.MustCompile(`-+`)
)

// IsValid reports whether name can be used as a bookmark name as-is.
func IsValid(name string) bool {
	return name != "" && name == Sanitize(name)
}

// Sanitize turns an arbitrary string into a usable bookmark name by replacing
// invalid characters with hyphens.
func Sanitize(name string) string {
	// Remove trailing slashes and dots
	name = trailingRegex.ReplaceAllString(name, "")

	// Replace invalid characters with hyphens
	name = replaceRegex.ReplaceAllString(name, "-")

	// Remove multiple consecutive hyphens
	name = hyphenRegex.ReplaceAllString(name, "-")

	// Trim leading/trailing hyphens
	name = strings.Trim(name, "-")

	// Limit length
	if len(name) > MaxBookmarkNameByteLength {
		name = name[:MaxBookmarkNameByteLength]
		// Trim trailing hyphen if we cut at a hyphen
		name = strings.TrimSuffix(name, "-")
	}

	return name
}

// FromDescription derives a bookmark name from a commit description's
// subject line.
func FromDescription(description string) string {
	if description == "" {
		return ""
	}

	// Take first line of the description (subject line)
	lines := strings.Split(description, "\n")
	subject := strings.TrimSpace(lines[0])

	// Remove common prefixes like "feat:", "fix:", etc. if present
	subject = regexp.MustCompile(`^(feat|fix|chore|docs|style|refactor|perf|test|build|ci):\s*`).ReplaceAllString(subject, "")

	return Sanitize(subject)
}

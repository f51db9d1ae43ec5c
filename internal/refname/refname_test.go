package refname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple name passes through",
			input:    "feature",
			expected: "feature",
		},
		{
			name:     "spaces replaced with hyphens",
			input:    "my feature bookmark",
			expected: "my-feature-bookmark",
		},
		{
			name:     "special characters replaced",
			input:    "feature!@#$%^&*()",
			expected: "feature",
		},
		{
			name:     "underscores preserved",
			input:    "my_feature",
			expected: "my_feature",
		},
		{
			name:     "slashes preserved",
			input:    "feature/my-bookmark",
			expected: "feature/my-bookmark",
		},
		{
			name:     "dots preserved",
			input:    "release.v1.0",
			expected: "release.v1.0",
		},
		{
			name:     "trailing dots removed",
			input:    "feature...",
			expected: "feature",
		},
		{
			name:     "trailing slashes removed",
			input:    "feature///",
			expected: "feature",
		},
		{
			name:     "multiple consecutive hyphens collapsed",
			input:    "my---feature",
			expected: "my-feature",
		},
		{
			name:     "leading and trailing hyphens trimmed",
			input:    "---feature---",
			expected: "feature",
		},
		{
			name:     "mixed case preserved",
			input:    "MyFeature",
			expected: "MyFeature",
		},
		{
			name:     "only special chars returns empty",
			input:    "!@#$%",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitizeMaxLength(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", MaxBookmarkNameByteLength+50)
	result := Sanitize(longName)
	require.Equal(t, MaxBookmarkNameByteLength, len(result))

	// A name cut exactly at a hyphen loses the hyphen too.
	cutAtHyphen := strings.Repeat("a", MaxBookmarkNameByteLength-1) + "-" + strings.Repeat("b", 50)
	result = Sanitize(cutAtHyphen)
	require.LessOrEqual(t, len(result), MaxBookmarkNameByteLength)
	require.False(t, strings.HasSuffix(result, "-"))
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	require.True(t, IsValid("feature"))
	require.True(t, IsValid("feature/v1.0_final"))
	require.False(t, IsValid(""))
	require.False(t, IsValid("has spaces"))
	require.False(t, IsValid("trailing."))
	require.False(t, IsValid("-leading"))
}

func TestFromDescription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{
			name:        "simple description",
			description: "Add new feature",
			expected:    "Add-new-feature",
		},
		{
			name:        "conventional commit prefix stripped",
			description: "feat: add new feature",
			expected:    "add-new-feature",
		},
		{
			name:        "fix prefix stripped",
			description: "fix: resolve bug",
			expected:    "resolve-bug",
		},
		{
			name:        "multiline uses subject only",
			description: "First line\n\nBody text here",
			expected:    "First-line",
		},
		{
			name:        "special characters",
			description: "Add feature! (for users)",
			expected:    "Add-feature-for-users",
		},
		{
			name:        "empty returns empty",
			description: "",
			expected:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, FromDescription(tt.description))
		})
	}
}

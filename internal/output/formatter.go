package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"strata.dev/strata/internal/model"
)

// colorEnabled reports whether styled output makes sense: stdout is a
// terminal that supports color, and NO_COLOR is unset.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

func styled(text string, style lipgloss.Style) string {
	if !colorEnabled() {
		return text
	}
	return style.Render(text)
}

// GetGraphColor returns a styled string with the color from STRATA_COLORS
func GetGraphColor(text string, index int) string {
	if len(STRATA_COLORS) == 0 || !colorEnabled() {
		return text
	}
	color := STRATA_COLORS[index%len(STRATA_COLORS)]
	hexColor := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", color[0], color[1], color[2]))
	return lipgloss.NewStyle().Foreground(hexColor).Render(text)
}

// ColorID colors a commit or operation id
func ColorID(text string) string {
	return styled(text, lipgloss.NewStyle().Foreground(lipgloss.Color("5")))
}

// ColorBookmark colors a bookmark name
func ColorBookmark(text string) string {
	return styled(text, lipgloss.NewStyle().Foreground(lipgloss.Color("6")))
}

// ColorConflict colors the conflict indicator
func ColorConflict(text string) string {
	return styled(text, lipgloss.NewStyle().Foreground(lipgloss.Color("1")))
}

// ColorDim makes text dim/gray
func ColorDim(text string) string {
	return styled(text, lipgloss.NewStyle().Foreground(lipgloss.Color("8")))
}

// FormatCommitLine renders the one-line summary of a commit used by log
// output: marker, short id, bookmarks, description, conflict flag.
func FormatCommitLine(commit *model.Commit, bookmarks []string, isWorkingCopy, hasConflict bool) string {
	marker := "◯"
	if isWorkingCopy {
		marker = "◉"
	}

	var parts []string
	parts = append(parts, marker, ColorID(commit.ID.Short()))
	if len(bookmarks) > 0 {
		parts = append(parts, ColorBookmark(strings.Join(bookmarks, " ")))
	}
	description := commit.DescriptionFirstLine()
	if description == "" {
		description = ColorDim("(no description set)")
	}
	parts = append(parts, description)
	if hasConflict {
		parts = append(parts, ColorConflict("(conflict)"))
	}
	return strings.Join(parts, " ")
}

// FormatOperationLine renders the one-line summary of an operation.
func FormatOperationLine(op *model.Operation, isHead bool) string {
	marker := "◯"
	if isHead {
		marker = "◉"
	}
	return fmt.Sprintf("%s %s %s %s",
		marker,
		ColorID(op.ID.Short()),
		ColorDim(op.EndTime.Format("2006-01-02 15:04:05")),
		op.Description)
}

// Package cli wires the strata commands. Each command loads the repository,
// runs one transaction against it, and prints a short summary of what moved.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "strata",
		Short:   "Strata is a version control tool where every edit of history is safe, atomic, and undoable",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Long: `Strata is a version control tool built on an immutable commit graph.
Rewriting a commit never loses data: descendants follow automatically,
bookmarks stay attached, and every repository-level change is recorded
as an operation that can be inspected and undone.`,
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newOperationCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newCommitCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newAbandonCmd())
	rootCmd.AddCommand(newDuplicateCmd())
	rootCmd.AddCommand(newRevertCmd())
	rootCmd.AddCommand(newUnsignCmd())
	rootCmd.AddCommand(newAbsorbCmd())
	rootCmd.AddCommand(newFileCmd())
	rootCmd.AddCommand(newBookmarkCmd())
	rootCmd.AddCommand(newGitExportCmd())
	rootCmd.AddCommand(newUndoCmd())

	return rootCmd
}

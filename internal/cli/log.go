package cli

import (
	"github.com/spf13/cobra"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/output"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/runtime"
)

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	var revisions string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the commit graph, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			targets, err := resolveTargets(ctx, []string{revisions})
			if err != nil {
				return err
			}

			bookmarksByCommit := make(map[model.CommitID][]string)
			for _, name := range ctx.Repo.View().BookmarkNames() {
				target := ctx.Repo.View().LocalBookmark(name)
				if target.IsPresent() {
					bookmarksByCommit[target.Commit] = append(bookmarksByCommit[target.Commit], name)
				}
			}
			wc := ctx.Repo.View().WcCommit(repo.DefaultWorkspace)

			for _, id := range targets {
				commit, err := ctx.Repo.GetCommit(id)
				if err != nil {
					return err
				}
				tree, err := ctx.Repo.Store().GetTree(commit.Tree)
				if err != nil {
					return err
				}
				line := output.FormatCommitLine(commit, bookmarksByCommit[id], id == wc, tree.HasConflict())
				ctx.Splog.Info("%s", line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&revisions, "revisions", "r", "all()", "Which revisions to show")

	return cmd
}

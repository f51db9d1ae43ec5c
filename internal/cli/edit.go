package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/revset"
	"strata.dev/strata/internal/runtime"
)

// newEditCmd creates the edit command
func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <revset>",
		Short: "Make the given commit the working-copy commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			target, err := revset.ResolveOne(ctx.Repo, args[0])
			if err != nil {
				return err
			}
			if err := ctx.Repo.CheckRewritable([]model.CommitID{target}); err != nil {
				return err
			}
			if ctx.Repo.View().WcCommit(repo.DefaultWorkspace) == target {
				ctx.Splog.Info("Already editing %s", target.Short())
				return nil
			}

			tx := ctx.Repo.StartTransaction()
			tx.MutableRepo().SetWcCommit(repo.DefaultWorkspace, target)
			commit, err := ctx.Repo.GetCommit(target)
			if err != nil {
				return err
			}
			ctx.Splog.Info("Now editing %s", summarize(commit))
			return finishTransaction(ctx, tx, fmt.Sprintf("edit commit %s", target.Short()))
		},
	}

	return cmd
}

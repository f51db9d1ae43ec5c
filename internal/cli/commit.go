package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/runtime"
)

// newCommitCmd creates the commit command
func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Finalize the working-copy commit and start a new one on top",
		Long: `Give the working-copy commit a description and open a fresh empty
working-copy commit on top of it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			wcID := ctx.Repo.View().WcCommit(repo.DefaultWorkspace)
			if err := ctx.Repo.CheckRewritable([]model.CommitID{wcID}); err != nil {
				return err
			}
			wc, err := ctx.Repo.GetCommit(wcID)
			if err != nil {
				return err
			}

			if message == "" {
				prompt := &survey.Editor{
					Message:       "Description for the new commit",
					Default:       wc.Description,
					AppendDefault: true,
					HideDefault:   true,
				}
				if err := survey.AskOne(prompt, &message); err != nil {
					return err
				}
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()

			finalized, err := mut.RewriteCommit(wc).SetDescription(message).Write()
			if err != nil {
				return err
			}
			next, err := mut.NewCommit([]model.CommitID{finalized.ID}, finalized.Tree).Write()
			if err != nil {
				return err
			}
			mut.SetWcCommit(repo.DefaultWorkspace, next.ID)

			ctx.Splog.Info("Committed %s", summarize(finalized))
			return finishTransaction(ctx, tx, fmt.Sprintf("commit %s", finalized.ID.Short()))
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Description for the finalized commit")

	return cmd
}

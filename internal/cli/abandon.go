package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/runtime"
)

// newAbandonCmd creates the abandon command
func newAbandonCmd() *cobra.Command {
	var (
		retainBookmarks    bool
		restoreDescendants bool
	)

	cmd := &cobra.Command{
		Use:   "abandon [revsets...]",
		Short: "Abandon commits, moving their children onto their parents",
		Long: `Abandon commits, moving their children onto the abandoned commits'
parents. The abandoned commits stay in the object store and remain
reachable through the operation log.

Bookmarks pointing at an abandoned commit are deleted unless
--retain-bookmarks moves them to the parent. If the working-copy commit
is abandoned, a new empty one is created in its place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			targets, err := resolveTargets(ctx, args)
			if err != nil {
				return err
			}
			if err := ctx.Repo.CheckRewritable(targets); err != nil {
				return err
			}

			targetSet := make(map[model.CommitID]bool, len(targets))
			for _, id := range targets {
				targetSet[id] = true
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()
			err = rewrite.TransformDescendants(mut, targets, func(rw *rewrite.Rewriter) error {
				if targetSet[rw.OldCommit().ID] {
					rw.Abandon(retainBookmarks)
					return nil
				}
				if !rw.ParentsChanged() {
					return nil
				}
				var builder interface {
					Write() (*model.Commit, error)
				}
				if restoreDescendants {
					builder = rw.Reparent()
				} else {
					rebased, err := rw.Rebase()
					if err != nil {
						return err
					}
					builder = rebased
				}
				_, err := builder.Write()
				return err
			})
			if err != nil {
				return err
			}

			for _, id := range targets {
				commit, err := ctx.Repo.GetCommit(id)
				if err != nil {
					return err
				}
				ctx.Splog.Info("Abandoned %s", summarize(commit))
			}

			description := fmt.Sprintf("abandon %d commits", len(targets))
			if len(targets) == 1 {
				description = fmt.Sprintf("abandon commit %s", targets[0].Short())
			}
			return finishTransaction(ctx, tx, description)
		},
	}

	cmd.Flags().BoolVar(&retainBookmarks, "retain-bookmarks", false, "Move bookmarks on abandoned commits to their parents instead of deleting them")
	cmd.Flags().BoolVar(&restoreDescendants, "restore-descendants", false, "Keep descendant trees exactly as they are instead of rebasing their changes")

	return cmd
}

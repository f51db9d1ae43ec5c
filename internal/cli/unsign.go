package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/runtime"
)

// newUnsignCmd creates the unsign command
func newUnsignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsign [revsets...]",
		Short: "Drop cryptographic signatures from commits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			targets, err := resolveTargets(ctx, args)
			if err != nil {
				return err
			}

			// Only signed commits need rewriting.
			var signed []model.CommitID
			for _, id := range targets {
				commit, err := ctx.Repo.GetCommit(id)
				if err != nil {
					return err
				}
				if commit.IsSigned() {
					signed = append(signed, id)
				}
			}
			if len(signed) == 0 {
				ctx.Splog.Info("No signed commits in the given revisions.")
				return nil
			}
			if err := ctx.Repo.CheckRewritable(signed); err != nil {
				return err
			}

			targetSet := make(map[model.CommitID]bool, len(signed))
			for _, id := range signed {
				targetSet[id] = true
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()
			err = rewrite.TransformDescendants(mut, signed, func(rw *rewrite.Rewriter) error {
				if targetSet[rw.OldCommit().ID] {
					_, err := rw.Reparent().SetSignBehavior(repo.SignBehaviorDrop).Write()
					return err
				}
				if !rw.ParentsChanged() {
					return nil
				}
				builder, err := rw.Rebase()
				if err != nil {
					return err
				}
				_, err = builder.Write()
				return err
			})
			if err != nil {
				return err
			}

			ctx.Splog.Info("Unsigned %d commits", len(signed))
			return finishTransaction(ctx, tx, fmt.Sprintf("unsign %d commits", len(signed)))
		},
	}

	return cmd
}

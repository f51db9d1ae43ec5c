package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/runtime"
)

// newUndoCmd creates the undo command
func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Restore the repository to the state before the last operation",
		Long: `Restore the repository to the state before the last operation.

Undo is itself recorded as an operation, so it can in turn be undone.
No objects are deleted; commits unreferenced by the restored view simply
become invisible.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			head := ctx.Repo.Operation()
			if head.IsRoot() {
				return errors.NewUserError("nothing to undo: already at the initial operation")
			}
			parent, err := ctx.Repo.OpStore().ReadOperation(head.Parents[0])
			if err != nil {
				return err
			}
			restored, err := ctx.Repo.OpStore().ReadView(parent.View)
			if err != nil {
				return err
			}

			tx := ctx.Repo.StartTransaction()
			tx.MutableRepo().RestoreView(restored)
			if _, err := tx.Commit(fmt.Sprintf("undo operation %s", head.ID.Short())); err != nil {
				return err
			}

			ctx.Splog.Info("Undid operation %s: %s", head.ID.Short(), head.Description)
			return nil
		},
	}

	return cmd
}

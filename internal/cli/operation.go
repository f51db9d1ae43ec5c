package cli

import (
	"github.com/spf13/cobra"

	"strata.dev/strata/internal/output"
	"strata.dev/strata/internal/runtime"
)

// newOperationCmd creates the operation command group
func newOperationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operation",
		Aliases: []string{"op"},
		Short:   "Inspect the operation log",
	}
	cmd.AddCommand(newOperationLogCmd())
	return cmd
}

// newOperationLogCmd creates the operation log command
func newOperationLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the operations that produced the current repository state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			op := ctx.Repo.Operation()
			head := true
			for n := 0; op != nil && (limit == 0 || n < limit); n++ {
				ctx.Splog.Info("%s", output.FormatOperationLine(op, head))
				head = false
				if op.IsRoot() {
					break
				}
				op, err = ctx.Repo.OpStore().ReadOperation(op.Parents[0])
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many operations (0 for all)")

	return cmd
}

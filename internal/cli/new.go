package cli

import (
	"github.com/spf13/cobra"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/runtime"
)

// newNewCmd creates the new command
func newNewCmd() *cobra.Command {
	var (
		message      string
		insertAfter  bool
		insertBefore bool
		noEdit       bool
	)

	cmd := &cobra.Command{
		Use:   "new [revsets...]",
		Short: "Create a new empty commit on top of the given revisions",
		Long: `Create a new empty commit on top of the given revisions (the working
copy by default) and check it out.

With --insert-after, existing children of the parents move onto the new
commit. With --insert-before, the given revisions themselves move onto
it and the new commit takes their former parents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			if insertAfter && insertBefore {
				return errors.NewUserError("--insert-after and --insert-before are mutually exclusive")
			}

			targets, err := resolveTargets(ctx, args)
			if err != nil {
				return err
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()

			parents := targets
			if insertBefore {
				// The new commit takes the union of the targets' parents.
				if err := mut.CheckRewritable(targets); err != nil {
					return err
				}
				seen := make(map[model.CommitID]bool)
				parents = nil
				for _, id := range targets {
					commit, err := mut.GetCommit(id)
					if err != nil {
						return err
					}
					for _, parent := range commit.Parents {
						if !seen[parent] {
							seen[parent] = true
							parents = append(parents, parent)
						}
					}
				}
				parents = mut.Index().Heads(parents)
			}

			tree, err := mut.MergedParentTree(parents)
			if err != nil {
				return err
			}
			treeID, err := mut.Store().WriteTree(tree)
			if err != nil {
				return err
			}
			created, err := mut.NewCommit(parents, treeID).SetDescription(message).Write()
			if err != nil {
				return err
			}

			skip := map[model.CommitID]bool{created.ID: true}
			switch {
			case insertAfter:
				// Existing children of the parents adopt the new commit in
				// their place.
				if err := reparentChildren(mut, targets, []model.CommitID{created.ID}, skip); err != nil {
					return err
				}
			case insertBefore:
				// The targets themselves move onto the new commit.
				if err := moveOnto(mut, targets, []model.CommitID{created.ID}, skip); err != nil {
					return err
				}
			}

			if !noEdit {
				mut.SetWcCommit(repo.DefaultWorkspace, created.ID)
			}
			ctx.Splog.Info("Created new commit %s", summarize(created))
			return finishTransaction(ctx, tx, "new empty commit")
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Description for the new commit")
	cmd.Flags().BoolVarP(&insertAfter, "insert-after", "A", false, "Insert the new commit between the targets and their children")
	cmd.Flags().BoolVarP(&insertBefore, "insert-before", "B", false, "Insert the new commit between the targets and their parents")
	cmd.Flags().BoolVar(&noEdit, "no-edit", false, "Do not check out the new commit")

	return cmd
}

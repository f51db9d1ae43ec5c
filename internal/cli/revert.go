package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/merge"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/runtime"
)

// newRevertCmd creates the revert command
func newRevertCmd() *cobra.Command {
	var (
		revisions    string
		destination  string
		insertAfter  string
		insertBefore string
	)

	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Create new commits that apply the inverse of changes",
		Long: `Create new commits that apply the inverse of the given revisions'
changes on top of the destination (the working copy by default). The
reverted commits themselves are not modified. Several revisions are
reverted newest first, as a chain of one commit each. If a change does
not apply cleanly, the new commit carries conflicts instead of failing.

With --insert-after the chain is spliced in between the given revisions
and their children; with --insert-before, between the given revisions
and their parents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			set := 0
			for _, name := range []string{"destination", "insert-after", "insert-before"} {
				if cmd.Flags().Changed(name) {
					set++
				}
			}
			if set > 1 {
				return errors.NewUserError("--destination, --insert-after and --insert-before are mutually exclusive")
			}

			targets, err := resolveTargets(ctx, []string{revisions})
			if err != nil {
				return err
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()

			// Work out what the chain of reverts sits on top of.
			var chainParents, after, before []model.CommitID
			switch {
			case insertAfter != "":
				after, err = resolveTargets(ctx, []string{insertAfter})
				if err != nil {
					return err
				}
				chainParents = mut.Index().Heads(after)
			case insertBefore != "":
				before, err = resolveTargets(ctx, []string{insertBefore})
				if err != nil {
					return err
				}
				if err := mut.CheckRewritable(before); err != nil {
					return err
				}
				chainParents, err = unionParents(mut, before)
				if err != nil {
					return err
				}
			default:
				chainParents, err = resolveTargets(ctx, []string{destination})
				if err != nil {
					return err
				}
				chainParents = mut.Index().Heads(chainParents)
			}

			st := mut.Store()
			currentTree, err := mut.MergedParentTree(chainParents)
			if err != nil {
				return err
			}

			// Revset results come newest first, so each revert lands on a
			// tree that no longer contains the younger changes.
			parents := chainParents
			chainIDs := make(map[model.CommitID]bool, len(targets))
			var tip *model.Commit
			for _, target := range targets {
				reverted, err := mut.GetCommit(target)
				if err != nil {
					return err
				}

				// Applying the inverse diff means merging with the reverted
				// commit's tree as base and its parents' tree as the side.
				baseTree, err := st.GetTree(reverted.Tree)
				if err != nil {
					return err
				}
				parentTree, err := mut.MergedParentTree(reverted.Parents)
				if err != nil {
					return err
				}
				newTree, err := merge.Trees(st, baseTree, currentTree, parentTree)
				if err != nil {
					return err
				}
				treeID, err := st.WriteTree(newTree)
				if err != nil {
					return err
				}

				description := fmt.Sprintf("Revert %q", reverted.DescriptionFirstLine())
				created, err := mut.NewCommit(parents, treeID).
					SetDescription(description).
					Write()
				if err != nil {
					return err
				}
				if newTree.HasConflict() {
					ctx.Splog.Warn("Reverting %s does not apply cleanly; %s has conflicts",
						target.Short(), created.ID.Short())
				}
				ctx.Splog.Info("Created %s", summarize(created))

				chainIDs[created.ID] = true
				currentTree = newTree
				parents = []model.CommitID{created.ID}
				tip = created
			}

			switch {
			case insertAfter != "":
				if err := reparentChildren(mut, after, []model.CommitID{tip.ID}, chainIDs); err != nil {
					return err
				}
			case insertBefore != "":
				if err := moveOnto(mut, before, []model.CommitID{tip.ID}, chainIDs); err != nil {
					return err
				}
			}

			return finishTransaction(ctx, tx, fmt.Sprintf("revert %d commits", len(targets)))
		},
	}

	cmd.Flags().StringVarP(&revisions, "revisions", "r", "@", "The revisions to revert")
	cmd.Flags().StringVarP(&destination, "destination", "d", "@", "The revision to apply the inverse changes on top of")
	cmd.Flags().StringVarP(&insertAfter, "insert-after", "A", "", "Insert the reverts between these revisions and their children")
	cmd.Flags().StringVarP(&insertBefore, "insert-before", "B", "", "Insert the reverts between these revisions and their parents")

	return cmd
}

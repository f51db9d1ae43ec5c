package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/runtime"
)

// newDuplicateCmd creates the duplicate command
func newDuplicateCmd() *cobra.Command {
	var (
		destination  string
		insertAfter  string
		insertBefore string
	)

	cmd := &cobra.Command{
		Use:   "duplicate [revsets...]",
		Short: "Create copies of commits without touching the originals",
		Long: `Create copies of commits without touching the originals. Parent edges
between duplicated commits are preserved; with --destination the copies
are rebased onto the given revisions instead of keeping their parents.

With --insert-after the copies are spliced in between the given
revisions and their children; with --insert-before, between the given
revisions and their parents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			set := 0
			for _, flag := range []string{destination, insertAfter, insertBefore} {
				if flag != "" {
					set++
				}
			}
			if set > 1 {
				return errors.NewUserError("--destination, --insert-after and --insert-before are mutually exclusive")
			}

			targets, err := resolveTargets(ctx, args)
			if err != nil {
				return err
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()

			var copied map[model.CommitID]model.CommitID
			switch {
			case destination != "":
				destParents, err := resolveTargets(ctx, []string{destination})
				if err != nil {
					return err
				}
				warnDescendantDestinations(ctx, mut, targets, destParents)
				copied, err = rewrite.DuplicateOnto(mut, targets, destParents)
				if err != nil {
					return err
				}
			case insertAfter != "":
				after, err := resolveTargets(ctx, []string{insertAfter})
				if err != nil {
					return err
				}
				warnDescendantDestinations(ctx, mut, targets, after)
				copied, err = rewrite.DuplicateOnto(mut, targets, after)
				if err != nil {
					return err
				}
				heads, skip := copyHeads(mut, targets, copied)
				if err := reparentChildren(mut, after, heads, skip); err != nil {
					return err
				}
			case insertBefore != "":
				before, err := resolveTargets(ctx, []string{insertBefore})
				if err != nil {
					return err
				}
				if err := mut.CheckRewritable(before); err != nil {
					return err
				}
				warnDescendantDestinations(ctx, mut, targets, before)
				chainParents, err := unionParents(mut, before)
				if err != nil {
					return err
				}
				copied, err = rewrite.DuplicateOnto(mut, targets, chainParents)
				if err != nil {
					return err
				}
				heads, skip := copyHeads(mut, targets, copied)
				if err := moveOnto(mut, before, heads, skip); err != nil {
					return err
				}
			default:
				copied, err = rewrite.DuplicateCommits(mut, targets)
				if err != nil {
					return err
				}
			}

			for _, original := range targets {
				ctx.Splog.Info("Duplicated %s as %s", original.Short(), copied[original].Short())
			}
			return finishTransaction(ctx, tx, fmt.Sprintf("duplicate %d commits", len(targets)))
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Rebase the copies onto these revisions")
	cmd.Flags().StringVarP(&insertAfter, "insert-after", "A", "", "Insert the copies between these revisions and their children")
	cmd.Flags().StringVarP(&insertBefore, "insert-before", "B", "", "Insert the copies between these revisions and their parents")

	return cmd
}

// copyHeads returns the heads of the duplicated subgraph, for splicing its
// former children onto, plus the full copy set to keep out of later rebases.
func copyHeads(mut *repo.MutableRepo, targets []model.CommitID, copied map[model.CommitID]model.CommitID) ([]model.CommitID, map[model.CommitID]bool) {
	ids := make([]model.CommitID, 0, len(copied))
	skip := make(map[model.CommitID]bool, len(copied))
	for _, original := range targets {
		if copyID, ok := copied[original]; ok {
			ids = append(ids, copyID)
			skip[copyID] = true
		}
	}
	return mut.Index().Heads(ids), skip
}

// unionParents collects the deduplicated parents of the given commits.
func unionParents(mut *repo.MutableRepo, ids []model.CommitID) ([]model.CommitID, error) {
	seen := make(map[model.CommitID]bool)
	var parents []model.CommitID
	for _, id := range ids {
		commit, err := mut.GetCommit(id)
		if err != nil {
			return nil, err
		}
		for _, parent := range commit.Parents {
			if !seen[parent] {
				seen[parent] = true
				parents = append(parents, parent)
			}
		}
	}
	return mut.Index().Heads(parents), nil
}

// warnDescendantDestinations flags destinations downstream of a duplicated
// commit, since the copy will then contain its own original's change twice.
func warnDescendantDestinations(ctx *runtime.Context, mut *repo.MutableRepo, targets, destinations []model.CommitID) {
	for _, dest := range destinations {
		for _, target := range targets {
			if dest != target && mut.Index().IsAncestor(target, dest) {
				ctx.Splog.Warn("Destination %s is a descendant of duplicated commit %s", dest.Short(), target.Short())
			}
		}
	}
}

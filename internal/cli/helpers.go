package cli

import (
	goerrors "errors"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/revset"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/runtime"
)

// resolveTargets resolves each expression and returns the union, newest
// first. An empty list of expressions resolves the working copy.
func resolveTargets(ctx *runtime.Context, expressions []string) ([]model.CommitID, error) {
	if len(expressions) == 0 {
		expressions = []string{"@"}
	}
	seen := make(map[model.CommitID]bool)
	var targets []model.CommitID
	for _, expression := range expressions {
		ids, err := revset.Resolve(ctx.Repo, expression)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				targets = append(targets, id)
			}
		}
	}
	return targets, nil
}

// finishTransaction rebases anything still pending, commits the transaction,
// and prints the rewrite summary. A concurrent head move surfaces as a
// retryable message rather than a stack trace.
func finishTransaction(ctx *runtime.Context, tx *repo.Transaction, description string) error {
	mut := tx.MutableRepo()
	rebased, err := rewrite.RebaseDescendants(mut)
	if err != nil {
		return err
	}

	deleted := tx.DeletedBookmarks()
	if _, err := tx.Commit(description); err != nil {
		if goerrors.Is(err, errors.ErrConcurrentModification) {
			ctx.Splog.Error("another process changed the repository: %v", err)
			return err
		}
		return err
	}

	if rebased > 0 {
		ctx.Splog.Info("Rebased %d descendant commits", rebased)
	}
	if abandoned := mut.NumAbandoned(); abandoned > 0 {
		ctx.Splog.Info("Abandoned %d commits", abandoned)
	}
	for _, name := range deleted {
		ctx.Splog.Warn("Deleted bookmark %s", name)
	}
	return nil
}

// reparentChildren rebases every child of the given commits onto newParents
// instead, leaving the commits themselves and anything in skip untouched.
// Used to splice freshly written commits in between existing ones.
func reparentChildren(mut *repo.MutableRepo, parents, newParents []model.CommitID, skip map[model.CommitID]bool) error {
	parentSet := make(map[model.CommitID]bool, len(parents))
	for _, id := range parents {
		parentSet[id] = true
	}
	return rewrite.TransformDescendants(mut, parents, func(rw *rewrite.Rewriter) error {
		old := rw.OldCommit()
		if parentSet[old.ID] || skip[old.ID] {
			return nil
		}
		replaced := false
		var resolved []model.CommitID
		for _, parent := range old.Parents {
			if parentSet[parent] {
				resolved = append(resolved, newParents...)
				replaced = true
			} else {
				resolved = append(resolved, mut.ResolveParents([]model.CommitID{parent})...)
			}
		}
		if replaced {
			rw.SetNewParents(resolved)
		} else if !rw.ParentsChanged() {
			return nil
		}
		builder, err := rw.Rebase()
		if err != nil {
			return err
		}
		_, err = builder.Write()
		return err
	})
}

// moveOnto rebases the given commits onto newParents, bringing their
// descendants along.
func moveOnto(mut *repo.MutableRepo, targets, newParents []model.CommitID, skip map[model.CommitID]bool) error {
	targetSet := make(map[model.CommitID]bool, len(targets))
	for _, id := range targets {
		targetSet[id] = true
	}
	return rewrite.TransformDescendants(mut, targets, func(rw *rewrite.Rewriter) error {
		if skip[rw.OldCommit().ID] {
			return nil
		}
		if targetSet[rw.OldCommit().ID] {
			rw.SetNewParents(newParents)
		} else if !rw.ParentsChanged() {
			return nil
		}
		builder, err := rw.Rebase()
		if err != nil {
			return err
		}
		_, err = builder.Write()
		return err
	})
}

// summarize renders "<short id> <first description line>" for messages.
func summarize(commit *model.Commit) string {
	description := commit.DescriptionFirstLine()
	if description == "" {
		description = "(no description set)"
	}
	return commit.ID.Short() + " " + description
}

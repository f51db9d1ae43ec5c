package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
	"strata.dev/strata/internal/revset"
	"strata.dev/strata/internal/runtime"
)

// newFileCmd creates the file command group
func newFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Inspect and modify files tracked in a revision",
	}
	cmd.AddCommand(newFileListCmd())
	cmd.AddCommand(newFileChmodCmd())
	return cmd
}

// newFileListCmd creates the file list command
func newFileListCmd() *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files tracked in a revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			target, err := revset.ResolveOne(ctx.Repo, revision)
			if err != nil {
				return err
			}
			commit, err := ctx.Repo.GetCommit(target)
			if err != nil {
				return err
			}
			tree, err := ctx.Repo.Store().GetTree(commit.Tree)
			if err != nil {
				return err
			}
			for _, path := range tree.Paths() {
				ctx.Splog.Info("%s", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&revision, "revision", "r", "@", "The revision to list files in")

	return cmd
}

// newFileChmodCmd creates the file chmod command
func newFileChmodCmd() *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "chmod <mode> <paths...>",
		Short: "Set or clear the executable bit on files in a revision",
		Long: `Set ('x') or clear ('n') the executable bit on the given files in a
revision. The commit is rewritten and its descendants are rebased.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			executable, err := parseChmodMode(args[0])
			if err != nil {
				return err
			}
			target, err := revset.ResolveOne(ctx.Repo, revision)
			if err != nil {
				return err
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()
			if err := mut.CheckRewritable([]model.CommitID{target}); err != nil {
				return err
			}
			commit, err := mut.GetCommit(target)
			if err != nil {
				return err
			}
			changed, err := setExecutable(mut, commit, args[1:], executable)
			if err != nil {
				return err
			}
			if changed == 0 {
				ctx.Splog.Info("Nothing changed.")
				return nil
			}

			return finishTransaction(ctx, tx,
				fmt.Sprintf("chmod %s on %d files in %s", args[0], changed, target.Short()))
		},
	}

	cmd.Flags().StringVarP(&revision, "revision", "r", "@", "The revision to change files in")

	return cmd
}

// parseChmodMode maps the chmod argument to the executable bit.
func parseChmodMode(mode string) (bool, error) {
	switch mode {
	case "x":
		return true, nil
	case "n":
		return false, nil
	default:
		return false, errors.NewUserErrorWithHint(
			fmt.Sprintf("unknown mode %q", mode),
			"use 'x' to set the executable bit or 'n' to clear it")
	}
}

// setExecutable rewrites commit so the given files carry (or lose) the
// executable bit. Returns the number of entries that changed; the commit is
// left alone when all entries already match.
func setExecutable(mut *repo.MutableRepo, commit *model.Commit, paths []string, executable bool) (int, error) {
	tree, err := mut.Store().GetTree(commit.Tree)
	if err != nil {
		return 0, err
	}
	tree = tree.Clone()

	changed := 0
	for _, path := range paths {
		value, ok := tree.Value(path).AsResolved()
		if !ok {
			return 0, errors.NewUserError("%s has conflicts; resolve them first", path)
		}
		if value == nil {
			return 0, errors.NewUserError("no such file in the revision: %s", path)
		}
		if value.Kind != model.KindFile {
			return 0, errors.NewUserError("%s is not a regular file", path)
		}
		if value.Executable == executable {
			continue
		}
		updated := *value
		updated.Executable = executable
		tree.Set(path, model.Resolved(&updated))
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	treeID, err := mut.Store().WriteTree(tree)
	if err != nil {
		return 0, err
	}
	if _, err := mut.RewriteCommit(commit).SetTree(treeID).Write(); err != nil {
		return 0, err
	}
	return changed, nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/refname"
	"strata.dev/strata/internal/revset"
	"strata.dev/strata/internal/runtime"
)

// checkBookmarkName rejects names that could not become git branches.
func checkBookmarkName(name string) error {
	if refname.IsValid(name) {
		return nil
	}
	hint := ""
	if sanitized := refname.Sanitize(name); sanitized != "" {
		hint = fmt.Sprintf("try %q", sanitized)
	}
	return errors.NewUserErrorWithHint(
		fmt.Sprintf("invalid bookmark name %q", name), hint)
}

// newBookmarkCmd creates the bookmark command group
func newBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"b"},
		Short:   "Manage bookmarks, the named pointers into the commit graph",
	}
	cmd.AddCommand(newBookmarkCreateCmd())
	cmd.AddCommand(newBookmarkSetCmd())
	cmd.AddCommand(newBookmarkDeleteCmd())
	cmd.AddCommand(newBookmarkListCmd())
	return cmd
}

// newBookmarkCreateCmd creates the bookmark create command
func newBookmarkCreateCmd() *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new bookmark",
		Long: `Create a new bookmark. With no name, one is derived from the
target commit's description.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			target, err := revset.ResolveOne(ctx.Repo, revision)
			if err != nil {
				return err
			}

			var name string
			if len(args) > 0 {
				name = args[0]
				if err := checkBookmarkName(name); err != nil {
					return err
				}
			} else {
				commit, err := ctx.Repo.GetCommit(target)
				if err != nil {
					return err
				}
				name = refname.FromDescription(commit.Description)
				if name == "" {
					return errors.NewUserErrorWithHint(
						"cannot derive a bookmark name from an empty description",
						"pass a name explicitly")
				}
			}
			if ctx.Repo.View().LocalBookmark(name).IsPresent() {
				return errors.NewBookmarkExistsError(name,
					fmt.Sprintf("use 'strata bookmark set %s' to move it", name))
			}

			tx := ctx.Repo.StartTransaction()
			tx.MutableRepo().SetLocalBookmark(name, model.NormalRef(target))
			ctx.Splog.Info("Created bookmark %s at %s", name, target.Short())
			return finishTransaction(ctx, tx, fmt.Sprintf("create bookmark %s", name))
		},
	}

	cmd.Flags().StringVarP(&revision, "revision", "r", "@", "The commit the bookmark points at")

	return cmd
}

// newBookmarkSetCmd creates the bookmark set command
func newBookmarkSetCmd() *cobra.Command {
	var (
		revision       string
		allowBackwards bool
	)

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Point a bookmark at a commit",
		Long: `Point a bookmark at a commit, creating it if needed.

Moving a bookmark sideways or backwards (to a commit that does not
descend from the old target) requires --allow-backwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			name := args[0]
			if err := checkBookmarkName(name); err != nil {
				return err
			}
			target, err := revset.ResolveOne(ctx.Repo, revision)
			if err != nil {
				return err
			}

			old := ctx.Repo.View().LocalBookmark(name)
			if old.IsPresent() && old.Commit == target {
				ctx.Splog.Info("Bookmark %s already points to %s", name, target.Short())
				return nil
			}
			if !allowBackwards && !ctx.Repo.IsFastForward(old, target) {
				return errors.NewUserErrorWithHint(
					fmt.Sprintf("moving bookmark %s to %s is not a fast-forward", name, target.Short()),
					"use --allow-backwards to move it anyway")
			}

			tx := ctx.Repo.StartTransaction()
			tx.MutableRepo().SetLocalBookmark(name, model.NormalRef(target))
			if old.IsAbsent() && !ctx.Repo.View().HasTrackedRemotes(name) {
				ctx.Splog.Info("Created bookmark %s at %s", name, target.Short())
			} else {
				// A deleted bookmark that still exists on a remote is
				// resurrected, which reads as a move.
				ctx.Splog.Info("Moved bookmark %s to %s", name, target.Short())
			}
			return finishTransaction(ctx, tx, fmt.Sprintf("set bookmark %s to %s", name, target.Short()))
		},
	}

	cmd.Flags().StringVarP(&revision, "revision", "r", "@", "The commit the bookmark points at")
	cmd.Flags().BoolVar(&allowBackwards, "allow-backwards", false, "Allow a non-fast-forward move")

	return cmd
}

// newBookmarkDeleteCmd creates the bookmark delete command
func newBookmarkDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			name := args[0]
			if ctx.Repo.View().LocalBookmark(name).IsAbsent() {
				return errors.NewUserError("bookmark %q doesn't exist", name)
			}

			tx := ctx.Repo.StartTransaction()
			tx.MutableRepo().SetLocalBookmark(name, model.AbsentRef())
			return finishTransaction(ctx, tx, fmt.Sprintf("delete bookmark %s", name))
		},
	}

	return cmd
}

// newBookmarkListCmd creates the bookmark list command
func newBookmarkListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks and their targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			names := ctx.Repo.View().BookmarkNames()
			if len(names) == 0 {
				ctx.Splog.Info("No bookmarks.")
				return nil
			}
			for _, name := range names {
				target := ctx.Repo.View().LocalBookmark(name)
				commit, err := ctx.Repo.GetCommit(target.Commit)
				if err != nil {
					return err
				}
				ctx.Splog.Info("%s: %s", name, summarize(commit))
			}
			return nil
		},
	}

	return cmd
}

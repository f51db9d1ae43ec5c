package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/rewrite"
	"strata.dev/strata/internal/runtime"
)

// newDescribeCmd creates the describe command
func newDescribeCmd() *cobra.Command {
	var (
		message      string
		resetAuthor  bool
		noEditPrompt bool
	)

	cmd := &cobra.Command{
		Use:     "describe [revsets...]",
		Aliases: []string{"desc"},
		Short:   "Update the description of a commit",
		Long: `Update the description of a commit.

Starts an editor unless a message is given with -m. Commits whose
description does not change are left untouched; descendants of changed
commits are rebased automatically.`,
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

			descriptions := make(map[model.CommitID]string, len(targets))
			for _, id := range targets {
				commit, err := ctx.Repo.GetCommit(id)
				if err != nil {
					return err
				}
				if message != "" {
					descriptions[id] = message
					continue
				}
				if noEditPrompt {
					descriptions[id] = commit.Description
					continue
				}
				edited := commit.Description
				prompt := &survey.Editor{
					Message:       fmt.Sprintf("Description for %s", commit.ID.Short()),
					Default:       commit.Description,
					AppendDefault: true,
					HideDefault:   true,
				}
				if err := survey.AskOne(prompt, &edited); err != nil {
					return err
				}
				descriptions[id] = edited
			}

			// Drop the targets whose description is unchanged so they are
			// not rewritten at all.
			targetSet := make(map[model.CommitID]bool)
			changed := 0
			for _, id := range targets {
				commit, err := ctx.Repo.GetCommit(id)
				if err != nil {
					return err
				}
				if commit.Description != descriptions[id] || resetAuthor {
					targetSet[id] = true
					changed++
				}
			}
			if changed == 0 {
				ctx.Splog.Info("Nothing changed.")
				return nil
			}

			tx := ctx.Repo.StartTransaction()
			mut := tx.MutableRepo()
			var roots []model.CommitID
			for _, id := range targets {
				if targetSet[id] {
					roots = append(roots, id)
				}
			}
			err = rewrite.TransformDescendants(mut, roots, func(rw *rewrite.Rewriter) error {
				builder, err := rw.Rebase()
				if err != nil {
					return err
				}
				id := rw.OldCommit().ID
				if targetSet[id] {
					builder.SetDescription(descriptions[id])
					if resetAuthor {
						builder.SetAuthor(ctx.Repo.NewUserSignature())
					}
				} else if !rw.ParentsChanged() {
					return nil
				}
				_, err = builder.Write()
				return err
			})
			if err != nil {
				return err
			}

			description := fmt.Sprintf("describe %d commits", changed)
			if changed == 1 {
				description = fmt.Sprintf("describe commit %s", roots[0].Short())
			}
			return finishTransaction(ctx, tx, description)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "The new description")
	cmd.Flags().BoolVar(&resetAuthor, "reset-author", false, "Reset the author to the configured user")
	cmd.Flags().BoolVar(&noEditPrompt, "no-edit", false, "Do not open an editor; keep the current description")

	return cmd
}

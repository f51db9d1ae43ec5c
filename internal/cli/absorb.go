package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/absorb"
	"strata.dev/strata/internal/revset"
	"strata.dev/strata/internal/runtime"
)

// newAbsorbCmd creates the absorb command
func newAbsorbCmd() *cobra.Command {
	var (
		from string
		into string
	)

	cmd := &cobra.Command{
		Use:   "absorb [paths...]",
		Short: "Move changes from a commit into the ancestors that last touched them",
		Long: `Move changes from a commit (the working copy by default) into the
mutable ancestors that last touched the changed lines.

Each changed hunk is attributed to the nearest ancestor owning every
line it touches. Hunks whose lines belong to several ancestors, to an
immutable commit, or to added and deleted files stay where they are.
With --into only the given revisions may receive hunks; with path
arguments only the named files and directories are considered. If the
source commit ends up empty and has no description, it is abandoned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			source, err := revset.ResolveOne(ctx.Repo, from)
			if err != nil {
				return err
			}

			opts := absorb.Options{Paths: args}
			if into != "" {
				opts.Destinations, err = revset.Resolve(ctx.Repo, into)
				if err != nil {
					return err
				}
			}

			tx := ctx.Repo.StartTransaction()
			stats, err := absorb.Absorb(tx.MutableRepo(), source, opts)
			if err != nil {
				return err
			}

			for dest, paths := range stats.Absorbed {
				commit, err := ctx.Repo.GetCommit(dest)
				if err != nil {
					return err
				}
				ctx.Splog.Info("Absorbed changes to %s into %s", strings.Join(paths, ", "), summarize(commit))
			}
			if stats.AbandonedSource {
				ctx.Splog.Info("Abandoned the now-empty source commit")
			}
			return finishTransaction(ctx, tx, "absorb changes into ancestors")
		},
	}

	cmd.Flags().StringVar(&from, "from", "@", "The commit whose changes to absorb")
	cmd.Flags().StringVar(&into, "into", "", "Only absorb into these revisions")

	return cmd
}

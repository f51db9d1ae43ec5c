package cli

import (
	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"strata.dev/strata/internal/gitexport"
	"strata.dev/strata/internal/runtime"
)

// newGitExportCmd creates the git-export command
func newGitExportCmd() *cobra.Command {
	var gitRepoPath string

	cmd := &cobra.Command{
		Use:   "git-export",
		Short: "Mirror local bookmarks into a git repository",
		Long: `Mirror local bookmarks into a git repository as branches under
refs/heads/. Commits whose trees still carry conflicts cannot be
represented in git and are skipped along with the bookmarks pointing
at them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext()
			if err != nil {
				return err
			}

			gitRepo, err := git.PlainOpen(gitRepoPath)
			if err == git.ErrRepositoryNotExists {
				gitRepo, err = git.PlainInit(gitRepoPath, true)
			}
			if err != nil {
				return err
			}

			stats, err := gitexport.Export(ctx.Repo, gitRepo)
			if err != nil {
				return err
			}

			for name, hash := range stats.Exported {
				ctx.Splog.Info("Exported %s -> %s", name, hash[:12])
			}
			for _, name := range stats.Skipped {
				ctx.Splog.Warn("Skipped bookmark %s: its history contains conflicts", name)
			}
			if len(stats.Exported) == 0 && len(stats.Skipped) == 0 {
				ctx.Splog.Info("No bookmarks to export.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gitRepoPath, "git-repo", ".git-export", "Path of the git repository to export into")

	return cmd
}

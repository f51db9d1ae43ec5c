package cli

import (
	"os"

	"github.com/spf13/cobra"

	"strata.dev/strata/internal/config"
	"strata.dev/strata/internal/output"
	"strata.dev/strata/internal/repo"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var (
		userName  string
		userEmail string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new strata repository in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			splog := output.NewSplog()
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			if _, err := repo.Init(cwd); err != nil {
				return err
			}
			if userName != "" || userEmail != "" {
				if err := config.SetUser(cwd, userName, userEmail); err != nil {
					return err
				}
			}

			splog.Info("Initialized repository in %s", cwd)
			if userName == "" {
				splog.Tip("Set your identity with --name/--email or the STRATA_USER and STRATA_EMAIL environment variables")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userName, "name", "", "User name recorded on new commits")
	cmd.Flags().StringVar(&userEmail, "email", "", "User email recorded on new commits")

	return cmd
}

package main

import (
	"os"

	"strata.dev/strata/internal/cli"
	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/output"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := cli.NewRootCmd(version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		if hint := errors.Hint(err); hint != "" {
			output.NewSplog().Tip("%s", hint)
		}
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags "-X main.buildVersion=... -X main.buildCommit=... -X main.buildDate=..."
// at release build time; a plain `go build` (or go run) keeps the
// "dev"/"none"/"unknown" placeholders, the same pattern the teacher's
// own cobra-based CLI (vovakirdan-surge/cmd/surge) uses for its
// version.VersionString().
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("luasem-ls %s (commit %s, built %s)", buildVersion, buildCommit, buildDate)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the luasem-ls version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
		return nil
	},
}

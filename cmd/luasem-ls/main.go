package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "luasem-ls",
	Short:         "Semantic analysis engine and editor-protocol server for EmmyLua-style Lua",
	Long:          "luasem-ls analyzes Lua sources annotated with EmmyLua-style doc comments and serves hover, goto-definition, and completion over a JSON-RPC editor protocol.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level (debug|info|notice|warning|error|critical|alert|emergency)")
}

// Package main provides the papermaster server and utility CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "papermaster",
	Short: "Citation-graph analysis service",
	Long: `papermaster resolves noisy paper citations into a scored citation
graph. It runs as an HTTP job server (serve) and ships one-shot helpers
for normalizing arXiv identifiers and querying the paper lookup service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version
}

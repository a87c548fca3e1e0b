package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snooow1029/paper-master/internal/arxiv"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text>",
	Short: "Extract the canonical arXiv identifier from text",
	Long: `Extract and normalize an arXiv identifier from a URL, a prefixed
reference, or free text.

Examples:
  papermaster normalize https://arxiv.org/pdf/2305.10403v2.pdf
  papermaster normalize "arXiv:2001.04406[cs.CL]"
  papermaster normalize "see 1706.03762 for details"`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	id, ok := arxiv.Normalize(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: %q contains no arXiv identifier\n", args[0])
		os.Exit(ExitError)
	}

	return printJSON(map[string]string{
		"id":  id,
		"era": arxiv.Classify(id).String(),
		"url": arxiv.AbsURL(id),
	})
}

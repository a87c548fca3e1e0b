package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/snooow1029/paper-master/internal/arxiv"
	"github.com/snooow1029/paper-master/internal/s2"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <arxiv-id-or-url>",
	Short: "Query the paper lookup service for one paper",
	Long: `Query the lookup service for a paper by arXiv identifier or URL.

Examples:
  papermaster lookup 2305.10403
  papermaster lookup https://arxiv.org/pdf/2305.10403v2.pdf
  papermaster lookup arXiv:1706.03762`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	id, ok := arxiv.Normalize(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: %q contains no arXiv identifier\n", args[0])
		os.Exit(ExitError)
	}

	opts := []s2.ClientOption{}
	if key := os.Getenv("S2_API_KEY"); key != "" {
		opts = append(opts, s2.WithAPIKey(key))
	}
	client := s2.NewClient(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	paper, err := client.GetPaperByArXiv(ctx, id)
	if err != nil {
		if s2.IsNotFound(err) {
			fmt.Fprintf(os.Stderr, "Error: no paper found for %s\n", id)
			os.Exit(ExitNotFound)
		}
		return err
	}

	return printJSON(paper)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

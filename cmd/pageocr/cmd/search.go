package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search transcripts",
	Long: `Search the transcripts in the search index (search.enabled must be set).

Examples:
  # Basic search
  pageocr search "invoice total"

  # Limit results
  pageocr search "contract" --limit 5

  # JSON output for scripting
  pageocr search "contract" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.search == nil {
		return fmt.Errorf("search is disabled; set search.enabled=true")
	}

	hits, err := a.search.Search(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(out, "─── Result %d ───\n", i+1)
		fmt.Fprintf(out, "Name:    %s\n", h.DisplayName)
		fmt.Fprintf(out, "Digest:  %s\n", h.Digest)
		fmt.Fprintf(out, "Snippet: %s\n\n", h.Snippet)
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mfenderov/pageocr/internal/command"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transcribed entries",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.dispatcher.Dispatch(ctx, command.ListEntries{})
	if err != nil {
		return err
	}
	entries := resp.(*command.EntriesResponse).Entries

	out := cmd.OutOrStdout()
	if listFormat == "json" {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DIGEST\tNAME\tPAGES\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Digest.Short(), e.DisplayName, e.PageCount, e.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfenderov/pageocr/internal/command"
	"github.com/mfenderov/pageocr/pkg/models"
)

var (
	ocrURL    string
	ocrFormat string
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Transcribe the document or image behind a URL",
	Long: `Resolve the resource of a page URL, transcribe it and store the result.
A file that was already transcribed is reported instead of sent again.

Examples:
  pageocr ocr --url https://example.com/papers/paper.pdf
  pageocr ocr --url https://docs.google.com/document/d/<id>/edit --format json`,
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringVar(&ocrURL, "url", "", "Page or resource URL")
	ocrCmd.Flags().StringVar(&ocrFormat, "format", "text", "Output format: text or json")
	ocrCmd.MarkFlagRequired("url")
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.dispatcher.Dispatch(ctx, command.RunOcr{Page: models.Page{Context: "cli", URL: ocrURL}})
	if err != nil {
		return err
	}
	run := resp.(*command.RunOcrResponse)

	out := cmd.OutOrStdout()
	if ocrFormat == "json" {
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	switch run.Status {
	case command.StatusNoResource:
		fmt.Fprintln(out, "No PDF or image found for this URL.")
	default:
		fmt.Fprintf(out, "Status:  %s\n", run.Status)
		fmt.Fprintf(out, "Name:    %s\n", run.Entry.DisplayName)
		fmt.Fprintf(out, "Digest:  %s\n", run.Digest)
		fmt.Fprintf(out, "Pages:   %d, images: %d\n", run.Entry.PageCount, run.Entry.ImageCount)
		fmt.Fprintf(out, "Folder:  %s\n", run.Entry.StorageFolder)
	}
	return nil
}

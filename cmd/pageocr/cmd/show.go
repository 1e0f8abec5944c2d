package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/command"
	"github.com/mfenderov/pageocr/pkg/models"
)

var showCmd = &cobra.Command{
	Use:   "show <digest>",
	Short: "Print the transcript of an entry",
	Long: `Print the Markdown transcript of an entry. A unique digest prefix
(as printed by "list") is enough.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	digest, err := expandDigest(ctx, a, args[0])
	if err != nil {
		return err
	}
	resp, err := a.dispatcher.Dispatch(ctx, command.GetTranscript{Digest: digest})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), resp.(*command.TranscriptResponse).Text)
	return nil
}

// expandDigest resolves a digest prefix to the single entry it names.
func expandDigest(ctx context.Context, a *app, prefix string) (models.Digest, error) {
	entries, err := a.index.List(ctx)
	if err != nil {
		return "", err
	}
	var match models.Digest
	for _, e := range entries {
		if !strings.HasPrefix(string(e.Digest), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("digest prefix %q is ambiguous", prefix)
		}
		match = e.Digest
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", apperr.ErrEntryNotFound, prefix)
	}
	return match, nil
}

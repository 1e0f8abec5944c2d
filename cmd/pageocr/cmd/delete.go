package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfenderov/pageocr/internal/command"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <digest>",
	Short: "Forget an entry",
	Long:  `Remove an entry and its URL links from the index. Stored files are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
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
	if _, err := a.dispatcher.Dispatch(ctx, command.DeleteEntry{Digest: digest}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", digest.Short())
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfenderov/pageocr/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server on stdio. Every command is exposed as a tool
(init, run_ocr, list_entries, get_transcript, ...).

Example:
  pageocr mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := GetConfig()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.detector.Run(ctx)

	server := mcp.NewServer(mcp.Config{Name: cfg.MCP.Name, Version: cfg.MCP.Version}, a.dispatcher)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}

// Package mcp exposes the command surface as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mfenderov/pageocr/internal/command"
	"github.com/mfenderov/pageocr/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Dispatcher executes commands. *command.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (any, error)
}

// Server wraps the MCP server with one tool per command.
type Server struct {
	mcpServer  *server.MCPServer
	dispatcher Dispatcher
	tools      []string
}

// NewServer creates a new MCP server.
func NewServer(config Config, d Dispatcher) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer:  mcpServer,
		dispatcher: d,
	}

	s.add(mcp.NewTool(command.TypeInit,
		append([]mcp.ToolOption{mcp.WithDescription("Describe the OCR-able resource of a page, whether it was already transcribed, and the list of entries.")}, pageParams()...)...,
	), s.initHandler)

	s.add(mcp.NewTool(command.TypeRunOcr,
		append([]mcp.ToolOption{mcp.WithDescription("Transcribe the PDF or image of a page with OCR. Returns the entry; an identical file is never transcribed twice.")}, pageParams()...)...,
	), s.runOcrHandler)

	s.add(mcp.NewTool(command.TypeOpenArtifact,
		mcp.WithDescription("Get the storage folder and transcript location of an entry"),
		digestParam(),
	), s.digestHandler(func(d models.Digest) command.Command { return command.OpenArtifact{Digest: d} }))

	s.add(mcp.NewTool(command.TypeListEntries,
		mcp.WithDescription("List transcribed entries, most recently used first"),
	), s.listHandler)

	s.add(mcp.NewTool(command.TypeDeleteEntry,
		mcp.WithDescription("Forget an entry. Stored files are kept."),
		digestParam(),
	), s.digestHandler(func(d models.Digest) command.Command { return command.DeleteEntry{Digest: d} }))

	s.add(mcp.NewTool(command.TypeGetTranscript,
		mcp.WithDescription("Get the Markdown transcript of an entry"),
		digestParam(),
	), s.digestHandler(func(d models.Digest) command.Command { return command.GetTranscript{Digest: d} }))

	s.add(mcp.NewTool(command.TypeSetImagePreference,
		mcp.WithDescription("Choose whether extracted images are requested and stored"),
		mcp.WithBoolean("include",
			mcp.Required(),
			mcp.Description("Store images extracted from documents"),
		),
	), s.imagePreferenceHandler)

	s.add(mcp.NewTool(command.TypeClearAutoPrompt,
		mcp.WithDescription("Dismiss the already-transcribed prompt of a page context, or all prompts"),
		mcp.WithString("page_context",
			mcp.Description("Page context to clear (default: all)"),
		),
	), s.clearPromptHandler)

	s.add(mcp.NewTool(command.TypeObserveResponse,
		mcp.WithDescription("Report a PDF response observed while a viewer page loaded"),
		mcp.WithString("page_context", mcp.Required(), mcp.Description("Page context the response belongs to")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Response URL")),
		mcp.WithString("content_type", mcp.Description("Content-Type header")),
		mcp.WithString("content_disposition", mcp.Description("Content-Disposition header")),
	), s.observeHandler)

	s.add(mcp.NewTool(command.TypeNavigationComplete,
		append([]mcp.ToolOption{mcp.WithDescription("Report that a page finished loading so it can be checked against existing entries")}, pageParams()...)...,
	), s.navigationHandler)

	s.add(mcp.NewTool(command.TypeSearchTranscripts,
		mcp.WithDescription("Search transcripts by query. Requires the search index."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	), s.searchHandler)

	return s
}

func (s *Server) add(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// Tools returns the registered tool names.
func (s *Server) Tools() []string {
	return s.tools
}

func pageParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("url", mcp.Required(), mcp.Description("URL of the page being viewed")),
		mcp.WithString("context", mcp.Description("Identifier of the page session (e.g. tab id)")),
		mcp.WithString("title", mcp.Description("Page title")),
		mcp.WithString("html", mcp.Description("HTML snapshot of the page")),
	}
}

func digestParam() mcp.ToolOption {
	return mcp.WithString("digest", mcp.Required(), mcp.Description("Entry digest (SHA-256 of the source file)"))
}

func pageFrom(req mcp.CallToolRequest) (models.Page, error) {
	u, err := req.RequireString("url")
	if err != nil {
		return models.Page{}, err
	}
	return models.Page{
		URL:     u,
		Context: req.GetString("context", "mcp"),
		Title:   req.GetString("title", ""),
		HTML:    req.GetString("html", ""),
	}, nil
}

// dispatch runs cmd and renders its response as JSON text.
func (s *Server) dispatch(ctx context.Context, cmd command.Command) (*mcp.CallToolResult, error) {
	resp, err := s.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", cmd.Type(), err)), nil
	}

	result, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) initHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := pageFrom(req)
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	return s.dispatch(ctx, command.Init{Page: p})
}

func (s *Server) runOcrHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := pageFrom(req)
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	return s.dispatch(ctx, command.RunOcr{Page: p})
}

func (s *Server) navigationHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := pageFrom(req)
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	return s.dispatch(ctx, command.NavigationComplete{Page: p})
}

func (s *Server) digestHandler(build func(models.Digest) command.Command) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		digest, err := req.RequireString("digest")
		if err != nil {
			return mcp.NewToolResultError("digest parameter is required"), nil
		}
		return s.dispatch(ctx, build(models.Digest(digest)))
	}
}

func (s *Server) listHandler(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, command.ListEntries{})
}

func (s *Server) imagePreferenceHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	include, err := req.RequireBool("include")
	if err != nil {
		return mcp.NewToolResultError("include parameter is required"), nil
	}
	return s.dispatch(ctx, command.SetImagePreference{Include: include})
}

func (s *Server) clearPromptHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, command.ClearAutoPrompt{PageContext: req.GetString("page_context", "")})
}

func (s *Server) observeHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageContext, err := req.RequireString("page_context")
	if err != nil {
		return mcp.NewToolResultError("page_context parameter is required"), nil
	}
	u, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	return s.dispatch(ctx, command.ObserveResponse{
		PageContext:        pageContext,
		URL:                u,
		ContentType:        req.GetString("content_type", ""),
		ContentDisposition: req.GetString("content_disposition", ""),
	})
}

func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	return s.dispatch(ctx, command.SearchTranscripts{Query: query, Limit: req.GetInt("limit", 10)})
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

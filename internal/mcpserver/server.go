// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notebook history tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nbsave/internal/apperr"
	"github.com/starford/nbsave/internal/models"
)

const defaultHistoryLimit = 20

// Store is the read side of the persistence service.
type Store interface {
	Notebooks(ctx context.Context) ([]models.NotebookMetadata, error)
	History(ctx context.Context, path string, limit int) ([]models.Revision, error)
	ReadNotebook(ctx context.Context, path, rev string) ([]byte, error)
}

// Server wraps the MCP server with notebook tools.
type Server struct {
	mcp   *server.MCPServer
	store Store
}

// New creates a new MCP server with all notebook tools registered.
func New(store Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"nbsave",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List every notebook with a saved revision, with its latest commit."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("notebook_history",
		mcp.WithDescription("List save and rename revisions of a notebook, newest first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Notebook path (e.g. work/analysis.ipynb)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of revisions (default 20)")),
	), s.notebookHistory)

	s.mcp.AddTool(mcp.NewTool("read_notebook",
		mcp.WithDescription("Read a notebook as .ipynb JSON, at its latest revision or at a given commit. "+
			"See the nbsave://layout resource for how revisions are stored."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Notebook path (e.g. work/analysis.ipynb)")),
		mcp.WithString("rev", mcp.Description("Optional commit hash; empty reads the latest revision")),
	), s.readNotebook)

	s.mcp.AddResource(
		mcp.NewResource("nbsave://layout", "Repository Layout",
			mcp.WithResourceDescription("How saved notebooks are stored in the revision repository."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.store.Notebooks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no notebooks saved yet"), nil
	}
	out, _ := json.MarshalIndent(list, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) notebookHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := defaultHistoryLimit
	if n := req.GetFloat("limit", 0); n > 0 {
		limit = int(n)
	}

	revs, err := s.store.History(ctx, path, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(revs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no history for %s", path)), nil
	}
	out, _ := json.MarshalIndent(revs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rev := req.GetString("rev", "")

	data, err := s.store.ReadNotebook(ctx, path, rev)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "nbsave://layout",
			MIMEType: "text/markdown",
			Text:     RepositoryLayout,
		},
	}, nil
}

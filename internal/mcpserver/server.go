// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the document site to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/furyload/internal/apperr"
	"github.com/starford/furyload/internal/docservice"
	"github.com/starford/furyload/internal/listing"
	"github.com/starford/furyload/internal/models"
)

// Server wraps the MCP server with document tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"furyload",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents grouped as on the landing page."),
		mcp.WithString("category", mcp.Description("Optional category to filter by (e.g. md, vi)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document as Markdown source or rendered HTML."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path (e.g. posts/md/guide.md)")),
		mcp.WithString("format", mcp.Enum("markdown", "html"), mcp.Description("Output format, markdown by default")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Return the table of contents of a document with its anchors."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through listed documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("resolve_image",
		mcp.WithDescription("Resolve an image reference the way the viewer does."),
		mcp.WithString("src", mcp.Required(), mcp.Description("Image source as written in the document")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Path of the document containing the reference")),
	), s.resolveImage)

	s.mcp.AddTool(mcp.NewTool("get_conventions",
		mcp.WithDescription("Returns the document layout, image path and outline conventions."),
	), s.getConventions)

	s.mcp.AddResource(
		mcp.NewResource(ConventionsURI, "Document Conventions",
			mcp.WithResourceDescription("How documents are laid out and how their references resolve."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrInvalidPath):
		return mcp.NewToolResultError(fmt.Sprintf("invalid path: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")

	groups, err := s.svc.Listing(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if category == "" {
		return jsonResult(groups)
	}

	var docs []models.DocumentMeta
	for _, d := range listing.Flatten(groups) {
		if d.Category == category {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no documents in category %q", category)), nil
	}
	return jsonResult(docs)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if req.GetString("format", "markdown") == "html" {
		doc, err := s.svc.Document(ctx, path)
		if err != nil {
			return errorResult(path, err), nil
		}
		return mcp.NewToolResultText(doc.HTML), nil
	}

	data, err := s.svc.Raw(ctx, path)
	if err != nil {
		return errorResult(path, err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Outline(ctx, path)
	if err != nil {
		return errorResult(path, err), nil
	}
	return jsonResult(out)
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)

	results, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) resolveImage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("src")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.svc.ResolveImage(src, doc)), nil
}

func (s *Server) getConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(Conventions), nil
}

func (s *Server) readConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConventionsURI,
			MIMEType: "text/markdown",
			Text:     Conventions,
		},
	}, nil
}

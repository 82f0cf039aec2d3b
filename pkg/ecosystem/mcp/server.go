// Package mcp exposes manifest validation to AI agents over the Model
// Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with the modlint tools registered.
func NewServer(version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"modlint",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("modlint/validate",
			mcp.WithDescription("Validate a module manifest YAML file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the manifest file")),
			mcp.WithString("format", mcp.Description("Report format: 'json' (default) or 'text'")),
		),
		h.HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("modlint/schema",
			mcp.WithDescription("Export the manifest JSON Schema"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'structural' or 'types'")),
		),
		h.HandleSchema,
	)

	s.AddTool(
		mcp.NewTool("modlint/rules",
			mcp.WithDescription("List the declared validation rules as markdown"),
		),
		h.HandleRules,
	)

	return s
}

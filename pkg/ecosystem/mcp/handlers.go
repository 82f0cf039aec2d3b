package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/modlint/pkg/report"
	"github.com/ormasoftchile/modlint/pkg/rules"
	"github.com/ormasoftchile/modlint/pkg/schema"
	"github.com/ormasoftchile/modlint/pkg/validate"
)

// Handlers implements the modlint tools against one schema.
type Handlers struct {
	source    *schema.Source
	registry  *rules.Registry
	validator *validate.Validator
}

// NewHandlers returns handlers sharing v, which must have been built from
// src and reg.
func NewHandlers(src *schema.Source, reg *rules.Registry, v *validate.Validator) *Handlers {
	return &Handlers{source: src, registry: reg, validator: v}
}

// HandleValidate implements the modlint/validate MCP tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	format, _ := args["format"].(string)
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "text" {
		return errorResult(fmt.Sprintf("unknown format %q, use 'json' or 'text'", format)), nil
	}

	res, err := h.validator.ValidateFile(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	var out bytes.Buffer
	if format == "text" {
		err = report.New(&out, report.Options{ContextLines: 3}).Write(res)
	} else {
		err = report.JSON(&out, res)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("render report: %s", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(out.String())},
		IsError: !res.Valid(),
	}, nil
}

// HandleSchema implements the modlint/schema MCP tool.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "structural":
		data, err = h.source.StructuralJSON()
	case "types":
		data, err = schema.GenerateManifestJSONSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q, use 'structural' or 'types'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleRules implements the modlint/rules MCP tool.
func (h *Handlers) HandleRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(report.Catalog(h.registry)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}

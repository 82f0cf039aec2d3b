// Package main provides the modlint-mcp binary, an MCP server for AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/modlint/pkg/config"
	lmcp "github.com/ormasoftchile/modlint/pkg/ecosystem/mcp"
	"github.com/ormasoftchile/modlint/pkg/logging"
	"github.com/ormasoftchile/modlint/pkg/rules"
	"github.com/ormasoftchile/modlint/pkg/schema"
	"github.com/ormasoftchile/modlint/pkg/validate"
)

var version = "dev"

func main() {
	h, err := handlers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s := lmcp.NewServer(version, h)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handlers builds the tool handlers from the config file and environment.
// Stdout carries the protocol, so logs go to stderr.
func handlers() (*lmcp.Handlers, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	src, err := schema.Bundled()
	if cfg.SchemaPath != "" {
		src, err = schema.LoadSource(cfg.SchemaPath)
	}
	if err != nil {
		return nil, err
	}
	reg, err := rules.Load(src.Data(), rules.Options{Strict: cfg.Strict, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", src.Name(), err)
	}
	v, err := validate.New(src, reg, validate.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return lmcp.NewHandlers(src, reg, v), nil
}

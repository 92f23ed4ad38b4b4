// Package mcp exposes triage as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/socwatch/internal/policy"
	"github.com/ppiankov/socwatch/internal/scoring"
	"github.com/ppiankov/socwatch/internal/service"
)

// Config holds MCP server configuration.
type Config struct {
	Service *service.Service
	Scoring *scoring.Config
	Rules   policy.Source
	Version string
	Logger  *slog.Logger
}

// Server wraps the MCP SDK server with the triage tools.
type Server struct {
	mcpServer *mcpsdk.Server
	svc       *service.Service
	scoring   *scoring.Config
	rules     policy.Source
	logger    *slog.Logger
}

// New creates an MCP server and registers its tools.
func New(cfg Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := cfg.Service
	if svc == nil {
		svc = service.New(service.Config{Logger: logger})
	}

	s := &Server{
		svc:     svc,
		scoring: cfg.Scoring,
		rules:   cfg.Rules,
		logger:  logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: "socwatch", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all socwatch tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "socwatch_triage",
		Description: "Triage a security incident: deterministic score, MITRE ATT&CK hypotheses, policy-gated response actions and a short summary. Set ai=true for the advisory narrative.",
	}, s.handleTriage)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "socwatch_score",
		Description: "Score enrichment signals and infer MITRE ATT&CK techniques without an incident record.",
	}, s.handleScore)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "socwatch_policy_check",
		Description: "Show which response actions the configured policy allows or denies for a risk score and entity set (dry-run).",
	}, s.handlePolicyCheck)
}

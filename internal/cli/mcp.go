package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	socmcp "github.com/ppiankov/socwatch/internal/mcp"
)

var mcpPolicy string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to policy rules (.yaml, .yml or .json)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs socwatch as an MCP (Model Context Protocol) server over stdio.\nExposes tools: socwatch_triage, socwatch_score, socwatch_policy_check.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	if mcpPolicy != "" {
		cfg.PolicyFile = mcpPolicy
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer rt.Close(context.Background())

	if rt.watched != nil {
		go func() {
			if err := rt.watched.Run(ctx); err != nil {
				logger.Warn("policy hot-reload disabled", "error", err)
			}
		}()
	}

	scoringCfg, err := cfg.Scoring()
	if err != nil {
		return err
	}
	srv := socmcp.New(socmcp.Config{
		Service: rt.svc,
		Scoring: scoringCfg,
		Rules:   rt.rules,
		Version: version,
		Logger:  logger,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		logger.Info("shutting down MCP server")
		cancel()
	}()

	logger.Info("socwatch MCP server running on stdio", "policy", cfg.PolicyFile)
	return srv.Run(ctx)
}

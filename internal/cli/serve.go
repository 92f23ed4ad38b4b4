package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/socwatch/internal/api"
	"github.com/ppiankov/socwatch/internal/server"
)

var (
	serveListen   string
	serveGRPC     string
	servePolicy   string
	serveAuditLog string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&serveGRPC, "grpc", "", "gRPC listen address (disabled when empty)")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "Path to policy rules (.yaml, .yml or .json)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage HTTP server (and optional gRPC server)",
	Long: "Serves GET /health, POST /triage and POST /triage-ai over HTTP.\n" +
		"With --grpc, also serves socwatch.v1.TriageService. Policy files are hot-reloaded;\n" +
		"a failed reload makes triage fail closed until the file is fixed.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveGRPC != "" {
		cfg.GRPCListen = serveGRPC
	}
	if servePolicy != "" {
		cfg.PolicyFile = servePolicy
	}
	if serveAuditLog != "" {
		cfg.AuditLog = serveAuditLog
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer rt.Close(context.Background())

	if rt.watched != nil {
		go func() {
			if err := rt.watched.Run(ctx); err != nil {
				logger.Warn("policy hot-reload disabled", "error", err)
			}
		}()
	}

	httpSrv := api.New(rt.svc, logger)
	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.ListenAndServe(cfg.Listen) }()

	var grpcSrv *server.Server
	if cfg.GRPCListen != "" {
		grpcSrv = server.New(rt.svc, logger)
		go func() { errCh <- grpcSrv.Serve(cfg.GRPCListen) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	logger.Info("socwatch serving",
		"http", cfg.Listen,
		"grpc", cfg.GRPCListen,
		"policy", cfg.PolicyFile,
		"llm_offline", cfg.LLM.Offline,
	)

	select {
	case <-sigCh:
		logger.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

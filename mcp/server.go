package mcp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mycelian/servicenow-mcp/client"
	"github.com/mycelian/servicenow-mcp/internal/auth"
	"github.com/mycelian/servicenow-mcp/internal/config"
	"github.com/mycelian/servicenow-mcp/internal/session"
	"github.com/mycelian/servicenow-mcp/mcp/internal/handlers"
)

type toolRegisterer interface {
	RegisterTools(s *server.MCPServer) error
}

// Authenticator and KnowledgeBase are the dependencies NewServer wires
// into the tools.
type (
	Authenticator = handlers.Authenticator
	KnowledgeBase = handlers.KnowledgeBase
)

// NewServer builds an MCP server exposing the knowledge tools.
func NewServer(cfg *config.Config, authn Authenticator, kb KnowledgeBase) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	registerers := []struct {
		name string
		h    toolRegisterer
	}{
		{"auth", handlers.NewAuthHandler(authn)},
		{"search", handlers.NewSearchHandler(kb)},
		{"article", handlers.NewArticleHandler(kb)},
	}
	for _, r := range registerers {
		if err := r.h.RegisterTools(s); err != nil {
			log.Error().Err(err).Str("handler", r.name).Msg("Failed to register tools")
			return nil, err
		}
	}
	return s, nil
}

// RunMCPServer wires the session store, auth manager and knowledge client,
// then serves until ctx is cancelled or a termination signal arrives.
func RunMCPServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.LogSummary()

	store := session.NewStore()
	rest := client.NewRESTClient(cfg.InstanceURL, cfg.APITimeout(), cfg.Debug)
	manager := auth.NewManager(cfg, store, auth.WithRESTClient(rest))

	kb, err := client.New(cfg.InstanceURL, manager,
		client.WithRESTClient(rest),
		client.WithRetryPolicy(cfg.MaxRetries, cfg.RetryDelay()),
		client.WithStrictExactMatch(cfg.StrictExactMatch),
	)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to create knowledge client")
		return err
	}

	s, err := NewServer(cfg, manager, kb)
	if err != nil {
		return err
	}

	go store.RunSweeper(ctx, cfg.SweepInterval())

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	if shouldUseStdio(cfg.Transport) {
		log.Info().Msg("Serving MCP over stdio")
		err := server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Stdio server error")
			return err
		}
		return nil
	}
	return serveHTTP(ctx, cfg, s)
}

func serveHTTP(ctx context.Context, cfg *config.Config, s *server.MCPServer) error {
	streamSrv := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath("/mcp"),
		server.WithHeartbeatInterval(30*time.Second),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      streamSrv,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: 0, // SSE streams have no deadline
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Serving MCP over Streamable HTTP")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during HTTP server shutdown")
		return err
	}
	log.Info().Msg("HTTP server shutdown complete")

	if err := streamSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during MCP server shutdown")
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("Metrics server stopped")
	}
}

// shouldUseStdio resolves the transport setting. In auto mode stdio is
// used when stdin is not a terminal, which is how MCP hosts launch us.
func shouldUseStdio(transport string) bool {
	switch strings.ToLower(transport) {
	case "stdio":
		return true
	case "http":
		return false
	}
	if os.Getenv("MCP_STDIO") == "true" {
		return true
	}
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

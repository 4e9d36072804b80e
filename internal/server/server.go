// Package server assembles the gateway: configuration, authentication,
// the VoxLink toolkit, the MCP server, and the session routing layer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxlink/mcp-voice-gateway/pkg/auth"
	"github.com/voxlink/mcp-voice-gateway/pkg/config"
	"github.com/voxlink/mcp-voice-gateway/pkg/health"
	"github.com/voxlink/mcp-voice-gateway/pkg/middleware"
	"github.com/voxlink/mcp-voice-gateway/pkg/session"
	"github.com/voxlink/mcp-voice-gateway/pkg/telemetry"
	"github.com/voxlink/mcp-voice-gateway/pkg/tools"
	"github.com/voxlink/mcp-voice-gateway/pkg/voxlink"
)

// Version is set at build time.
var Version = "dev"

// Gateway is a fully wired gateway instance.
type Gateway struct {
	cfg       *config.Config
	logger    *slog.Logger
	mcpServer *mcp.Server
	manager   *session.Manager
	recorder  *session.Recorder
	reaper    *session.Reaper
	router    *session.Handler
	collector *telemetry.Collector
	checker   *health.Checker
}

// New builds a gateway from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}

	var collector *telemetry.Collector
	if cfg.Telemetry.Enabled {
		collector = telemetry.NewCollector()
	}

	client, err := voxlink.NewClient(cfg.VoxLink)
	if err != nil {
		return nil, fmt.Errorf("creating voxlink client: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	tools.New(client).Register(mcpServer)

	store := session.NewStore()
	manager := session.NewManager(store, session.ManagerConfig{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
	}, logger, collector)
	recorder := session.NewRecorder(manager, logger, collector)
	reaper := session.NewReaper(manager, cfg.Session.ReapInterval, logger)

	mcpServer.AddReceivingMiddleware(
		middleware.MCPLoggingMiddleware(logger),
		middleware.MCPSessionMetricsMiddleware(recorder),
	)

	router := session.NewHandler(session.HandlerConfig{
		Manager:   manager,
		Recorder:  recorder,
		Identity:  auth.NewRequestResolver(buildAuthenticator(cfg.Auth)),
		Factory:   newTransportFactory(mcpServer),
		Logger:    logger,
		Collector: collector,
	})

	return &Gateway{
		cfg:       cfg,
		logger:    logger,
		mcpServer: mcpServer,
		manager:   manager,
		recorder:  recorder,
		reaper:    reaper,
		router:    router,
		collector: collector,
		checker:   health.NewChecker(manager),
	}, nil
}

// buildAuthenticator chains the configured authentication methods.
func buildAuthenticator(cfg config.AuthConfig) auth.Authenticator {
	var authenticators []auth.Authenticator
	if cfg.Bearer.Secret != "" {
		authenticators = append(authenticators, auth.NewBearerAuthenticator(cfg.Bearer))
	}
	if len(cfg.APIKeys) > 0 {
		authenticators = append(authenticators, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{Keys: cfg.APIKeys}))
	}
	return auth.NewChainedAuthenticator(
		auth.ChainedAuthConfig{AllowAnonymous: cfg.AllowAnonymous},
		authenticators...,
	)
}

// MCPServer returns the underlying MCP server.
func (g *Gateway) MCPServer() *mcp.Server { return g.mcpServer }

// Manager returns the session manager.
func (g *Gateway) Manager() *session.Manager { return g.manager }

// Handler returns the gateway's HTTP handler: the session router plus
// the metrics endpoint when telemetry is enabled.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", g.router)
	mux.HandleFunc("/healthz", g.checker.LivenessHandler())
	mux.HandleFunc("/readyz", g.checker.ReadinessHandler())
	if g.collector != nil {
		mux.Handle(g.cfg.Telemetry.Path, g.collector.Handler())
	}
	return mux
}

// ServeHTTP runs the HTTP transport until ctx is cancelled, then drains
// sessions and shuts down.
func (g *Gateway) ServeHTTP(ctx context.Context) error {
	g.reaper.Start(ctx)
	defer g.Close()

	httpServer := &http.Server{
		Addr:    g.cfg.Server.Address,
		Handler: g.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway: listening", "address", g.cfg.Server.Address)
		g.checker.SetReady()
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	g.logger.Info("gateway: shutting down")
	g.checker.SetDraining()
	if err := httpServer.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// ServeStdio runs a single stdio MCP session until the client
// disconnects or ctx is cancelled. The session routing layer is not
// involved: stdio has exactly one implicit session.
func (g *Gateway) ServeStdio(ctx context.Context) error {
	defer g.Close()

	if err := g.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("stdio session: %w", err)
	}
	return nil
}

// Close stops the reaper and destroys all live sessions.
func (g *Gateway) Close() {
	g.reaper.Stop()
	g.manager.Shutdown()
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Package main provides the entry point for the mcp-voice-gateway server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxlink/mcp-voice-gateway/internal/server"
	"github.com/voxlink/mcp-voice-gateway/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool
}

func parseFlags() serverOptions {
	opts := serverOptions{}
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.transport, "transport", "", "Transport type: stdio, http (overrides config)")
	flag.StringVar(&opts.address, "address", "", "Listen address for HTTP transport (overrides config)")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	flag.Parse()
	return opts
}

func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func run() error {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("mcp-voice-gateway version %s\n", server.Version)
		return nil
	}

	if opts.configPath == "" {
		return fmt.Errorf("a configuration file is required: pass -config")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cfg, opts)

	gateway, err := server.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	ctx := setupSignalHandler()

	switch cfg.Server.Transport {
	case "stdio":
		return gateway.ServeStdio(ctx)
	case "http":
		return gateway.ServeHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Server.Transport)
	}
}

func applyFlagOverrides(cfg *config.Config, opts serverOptions) {
	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.address != "" {
		cfg.Server.Address = opts.address
	}
}

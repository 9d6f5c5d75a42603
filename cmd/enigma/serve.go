package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/enigma/internal/agent"
	"github.com/dusk-indust/enigma/internal/config"
	"github.com/dusk-indust/enigma/internal/logging"
	"github.com/dusk-indust/enigma/internal/mcptools"
	"github.com/dusk-indust/enigma/internal/server"
	"github.com/dusk-indust/enigma/internal/telemetry"
)

type serveFlags struct {
	ConfigPath string
	Addr       string
	Transport  string
}

func parseServeFlags(args []string, stderr io.Writer) (serveFlags, error) {
	var flags serveFlags

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.ConfigPath, "config", "", "path to enigma.yml (default: ./enigma.yml if present)")
	fs.StringVar(&flags.Addr, "addr", "", "listen address, overrides server.addr")
	fs.StringVar(&flags.Transport, "transport", "http", "http, stdio (MCP over stdin/stdout) or all")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	switch flags.Transport {
	case "http", "stdio", "all":
	default:
		return flags, fmt.Errorf("unknown transport %q", flags.Transport)
	}
	return flags, nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	flags, err := parseServeFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Addr != "" {
		cfg.Server.Addr = flags.Addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// stdout belongs to the MCP stdio transport, so logs and stdout spans go
	// to stderr in every mode.
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	tp, err := telemetry.Setup(ctx, cfg.Tracing, version, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	reg, err := buildRegistry(cfg.Agents, logger)
	if err != nil {
		return err
	}

	mcpServer := mcptools.NewServer(reg, version)

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(version),
		server.WithTracerProvider(tp),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.MCP.Enabled {
		opts = append(opts, server.WithMCPHandler(cfg.MCP.Path, mcptools.HTTPHandler(mcpServer)))
	}
	srv := server.New(reg, opts...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting enigma", "version", version, "transport", flags.Transport, "agents", reg.Len())

	g, gctx := errgroup.WithContext(ctx)
	if flags.Transport == "http" || flags.Transport == "all" {
		g.Go(func() error {
			return srv.Run(gctx, cfg.Server.Addr)
		})
	}
	if flags.Transport == "stdio" || flags.Transport == "all" {
		g.Go(func() error {
			// Closing stdin ends the MCP session and the process with it.
			defer stop()
			if err := mcptools.RunStdio(gctx, mcpServer); err != nil && gctx.Err() == nil {
				return fmt.Errorf("mcp stdio: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// buildRegistry constructs every configured agent and registers it.
func buildRegistry(specs []agent.Spec, logger *slog.Logger) (*agent.Registry, error) {
	agents, err := agent.BuildAll(specs)
	if err != nil {
		return nil, err
	}

	reg := agent.NewRegistry()
	for _, a := range agents {
		reg.Register(a)
		logger.Debug("registered agent", "name", a.Info().Name)
	}
	return reg, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/usercrud/internal/config"
	"github.com/dusk-indust/usercrud/internal/mcptools"
	"github.com/dusk-indust/usercrud/internal/recordstore"
	"github.com/dusk-indust/usercrud/internal/telemetry"
	"github.com/dusk-indust/usercrud/internal/userapi"
	"github.com/dusk-indust/usercrud/internal/webui"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	*rootOptions
	ConfigPath string
	Addr       string
	DataPath   string
	PublicDir  string
	MCPAddr    string
	Memory     bool
	Telemetry  bool
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the users API and landing page",
		Long: `Run the users HTTP API and serve the landing page.

Settings come from usercrud.yml in the working directory (or --config),
and flags override the file.

Example:
  usercrud serve --addr :3000 --data ./data/db.json
  usercrud serve --memory --mcp-addr :3001 -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveServeConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts.Memory, newLogger(cmd.ErrOrStderr(), cfg.Verbose), cmd.ErrOrStderr())
		},
	}

	addServeFlags(cmd.Flags(), opts)

	return cmd
}

func addServeFlags(fs *pflag.FlagSet, opts *serveOptions) {
	fs.StringVar(&opts.ConfigPath, "config", "", "path to a config file (default: ./usercrud.yml if present)")
	fs.StringVar(&opts.Addr, "addr", config.DefaultAddr, "listen address")
	fs.StringVar(&opts.DataPath, "data", config.DefaultDataPath, "path to the JSON data file")
	fs.StringVar(&opts.PublicDir, "public", "", "serve the landing page from this directory instead of the embedded one")
	fs.StringVar(&opts.MCPAddr, "mcp-addr", "", "also serve MCP tools over HTTP on this address")
	fs.BoolVar(&opts.Memory, "memory", false, "keep users in memory only")
	fs.BoolVar(&opts.Telemetry, "telemetry", false, "export record store spans and metrics to stderr with OpenTelemetry")
}

// resolveServeConfig loads the config file and applies explicitly set flags
// on top of it.
func resolveServeConfig(flags *pflag.FlagSet, opts *serveOptions) (*config.ServerConfig, error) {
	var (
		cfg *config.ServerConfig
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.Changed("addr") {
		cfg.Addr = opts.Addr
	}
	if flags.Changed("data") {
		cfg.DataPath = opts.DataPath
	}
	if flags.Changed("public") {
		cfg.PublicDir = opts.PublicDir
	}
	if flags.Changed("mcp-addr") {
		cfg.MCPAddr = opts.MCPAddr
	}
	if flags.Changed("telemetry") {
		cfg.Telemetry = opts.Telemetry
	}
	if opts.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// openStore builds the record store stack for cfg.
func openStore(cfg *config.ServerConfig, memory bool, logger *slog.Logger) recordstore.Store {
	var store recordstore.Store
	if memory {
		store = recordstore.NewMemStore()
	} else {
		store = recordstore.NewFileStore(cfg.DataPath, recordstore.WithFileLogger(logger))
	}

	obsOpts := []recordstore.ObserveOption{recordstore.WithLogger(logger)}
	if cfg.Telemetry {
		obsOpts = append(obsOpts, recordstore.WithDefaultTracer(), recordstore.WithDefaultMeter())
	}
	return recordstore.Observe(store, obsOpts...)
}

// startTelemetry installs the OpenTelemetry SDK when cfg enables it. The
// returned func flushes and stops the providers; it is a no-op otherwise.
func startTelemetry(cfg *config.ServerConfig, w io.Writer) (func(context.Context) error, error) {
	if !cfg.Telemetry {
		return func(context.Context) error { return nil }, nil
	}
	providers, err := telemetry.Setup(w, telemetry.Options{
		ServiceName:    "usercrud",
		ServiceVersion: version,
	})
	if err != nil {
		return nil, err
	}
	return providers.Shutdown, nil
}

// runServe serves the HTTP API, and the MCP tools when configured, until ctx
// is cancelled or one of the servers fails. Telemetry, when enabled, is
// exported to telemetryOut.
func runServe(ctx context.Context, cfg *config.ServerConfig, memory bool, logger *slog.Logger, telemetryOut io.Writer) error {
	shutdownTelemetry, err := startTelemetry(cfg, telemetryOut)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout))
		defer cancel()
		if terr := shutdownTelemetry(flushCtx); terr != nil {
			logger.Warn("telemetry shutdown failed", "error", terr)
		}
	}()

	assets, err := webui.Open(cfg.PublicDir)
	if err != nil {
		return fmt.Errorf("open landing page: %w", err)
	}

	svc := userapi.NewService(openStore(cfg, memory, logger))
	srv := userapi.NewServer(svc,
		userapi.WithAssets(assets),
		userapi.WithServerLogger(logger),
	)

	if memory {
		logger.Info("storing users in memory")
	} else {
		logger.Info("storing users", "path", cfg.DataPath)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, cfg.Addr, time.Duration(cfg.ShutdownTimeout))
	})
	if cfg.MCPAddr != "" {
		g.Go(func() error {
			logger.Info("mcp: listening", "addr", cfg.MCPAddr)
			if err := mcptools.RunMCPServer(gctx, svc, cfg.MCPAddr); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/mcp-fleet/internal/admin"
	"github.com/JamesPrial/mcp-fleet/internal/memry"
	"github.com/JamesPrial/mcp-fleet/internal/server"
	"github.com/JamesPrial/mcp-fleet/internal/storage"
	"github.com/JamesPrial/mcp-fleet/internal/tides"
	"github.com/JamesPrial/mcp-fleet/internal/transport"
	"github.com/JamesPrial/mcp-fleet/pkg/config"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

type serveOptions struct {
	configPath  string
	envFile     string
	transport   string
	storagePath string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:       "serve [memry|tides]",
		Short:     "Run an MCP tool server",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{memry.ServerName, tides.ServerName},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file loaded before the configuration")
	flags.StringVarP(&opts.transport, "transport", "t", "", "Transport override: stdio or http")
	flags.StringVar(&opts.storagePath, "storage-path", "", "Storage directory override for this server")
	return cmd
}

// loadSettings applies, in order: .env file, YAML file, environment and flags
func loadSettings(opts *serveOptions, name string) (*config.Settings, error) {
	if err := config.LoadEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.transport != "" {
		cfg.Transport.Type = opts.transport
	}
	if opts.storagePath != "" {
		switch name {
		case memry.ServerName:
			cfg.Memry.StoragePath = opts.storagePath
		case tides.ServerName:
			cfg.Tides.StoragePath = opts.storagePath
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// app is one assembled tool server
type app struct {
	tools server.ToolHandler
	stats admin.StatsFunc
	close func() error
}

func openStorage[T storage.Entity](cfg *config.Settings, name, table string, opts ...storage.StorageOption) (*storage.EntityStorage[T], error) {
	backend, err := storage.NewBackend[T](&cfg.Storage, cfg.StoragePathFor(name), table)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage backend: %w", name, err)
	}
	return storage.NewEntityStorage[T](backend, opts...), nil
}

func buildApp(cfg *config.Settings, name string) (*app, error) {
	switch name {
	case memry.ServerName:
		store, err := openStorage[memry.Memory](cfg, name, "memories",
			storage.WithEntityType("Memory"),
			storage.WithIDGenerator(storage.IDGeneratorFor(cfg.Storage.IDStrategy, "memory")),
		)
		if err != nil {
			return nil, err
		}
		return &app{tools: memry.NewManager(store), stats: store.GetStats, close: store.Close}, nil

	case tides.ServerName:
		idGen := storage.TimestampIDGenerator("tide")
		if cfg.Storage.IDStrategy != config.IDStrategyDefault {
			idGen = storage.IDGeneratorFor(cfg.Storage.IDStrategy, "tide")
		}
		store, err := openStorage[tides.Tide](cfg, name, "tides",
			storage.WithEntityType("Tide"),
			storage.WithIDGenerator(idGen),
		)
		if err != nil {
			return nil, err
		}
		return &app{tools: tides.NewManager(store), stats: store.GetStats, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown server %q, expected %s or %s", name, memry.ServerName, tides.ServerName)
	}
}

func runServe(ctx context.Context, opts *serveOptions, name string, in io.Reader, out io.Writer) error {
	cfg, err := loadSettings(opts, name)
	if err != nil {
		return err
	}

	if err := logging.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Shutdown()
	logger := logging.GetGlobalLogger("main")

	a, err := buildApp(cfg, name)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Error("Failed to close storage", slog.String("error", err.Error()))
		}
	}()

	tr, err := transport.New(&cfg.Transport, in, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Admin.Enabled {
		adminServer := admin.NewAdminServer(name, a.stats, logging.GetGlobalFactory())
		go func() {
			if err := adminServer.Start(ctx, cfg.Admin.Addr); err != nil {
				logger.Error("Admin server failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.InfoContext(ctx, "MCP server starting",
		slog.String("server", name),
		slog.String("version", version),
		slog.String("transport", tr.Name()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.StoragePathFor(name)),
	)

	srv := server.New(a.tools, version)
	if err := tr.Start(ctx, srv.HandleRequest); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s transport failed: %w", tr.Name(), err)
	}

	logger.InfoContext(ctx, "MCP server stopped", slog.String("server", name))
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/server"
)

type flags struct {
	port        string
	host        string
	blueprints  string
	language    string
	permissions string
	logLevel    string
	dev         bool
	noWatch     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve windows, sessions and the client stream",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.port, "port", "", "HTTP port (overrides PORT)")
	fs.StringVar(&f.host, "host", "", "bind address (overrides HOST)")
	fs.StringVar(&f.blueprints, "blueprints", "", "blueprint directory (overrides BLUEPRINT_DIR)")
	fs.StringVar(&f.language, "lang", "", "language file (overrides LANGUAGE_FILE)")
	fs.StringVar(&f.permissions, "permissions", "", "permissions file (overrides PERMISSIONS_FILE)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	fs.BoolVar(&f.dev, "dev", false, "development logging at debug level")
	fs.BoolVar(&f.noWatch, "no-watch", false, "do not reload files when they change")

	cmd.AddCommand(newValidateCmd())
	return cmd
}

// apply copies explicitly set flags over the environment configuration.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("port") {
		cfg.Server.Port = f.port
	}
	if set("host") {
		cfg.Server.Host = f.host
	}
	if set("blueprints") {
		cfg.Storage.BlueprintDir = f.blueprints
	}
	if set("lang") {
		cfg.Storage.LanguageFile = f.language
	}
	if set("permissions") {
		cfg.Storage.PermissionsFile = f.permissions
	}
	if set("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if f.dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if f.noWatch {
		cfg.Storage.Watch = false
	}
}

func run(parent context.Context, cfg *config.Config) error {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		_ = logger.Sync()
		return err
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// Package main is the entry point for the security telemetry agent.
// It loads configuration, wires the collectors into the core engine, starts
// the scheduler, and runs as either a Windows service or a standalone
// foreground process.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Guliveer/vitalis/secagent/internal/autostart"
	"github.com/Guliveer/vitalis/secagent/internal/config"
	"github.com/Guliveer/vitalis/secagent/internal/logging"
	"github.com/Guliveer/vitalis/secagent/internal/service"
)

// version is set at build time via -ldflags.
var version = "dev"

const stopGrace = 5 * time.Second

type rootOptions struct {
	configPath string
	cli        config.CLIOverrides
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "secagent",
		Short:         "Security telemetry agent: collects host events and spools them as messages",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (default: search standard locations)")
	root.PersistentFlags().StringVar(&opts.cli.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.cli.AgentID, "agent-id", "", "Agent id override")

	root.AddCommand(newVersionCmd(), newConfigCmd(opts), newServiceCmd(opts, autostart.New))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "secagent %s\n", version)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

// load resolves the layered configuration. An explicit --config replaces
// discovery of the standard locations.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadLayered(o.cli, embeddedConfig, o.configPath)
	} else {
		cfg, err = config.LoadLayered(o.cli, embeddedConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync()

	logger.Info("Starting security agent", zap.String("version", version))

	a, err := buildAgent(cfg, logger, nil)
	if err != nil {
		logger.Error("Failed to build agent", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn("Shutdown was not clean", zap.Error(err))
		}
		logger.Info("Agent stopped")
	}()

	svc := service.New(logger, a.run, stopGrace)
	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		return svc.Run()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Agent running",
		zap.Duration("high", cfg.Collection.High.Duration),
		zap.Duration("medium", cfg.Collection.Medium.Duration),
		zap.Duration("low", cfg.Collection.Low.Duration))
	return svc.RunContext(ctx)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

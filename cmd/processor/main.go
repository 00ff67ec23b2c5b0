package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"simdash/internal/app"
	"simdash/internal/config"
	"simdash/internal/infrastructure"
	"simdash/internal/services"
)

// cli holds state shared by every subcommand
type cli struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer

	configFile string
	logLevel   string

	cfg     *config.Config
	logger  *slog.Logger
	service *services.ActionsService
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(afero.NewOsFs(), os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{fs: fs, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "processor",
		Short:         "Classify simulation action logs into plot points",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newProcessCmd(c),
		newCheckHeaderCmd(c),
		newListCmd(c),
	)
	return root
}

// setup loads configuration and builds the actions service
func (c *cli) setup(ctx context.Context) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configFile != "" {
		cfg, err = config.LoadFrom(c.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	c.cfg = cfg
	c.logger = infrastructure.NewLogger(cfg.Logging, c.stderr)

	resolver, err := app.NewSourceResolver(ctx, cfg.Sources, c.fs, c.logger)
	if err != nil {
		return err
	}
	c.service = services.NewActionsService(resolver, cfg.Processing, c.logger)
	return nil
}

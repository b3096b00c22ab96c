package main

import (
	"fmt"
	"log/slog"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/logging"
	"github.com/spf13/cobra"
)

// cli holds state shared by every subcommand once the root has loaded it.
type cli struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "dinamicisland",
		Short:         "Live Activities widget scaffolding and bridge tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(
		newScaffoldCommand(c),
		newSimulateCommand(c),
		newVersionCommand(),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var opts []logging.Option
	if cfg.Logging.Output == "stderr" {
		opts = append(opts, logging.WithWriter(cmd.ErrOrStderr()))
	}
	logger, err := logging.New(cfg.Logging, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nomis52/dinamicisland/buildinfo"
	"github.com/nomis52/dinamicisland/logging"
	"github.com/nomis52/dinamicisland/metrics"
	"github.com/nomis52/dinamicisland/scaffold"
	"github.com/spf13/cobra"
)

type scaffoldArgs struct {
	projectRoot string
	validate    bool
}

func newScaffoldCommand(c *cli) *cobra.Command {
	args := &scaffoldArgs{}
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Add the DinamicIslandWidget extension to the iOS project",
		Long: `Add the DinamicIslandWidget Live Activity extension to the native iOS
project generated by expo prebuild.

The run stages the Swift sources, creates the extension target, links the
WidgetKit frameworks, embeds the extension in the host app and declares the
Live Activity entitlements and Info.plist keys. Running it again on a
scaffolded project changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScaffold(cmd, c, args)
		},
	}
	cmd.Flags().StringVar(&args.projectRoot, "project-root", "", "application root containing the ios directory (overrides project.root)")
	cmd.Flags().BoolVar(&args.validate, "validate", false, "validate the configuration and exit")
	return cmd
}

func runScaffold(cmd *cobra.Command, c *cli, args *scaffoldArgs) error {
	cfg := c.cfg
	if args.projectRoot != "" {
		cfg.Project.Root = args.projectRoot
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if args.validate {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid: %s\n", configName(c.configPath))
		return nil
	}

	props := buildinfo.Get()
	c.logger.Info("scaffold started",
		"version", props.Version,
		"git_commit", props.GitCommit,
		"project_root", cfg.Project.Root,
	)

	collector := logging.NewLogCollector()
	opts := []scaffold.Option{scaffold.WithLogCollector(collector)}

	var push *metrics.PushRegistry
	if cfg.Monitoring.URL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.URL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
			Timeout:  cfg.Monitoring.Timeout,
		})
		opts = append(opts, scaffold.WithMetricsRegistry(push))
	}

	report, runErr := scaffold.Run(cmd.Context(), &cfg, c.logger, opts...)
	if report != nil {
		if err := report.Write(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	if push != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Monitoring.Timeout)
		defer cancel()
		if err := push.Flush(ctx); err != nil {
			c.logger.Warn("failed to push metrics", "url", cfg.Monitoring.URL, "error", err)
		}
	}
	return runErr
}

func configName(path string) string {
	if path == "" {
		return "(defaults and environment)"
	}
	return path
}

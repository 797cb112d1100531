package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/internal/app"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/pkg/logger"
)

// cli carries the process-wide state shared by subcommands.
type cli struct {
	logLevel string
	app      *app.App
	out      io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{out: os.Stdout}
	root := &cobra.Command{
		Use:          "taskhub",
		Short:        "Sync Notion task databases and run scheduled jobs from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close(context.Background())
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSyncCmd(c),
		newListCmd(c),
		newNotifyCmd(c),
		newJobsCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zapLogger, err := logger.New(logger.Config{Level: c.logLevel, Encoding: "console", Stderr: true})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	c.app, err = app.New(cfg, zapLogger, app.Options{})
	if err != nil {
		return err
	}
	return nil
}

// syncAll warms the cache before read commands. Failures are reported, not fatal.
func (c *cli) syncAll(ctx context.Context) {
	if _, err := c.app.Tasks.SyncAll(ctx); err != nil {
		c.app.Logger.Warn("sync incomplete", zap.Error(err))
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

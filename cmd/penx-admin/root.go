package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"penx/internal/app"
	"penx/internal/config"
	"penx/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// withApp opens the stores for the duration of fn. Writable opens fail while
// api-server holds the data directory.
func (c *commandContext) withApp(cmd *cobra.Command, opts app.Options, fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: "text", Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	a, err := app.OpenWith(cmd.Context(), cfg, log, opts)
	if err != nil {
		if errors.Is(err, app.ErrInUse) && !opts.ReadOnly {
			return fmt.Errorf("%s needs exclusive access to %s: %w; stop api-server and retry", cmd.Name(), cfg.Paths.DataDir, err)
		}
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "penx-admin",
		Short:         "PenX maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newAnalyticsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newReindexCommand(ctx))
	rootCmd.AddCommand(newImportLegacyCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand(ctx))
	return rootCmd
}

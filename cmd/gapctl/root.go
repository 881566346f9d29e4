package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/logger"
)

type commandContext struct {
	configFlag string
	dbFlag     string
	verbose    bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "gapctl",
		Short:         "Match search queries against existing content and find content gaps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			level := "warn"
			if ctx.verbose {
				level = "debug"
			}
			logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&ctx.dbFlag, "db", "", "Run history database (SQLite path); overrides sqlite.path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	return rootCmd
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.dbFlag != "" {
			cfg.SQLite.Path = c.dbFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openStore opens the run history. The CLI keeps history locally in SQLite
// unless the config points at PostgreSQL.
func (c *commandContext) openStore(ctx context.Context) (*store.SQLStore, func() error, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	local := *cfg
	if local.Store.Driver != "postgres" {
		local.Store.Driver = "sqlite"
	}
	return store.Open(ctx, &local)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

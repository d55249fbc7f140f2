// Package cli implements the blogdesk command line.
//
// Configuration is read, in increasing order of precedence, from .blogdesk.yml (or the file named by
// --config or BLOGDESK_CONFIG_FILE), BLOGDESK_<SECTION>_<OPTION> environment variables and flags.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/config"
	"github.com/hypergopher/blogdesk/internal/logging"
	"github.com/hypergopher/blogdesk/internal/storage"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blogdesk",
	Short: "A small Markdown blog with an admin area",
	Long: `blogdesk serves a Markdown blog backed by SQLite, bbolt, Postgres or memory.

Quick Start:
  blogdesk serve                  Start the web server
  blogdesk import ./content       Load Markdown files into the store
  blogdesk export ./backup        Write every post to Markdown files`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .blogdesk.yml, can also use BLOGDESK_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("driver", "", "post store driver (memory, sqlite, bolt, bun)")
	rootCmd.PersistentFlags().String("dsn", "", "store connection string")

	_ = bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log-level":    "log-level",
		"store.driver": "driver",
		"store.dsn":    "dsn",
	})
}

// bindFlags binds each viper key to the named flag in flags.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q for %s", name, key)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func initConfig() {
	config.Setup(cfgFile)

	// A missing config file is fine; defaults and the environment still apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  blogdesk.PostStore
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", slog.Any("error", err))
	}
}

func (a *app) fileSystem(dir string) *blogdesk.LocalFileSystem {
	if dir == "" {
		dir = a.cfg.Content.Dir
	}
	return blogdesk.NewLocalFileSystem(dir, blogdesk.FrontmatterFormat(a.cfg.Content.Format))
}

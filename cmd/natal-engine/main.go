// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the natal-engine CLI.
// Subcommands compute planetary positions, write and mail chart reports,
// resolve place names, browse the chart archive, and serve the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/natal-engine/internal/logging"
	"github.com/pdiddy/natal-engine/internal/observability"
	"github.com/pdiddy/natal-engine/internal/secrets"
	"github.com/pdiddy/natal-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const secretsDir = ".secrets/"

// Process-wide state populated by the root command before any subcommand runs.
var (
	appCfg  types.AppConfig
	logger  = zap.NewNop()
	metrics *observability.Metrics
)

// rootCmd is the base command for the natal-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "natal-engine",
	Short: "Compute natal chart planetary positions",
	Long: `natal-engine computes where the Sun, Moon, and planets stand in the
zodiac for a birth date, time, and place. Positions come from an orbital
element ephemeris observed from the birth location.

Use positions for a quick listing, chart to write (and optionally mail and
archive) a report, geocode to resolve a place name, history to browse saved
charts, and serve to expose the same computation over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}
		cfg := loadConfig()
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			cfg.Log.Level = "debug"
		}

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		s.Apply(&cfg)
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}

		m, err := observability.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		metrics = m
		appCfg = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./natal-engine.yaml or ~/.config/natal-engine/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or console (default console)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("natal-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "natal-engine"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("NATAL_ENGINE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

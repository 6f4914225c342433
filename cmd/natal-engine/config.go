// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/natal-engine/internal/chartstore"
	"github.com/pdiddy/natal-engine/internal/geocode"
	"github.com/pdiddy/natal-engine/internal/mail"
	"github.com/pdiddy/natal-engine/internal/report"
	"github.com/pdiddy/natal-engine/internal/server"
	"github.com/pdiddy/natal-engine/pkg/types"
)

const defaultUserAgent = "natal-engine/0.1"

// NATAL_ENGINE_REPORT_OUT_DIR maps to report.out_dir.
var envKeyReplacer = strings.NewReplacer(".", "_")

// flagKeys maps command flags to the config keys they override. Flags are
// bound for the executing command only, so commands may share flag names.
var flagKeys = map[string]string{
	"ephemeris":  "ephemeris.data_file",
	"parallel":   "engine.parallel",
	"timeout":    "engine.timeout",
	"lang":       "report.language",
	"format":     "report.format",
	"out-dir":    "report.out_dir",
	"store-dir":  "store.dir",
	"addr":       "server.addr",
	"log-format": "log.format",
}

func setDefaults() {
	viper.SetDefault("engine.parallel", false)
	viper.SetDefault("engine.timeout", 30*time.Second)
	viper.SetDefault("geocode.base_url", geocode.DefaultBaseURL)
	viper.SetDefault("geocode.timeout", 30*time.Second)
	viper.SetDefault("geocode.user_agent", defaultUserAgent)
	viper.SetDefault("geocode.max_retries", 3)
	viper.SetDefault("geocode.requests_per_second", 1.0)
	viper.SetDefault("report.out_dir", report.DefaultOutDir)
	viper.SetDefault("report.format", string(types.FormatText))
	viper.SetDefault("report.language", "en")
	viper.SetDefault("mail.port", mail.DefaultPort)
	viper.SetDefault("store.dir", chartstore.DefaultDir)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadConfig assembles the application config from viper: flags, then
// environment, then config file, then defaults.
func loadConfig() types.AppConfig {
	return types.AppConfig{
		Ephemeris: types.EphemerisConfig{
			DataFile: viper.GetString("ephemeris.data_file"),
		},
		Engine: types.EngineConfig{
			Parallel: viper.GetBool("engine.parallel"),
			Timeout:  viper.GetDuration("engine.timeout"),
		},
		Geocode: types.GeocodeConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:    viper.GetDuration("geocode.timeout"),
				UserAgent:  viper.GetString("geocode.user_agent"),
				MaxRetries: viper.GetInt("geocode.max_retries"),
			},
			BaseURL:           viper.GetString("geocode.base_url"),
			Email:             viper.GetString("geocode.email"),
			RequestsPerSecond: viper.GetFloat64("geocode.requests_per_second"),
		},
		Report: types.ReportConfig{
			OutDir:   viper.GetString("report.out_dir"),
			Format:   types.ReportFormat(viper.GetString("report.format")),
			Language: viper.GetString("report.language"),
		},
		Mail: types.MailConfig{
			Host:     viper.GetString("mail.host"),
			Port:     viper.GetInt("mail.port"),
			From:     viper.GetString("mail.from"),
			Username: viper.GetString("mail.username"),
			Password: viper.GetString("mail.password"),
		},
		Store: types.StoreConfig{
			Dir: viper.GetString("store.dir"),
		},
		Server: types.ServerConfig{
			Addr:           viper.GetString("server.addr"),
			RequestTimeout: viper.GetDuration("server.request_timeout"),
		},
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}

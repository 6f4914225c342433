// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/natal-engine/internal/geocode"
	"github.com/pdiddy/natal-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the positions API over HTTP",
	Long: `Serve exposes the computation as a JSON API:

  POST /v1/positions  {"instant": RFC 3339, "latitude": n, "longitude": n}
                      or {"instant": ..., "city": "...", "country": "ES"}
  GET  /healthz
  GET  /metrics       Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	serveCmd.Flags().Bool("parallel", false, "observe bodies concurrently")
	serveCmd.Flags().String("ephemeris", "", "ephemeris body table YAML file (default embedded)")
	serveCmd.Flags().Bool("no-geocode", false, "reject requests that name a city")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	var geo geocode.Geocoder
	if off, _ := cmd.Flags().GetBool("no-geocode"); !off {
		geo = newGeocoder()
	}

	srv := server.New(engine, geo, appCfg.Server, logger, metrics)
	return srv.ListenAndServe(cmd.Context())
}

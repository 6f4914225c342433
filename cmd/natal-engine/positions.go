// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/natal-engine/internal/ephemeris"
	"github.com/pdiddy/natal-engine/internal/geocode"
	"github.com/pdiddy/natal-engine/internal/report"
	"github.com/pdiddy/natal-engine/internal/zodiac"
	"github.com/pdiddy/natal-engine/pkg/types"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Print zodiac positions of the Sun, Moon, and planets",
	Long: `Positions computes the apparent position of the ten chart bodies for a
birth instant and place and prints the sign and degrees of each.

The instant is --date and --time in the zone named by --tz, or a single
RFC 3339 timestamp with --at. The place is --lat/--lon, or --city with an
optional --country code resolved through Nominatim.`,
	Example: `  natal-engine positions --date 1994-04-18 --time 00:00 --tz America/New_York --lat 40.7128 --lon -74.006
  natal-engine positions --at 1994-04-18T04:00:00Z --city Madrid --country ES --lang es`,
	RunE: runPositions,
}

func init() {
	addComputeFlags(positionsCmd)
	positionsCmd.Flags().Bool("json", false, "output the result set as JSON")
	positionsCmd.Flags().String("lang", "", "body and sign names: en or es")

	rootCmd.AddCommand(positionsCmd)
}

func runPositions(cmd *cobra.Command, args []string) error {
	rs, _, err := computeFromFlags(cmd)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	}

	lang, err := report.LookupLanguage(appCfg.Report.Language)
	if err != nil {
		return err
	}
	printPositions(rs, lang)
	return nil
}

func printPositions(rs types.ResultSet, lang report.Language) {
	for _, b := range rs.Bodies {
		fmt.Fprintln(os.Stdout, lang.Line(b))
	}
}

// --- shared helpers for commands that compute ---

func addComputeFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "birth date (YYYY-MM-DD)")
	cmd.Flags().String("time", "", "birth time (HH:MM or HH:MM:SS)")
	cmd.Flags().String("tz", "UTC", "IANA time zone or UTC offset (+HH:MM) of --date/--time")
	cmd.Flags().String("at", "", "birth instant as RFC 3339, instead of --date/--time/--tz")
	cmd.Flags().Float64("lat", 0, "observer latitude in degrees, north positive")
	cmd.Flags().Float64("lon", 0, "observer longitude in degrees, east positive")
	cmd.Flags().String("city", "", "birth city, resolved with Nominatim instead of --lat/--lon")
	cmd.Flags().String("country", "", "ISO 3166-1 alpha-2 country code restricting --city")
	cmd.Flags().Bool("parallel", false, "observe bodies concurrently")
	cmd.Flags().Duration("timeout", 0, "bound on the whole computation (default 30s)")
	cmd.Flags().String("ephemeris", "", "ephemeris body table YAML file (default embedded)")
}

// computeFromFlags resolves instant and place from flags and runs the
// engine. It returns the geocoded address, if any.
func computeFromFlags(cmd *cobra.Command) (types.ResultSet, string, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if appCfg.Engine.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, appCfg.Engine.Timeout)
		defer cancel()
	}

	at, _ := cmd.Flags().GetString("at")
	date, _ := cmd.Flags().GetString("date")
	clock, _ := cmd.Flags().GetString("time")
	tz, _ := cmd.Flags().GetString("tz")
	instant, err := resolveInstant(at, date, clock, tz)
	if err != nil {
		return types.ResultSet{}, "", err
	}

	loc, address, err := locationFromFlags(ctx, cmd)
	if err != nil {
		return types.ResultSet{}, "", err
	}

	engine, err := newEngine()
	if err != nil {
		return types.ResultSet{}, "", err
	}
	rs, err := engine.ComputePositions(ctx, instant, loc)
	if err != nil {
		return types.ResultSet{}, "", err
	}
	return rs, address, nil
}

func newEngine() (*zodiac.Engine, error) {
	h, err := ephemeris.Shared(appCfg.Ephemeris.DataFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("ephemeris loaded", zap.String("source", h.Source()), zap.String("name", h.Name()), zap.String("theory", h.Theory()))
	return zodiac.New(h,
		zodiac.WithLogger(logger),
		zodiac.WithMetrics(metrics),
		zodiac.WithParallel(appCfg.Engine.Parallel),
	), nil
}

func newGeocoder() *geocode.Nominatim {
	return geocode.NewNominatim(appCfg.Geocode, logger, metrics)
}

func locationFromFlags(ctx context.Context, cmd *cobra.Command) (types.ObserverLocation, string, error) {
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")
	city, _ := cmd.Flags().GetString("city")

	switch {
	case latSet && lonSet:
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		return types.ObserverLocation{Latitude: lat, Longitude: lon}, "", nil
	case latSet != lonSet:
		return types.ObserverLocation{}, "", fmt.Errorf("--lat and --lon must be given together")
	case strings.TrimSpace(city) != "":
		country, _ := cmd.Flags().GetString("country")
		res, err := newGeocoder().Lookup(ctx, city, country)
		if err != nil {
			return types.ObserverLocation{}, "", err
		}
		logger.Info("location found", zap.String("address", res.Address),
			zap.Float64("latitude", res.Latitude), zap.Float64("longitude", res.Longitude))
		return res.Location(), res.Address, nil
	}
	return types.ObserverLocation{}, "", fmt.Errorf("provide --lat and --lon, or --city")
}

// resolveInstant builds an observation instant from either an RFC 3339
// timestamp or civil date, clock, and zone. An empty zone yields a naive
// instant, which the engine rejects.
func resolveInstant(at, date, clock, tz string) (types.ObservationInstant, error) {
	if at != "" {
		if date != "" || clock != "" {
			return types.ObservationInstant{}, fmt.Errorf("use either --at or --date/--time, not both")
		}
		return types.ParseInstant(at)
	}
	if date == "" || clock == "" {
		return types.ObservationInstant{}, fmt.Errorf("provide --date and --time, or --at")
	}

	if strings.Count(clock, ":") == 1 {
		clock += ":00"
	}
	naive, err := types.ParseInstant(date + "T" + clock)
	if err != nil {
		return types.ObservationInstant{}, err
	}
	if strings.TrimSpace(tz) == "" {
		return naive, nil
	}
	zone, err := parseZone(tz)
	if err != nil {
		return types.ObservationInstant{}, err
	}
	return types.ObservationInstant{Civil: naive.Civil, Zone: zone}, nil
}

// parseZone accepts an IANA name, "UTC", or a fixed offset such as "+02:00".
func parseZone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if strings.HasPrefix(tz, "+") || strings.HasPrefix(tz, "-") {
		t, err := time.Parse("-07:00", tz)
		if err != nil {
			return nil, fmt.Errorf("parsing UTC offset %q: want +HH:MM", tz)
		}
		_, offset := t.Zone()
		return time.FixedZone(tz, offset), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", tz, err)
	}
	return loc, nil
}

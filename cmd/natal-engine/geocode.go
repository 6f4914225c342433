// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/natal-engine/internal/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <city>",
	Short: "Resolve a place name to coordinates",
	Long: `Geocode looks up a city with OpenStreetMap Nominatim and prints the
matched address and its coordinates. Requests are limited to one per
second; set geocode.email (or .secrets/nominatim-email) to identify
yourself per the Nominatim usage policy.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGeocode,
}

func init() {
	geocodeCmd.Flags().String("country", "", "ISO 3166-1 alpha-2 country code")
	geocodeCmd.Flags().Bool("json", false, "output the match as JSON")

	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(cmd *cobra.Command, args []string) error {
	city := strings.Join(args, " ")
	country, _ := cmd.Flags().GetString("country")

	res, err := newGeocoder().Lookup(cmd.Context(), city, country)
	if errors.Is(err, geocode.ErrNotFound) {
		where := ""
		if country != "" {
			where = " in " + strings.ToUpper(country)
		}
		return fmt.Errorf("city not found%s, try another name: %w", where, err)
	}
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(os.Stdout, "Location found: %s\n", res.Address)
	fmt.Fprintf(os.Stdout, "Coordinates: %.4f°, %.4f°\n", res.Latitude, res.Longitude)
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geocode resolves free-text place names to coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/natal-engine/internal/httputil"
	"github.com/pdiddy/natal-engine/internal/logging"
	"github.com/pdiddy/natal-engine/internal/observability"
	"github.com/pdiddy/natal-engine/pkg/types"
)

// ErrNotFound is returned when the place name matches nothing.
var ErrNotFound = errors.New("place not found")

// DefaultBaseURL is the public Nominatim search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

// Result is a resolved place.
type Result struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Address   string  `json:"address" yaml:"address"`
}

// Location returns the coordinates as an observer location.
func (r Result) Location() types.ObserverLocation {
	return types.ObserverLocation{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Geocoder resolves a city, optionally restricted to an ISO 3166-1 alpha-2
// country code, to a single best match.
type Geocoder interface {
	Lookup(ctx context.Context, city, country string) (Result, error)
}

// Nominatim queries an OpenStreetMap Nominatim server.
type Nominatim struct {
	Client  *http.Client
	cfg     types.GeocodeConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNominatim builds a client. Zero-valued settings take defaults: the
// public endpoint, one request per second, and three retries.
func NewNominatim(cfg types.GeocodeConfig, logger *zap.Logger, metrics *observability.Metrics) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "natal-engine/0.1"
	}
	return &Nominatim{
		Client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup returns the best match for city, or ErrNotFound.
func (n *Nominatim) Lookup(ctx context.Context, city, country string) (Result, error) {
	res, err := n.lookup(ctx, city, country)
	switch {
	case errors.Is(err, ErrNotFound):
		n.metrics.ObserveGeocode(observability.OutcomeNotFound)
	case err != nil:
		n.metrics.ObserveGeocode(observability.OutcomeError)
	default:
		n.metrics.ObserveGeocode(observability.OutcomeOK)
	}
	return res, err
}

func (n *Nominatim) lookup(ctx context.Context, city, country string) (Result, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Result{}, fmt.Errorf("empty place name")
	}

	params := url.Values{
		"q":      {city},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if cc := strings.ToLower(strings.TrimSpace(country)); cc != "" {
		params.Set("countrycodes", cc)
	}
	if n.cfg.Email != "" {
		params.Set("email", n.cfg.Email)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	n.logger.Debug("geocoding", zap.String("city", city), zap.String("country", country))

	resp, err := httputil.DoWithRetry(ctx, n.Client, req, n.cfg.MaxRetries, n.logger)
	if err != nil {
		return Result{}, fmt.Errorf("Nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("Nominatim returned HTTP %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, fmt.Errorf("parsing Nominatim response: %w", err)
	}
	if len(places) == 0 {
		return Result{}, fmt.Errorf("%q: %w", city, ErrNotFound)
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parsing latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parsing longitude %q: %w", p.Lon, err)
	}
	return Result{Latitude: lat, Longitude: lon, Address: p.DisplayName}, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability holds the Prometheus metrics shared by the engine,
// the geocoder, and the HTTP server.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Metrics bundles the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	Computations        *prometheus.CounterVec
	ComputationDuration prometheus.Histogram
	Observations        *prometheus.CounterVec
	GeocodeRequests     *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses the
// existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	computations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natal_computations_total",
		Help: "Position computations, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "natal_computation_duration_seconds",
		Help:    "Wall time of a full ten-body computation.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
	}))
	if err != nil {
		return nil, err
	}

	observations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natal_body_observations_total",
		Help: "Per-body ephemeris observations, labeled by body and outcome.",
	}, []string{"body", "outcome"}))
	if err != nil {
		return nil, err
	}

	geocode, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natal_geocode_requests_total",
		Help: "Geocoding lookups, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	httpReqs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natal_http_requests_total",
		Help: "HTTP API requests, labeled by route and status code.",
	}, []string{"route", "code"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:            gatherer,
		Computations:        computations,
		ComputationDuration: duration,
		Observations:        observations,
		GeocodeRequests:     geocode,
		HTTPRequests:        httpReqs,
	}, nil
}

// ObserveComputation records one ComputePositions call.
func (m *Metrics) ObserveComputation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Computations.WithLabelValues(outcome).Inc()
	m.ComputationDuration.Observe(elapsed.Seconds())
}

// ObserveBody records one body observation.
func (m *Metrics) ObserveBody(body, outcome string) {
	if m == nil {
		return
	}
	m.Observations.WithLabelValues(body, outcome).Inc()
}

// ObserveGeocode records one geocoding lookup.
func (m *Metrics) ObserveGeocode(outcome string) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%d", code)).Inc()
}

// Handler exposes the registry the metrics were registered against.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("registering counter: %w", err)
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("registering histogram: %w", err)
	}
	return h, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes position computation over HTTP.
//
// Routes:
//
//	POST /v1/positions  compute a chart from an instant and a location or place name
//	GET  /healthz       liveness
//	GET  /metrics       Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/natal-engine/internal/geocode"
	"github.com/pdiddy/natal-engine/internal/logging"
	"github.com/pdiddy/natal-engine/internal/observability"
	"github.com/pdiddy/natal-engine/internal/zodiac"
	"github.com/pdiddy/natal-engine/pkg/types"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 10 * time.Second

	// DefaultAddr is used when ServerConfig.Addr is empty.
	DefaultAddr = "127.0.0.1:8080"
)

// Computer produces a result set for an instant and location.
type Computer interface {
	ComputePositions(ctx context.Context, instant types.ObservationInstant, location types.ObserverLocation) (types.ResultSet, error)
}

// PositionsRequest is the body of POST /v1/positions. Either both
// coordinates or a city must be given.
type PositionsRequest struct {
	Instant   string   `json:"instant"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
}

// PositionsResponse is a result set plus the resolved address, if any.
type PositionsResponse struct {
	types.ResultSet
	Address string `json:"address,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the HTTP API.
type Server struct {
	engine   Computer
	geocoder geocode.Geocoder
	cfg      types.ServerConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New builds a server. geocoder may be nil, in which case requests must
// carry coordinates.
func New(engine Computer, geocoder geocode.Geocoder, cfg types.ServerConfig, logger *zap.Logger, metrics *observability.Metrics) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		engine:   engine,
		geocoder: geocoder,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
		metrics:  metrics,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/positions", s.instrument("positions", http.HandlerFunc(s.handlePositions)))
	mux.Handle("GET /healthz", s.instrument("healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /metrics", s.instrument("metrics", s.metrics.Handler()))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving on %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	var req PositionsRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	instant, err := types.ParseInstant(req.Instant)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	loc, address, err := s.location(ctx, req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	rs, err := s.engine.ComputePositions(ctx, instant, loc)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, PositionsResponse{ResultSet: rs, Address: address})
}

func (s *Server) location(ctx context.Context, req PositionsRequest) (types.ObserverLocation, string, error) {
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		return types.ObserverLocation{Latitude: *req.Latitude, Longitude: *req.Longitude}, "", nil
	case strings.TrimSpace(req.City) != "":
		if s.geocoder == nil {
			return types.ObserverLocation{}, "", &zodiac.ValidationError{Field: "city", Reason: "place lookup is disabled; send latitude and longitude"}
		}
		res, err := s.geocoder.Lookup(ctx, req.City, req.Country)
		if err != nil {
			return types.ObserverLocation{}, "", err
		}
		return res.Location(), res.Address, nil
	}
	return types.ObserverLocation{}, "", &zodiac.ValidationError{Field: "location", Reason: "need latitude and longitude, or city"}
}

func statusFor(err error) int {
	var ve *zodiac.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, geocode.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.metrics.ObserveHTTP(route, rec.status)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

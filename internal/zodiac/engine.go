// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zodiac computes the positions of the catalog bodies for a birth
// instant and place and maps each onto a zodiac sign.
//
// The engine owns no files, sockets, or persisted state. It validates its
// inputs, asks an ephemeris Provider for one observation per catalog body,
// and assembles a ResultSet in catalog order. Any failure yields an error
// and no partial result.
package zodiac

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/natal-engine/internal/logging"
	"github.com/pdiddy/natal-engine/internal/observability"
	"github.com/pdiddy/natal-engine/pkg/types"
)

// Provider observes a single body. Implementations must be deterministic for
// fixed inputs and safe for concurrent use when the engine runs in parallel.
type Provider interface {
	Observe(ctx context.Context, bodyID string, at time.Time, observer types.ObserverLocation) (types.ApparentObservation, error)
}

// Engine computes ResultSets against one Provider.
type Engine struct {
	provider Provider
	catalog  Catalog
	logger   *zap.Logger
	metrics  *observability.Metrics
	parallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog replaces the default catalog.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithLogger sets the logger. Nil keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// WithMetrics records computations and per-body observations.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithParallel observes all bodies concurrently.
func WithParallel(on bool) Option {
	return func(e *Engine) { e.parallel = on }
}

// New returns an Engine over p.
func New(p Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: p,
		catalog:  DefaultCatalog(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's body table.
func (e *Engine) Catalog() Catalog { return e.catalog }

// ComputePositions observes every catalog body at instant from location and
// returns them in catalog order. Errors are *ValidationError for bad input
// and *ObservationError when any body cannot be observed.
func (e *Engine) ComputePositions(ctx context.Context, instant types.ObservationInstant, location types.ObserverLocation) (types.ResultSet, error) {
	start := time.Now()

	at, err := validate(instant, location)
	if err != nil {
		e.metrics.ObserveComputation(observability.OutcomeInvalid, time.Since(start))
		return types.ResultSet{}, err
	}

	log := e.logger.With(
		zap.Time("instant", at),
		zap.Float64("latitude", location.Latitude),
		zap.Float64("longitude", location.Longitude),
	)
	log.Debug("computing positions", zap.Bool("parallel", e.parallel))

	var bodies []types.BodyResult
	if e.parallel {
		bodies, err = e.observeParallel(ctx, at, location)
	} else {
		bodies, err = e.observeSequential(ctx, at, location)
	}
	if err != nil {
		log.Warn("computation failed", zap.Error(err))
		e.metrics.ObserveComputation(observability.OutcomeError, time.Since(start))
		return types.ResultSet{}, err
	}

	e.metrics.ObserveComputation(observability.OutcomeOK, time.Since(start))
	log.Debug("positions computed", zap.Int("bodies", len(bodies)), zap.Duration("elapsed", time.Since(start)))

	return types.ResultSet{
		Instant:  at,
		Location: location,
		Bodies:   bodies,
	}, nil
}

func (e *Engine) observeSequential(ctx context.Context, at time.Time, loc types.ObserverLocation) ([]types.BodyResult, error) {
	bodies := make([]types.BodyResult, 0, len(e.catalog))
	for _, entry := range e.catalog {
		if err := ctx.Err(); err != nil {
			return nil, &ObservationError{Body: entry.Key, ProviderID: entry.ProviderID, Err: err}
		}
		r, err := e.observe(ctx, entry, at, loc)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, r)
	}
	return bodies, nil
}

// observeParallel writes each result into its catalog slot, so completion
// order never leaks into the output.
func (e *Engine) observeParallel(ctx context.Context, at time.Time, loc types.ObserverLocation) ([]types.BodyResult, error) {
	bodies := make([]types.BodyResult, len(e.catalog))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range e.catalog {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ObservationError{Body: entry.Key, ProviderID: entry.ProviderID, Err: err}
			}
			r, err := e.observe(gctx, entry, at, loc)
			if err != nil {
				return err
			}
			bodies[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (e *Engine) observe(ctx context.Context, entry CatalogEntry, at time.Time, loc types.ObserverLocation) (types.BodyResult, error) {
	obs, err := e.provider.Observe(ctx, entry.ProviderID, at, loc)
	if err == nil && !finite(obs.RightAscension) {
		err = fmt.Errorf("provider returned non-finite right ascension %v", obs.RightAscension)
	}
	if err != nil {
		e.metrics.ObserveBody(entry.Key, observability.OutcomeError)
		return types.BodyResult{}, &ObservationError{Body: entry.Key, ProviderID: entry.ProviderID, Err: err}
	}
	e.metrics.ObserveBody(entry.Key, observability.OutcomeOK)

	z := FromRightAscension(obs.RightAscension)
	e.logger.Debug("observed body",
		zap.String("body", entry.Key),
		zap.Float64("ra_hours", obs.RightAscension),
		zap.Stringer("sign", z.Sign),
		zap.Float64("degrees", z.Degrees),
	)
	return types.BodyResult{Key: entry.Key, Observation: obs, Zodiac: z}, nil
}

// validate checks the preconditions and returns the UTC instant.
func validate(instant types.ObservationInstant, loc types.ObserverLocation) (time.Time, error) {
	if !instant.Qualified() {
		return time.Time{}, &ValidationError{Field: "instant", Reason: fmt.Sprintf("%s carries no UTC offset", instant.Civil)}
	}
	at, err := instant.UTC()
	if err != nil {
		return time.Time{}, &ValidationError{Field: "instant", Reason: err.Error()}
	}
	if !finite(loc.Latitude) || loc.Latitude < -90 || loc.Latitude > 90 {
		return time.Time{}, &ValidationError{Field: "latitude", Reason: fmt.Sprintf("%v outside [-90, 90]", loc.Latitude)}
	}
	if !finite(loc.Longitude) || loc.Longitude < -180 || loc.Longitude > 180 {
		return time.Time{}, &ValidationError{Field: "longitude", Reason: fmt.Sprintf("%v outside [-180, 180]", loc.Longitude)}
	}
	return at, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ephemeris

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soniakeys/meeus/v3/planetelements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/natal-engine/internal/zodiac"
	"github.com/pdiddy/natal-engine/pkg/types"
)

var greenwichEquator = types.ObserverLocation{Latitude: 0, Longitude: 0}

func loadDefault(t *testing.T) *Handle {
	t.Helper()
	h, err := LoadDefault()
	require.NoError(t, err)
	return h
}

// --- loading ---

func TestLoadDefaultCoversCatalog(t *testing.T) {
	h := loadDefault(t)
	assert.Equal(t, DefaultSource, h.Source())
	assert.Equal(t, "meeus", h.Name())
	assert.Equal(t, "mean elements", h.Theory())
	for _, e := range zodiac.DefaultCatalog() {
		assert.True(t, h.Has(e.ProviderID), "missing body %q", e.ProviderID)
	}
	assert.Len(t, h.Bodies(), zodiac.CatalogSize)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Load(path)

	var le *zodiac.EphemerisLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEmptyPathUsesEmbedded(t *testing.T) {
	h, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSource, h.Source())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bodies.yaml")
	require.NoError(t, os.WriteFile(path, defaultData, 0o644))

	h, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, h.Source())
	assert.Equal(t, "meeus", h.Name())
}

func TestLoadResolvesVSOP87DirAgainstFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bodies.yaml")
	table := "vsop87_dir: vsop\nbodies:\n  - {id: mars, model: planet, planet: mars}\n"
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	_, err := Load(path)
	var le *zodiac.EphemerisLoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), filepath.Join(dir, "vsop"))
}

func TestParseRejectsCorruptData(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"not yaml", "bodies: [::", "parsing YAML"},
		{"no bodies", "name: empty\n", "no bodies"},
		{"no id", "bodies:\n  - {model: solar}\n", "no id"},
		{"duplicate", "bodies:\n  - {id: sun, model: solar}\n  - {id: sun, model: lunar}\n", "duplicate"},
		{"unknown model", "bodies:\n  - {id: sun, model: heliocentric}\n", "unknown model"},
		{"unknown planet", "bodies:\n  - {id: vulcan, model: planet, planet: vulcan}\n", "unknown planet"},
		{"earth is not a target", "bodies:\n  - {id: earth, model: planet, planet: earth}\n", "unknown planet"},
		{"delta t out of range", "delta_t_seconds: 100000\nbodies:\n  - {id: sun, model: solar}\n", "delta_t_seconds"},
		{"missing VSOP87 files", "vsop87_dir: no-such-vsop87-dir\nbodies:\n  - {id: sun, model: solar}\n", "VSOP87"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.yaml", []byte(tt.data))
			var le *zodiac.EphemerisLoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, "test.yaml", le.Path)
			assert.True(t, strings.Contains(err.Error(), tt.wantMsg), "error %q lacks %q", err, tt.wantMsg)
		})
	}
}

func TestSharedLoadsOnce(t *testing.T) {
	a, err := Shared("")
	require.NoError(t, err)
	b, err := Shared("")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = Shared(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// --- positions ---

// deg360 converts radians to degrees in [0, 360).
func deg360(rad float64) float64 {
	d := math.Mod(rad*rad2deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// Published apparent geocentric positions from Meeus, Astronomical
// Algorithms, 2nd ed.
func TestGeocentricMatchesPublishedPositions(t *testing.T) {
	h := loadDefault(t)
	tests := []struct {
		name    string
		body    string
		jde     float64
		raDeg   float64
		decDeg  float64
		distAU  float64
		tolDeg  float64
		tolDist float64
	}{
		// Example 25.a, 1992 October 13.0 TD.
		{name: "sun", body: "sun", jde: 2448908.5,
			raDeg: 198.38083, decDeg: -7.78507, distAU: 0.99766, tolDeg: 0.001, tolDist: 1e-4},
		// Example 47.a, 1992 April 12.0 TD.
		{name: "moon", body: "moon", jde: 2448724.5,
			raDeg: 134.688470, decDeg: 13.768368, distAU: 368409.7 / auKm, tolDeg: 0.001, tolDist: 1e-7},
		// Example 33.a, 1992 December 20.0 TD; mean elements stay within 0.1°.
		{name: "venus", body: "venus barycenter", jde: 2448976.5,
			raDeg: 316.17291, decDeg: -18.88801, distAU: 0.910947, tolDeg: 0.1, tolDist: 0.005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq := h.geocentric(h.bodies[tt.body], tt.jde)
			assert.InDelta(t, tt.raDeg, deg360(eq.RA.Rad()), tt.tolDeg)
			assert.InDelta(t, tt.decDeg, eq.Dec.Rad()*rad2deg, tt.tolDeg)
			assert.InDelta(t, tt.distAU, eq.Dist, tt.tolDist)
		})
	}
}

func TestMeanHeliocentricRadiusWithinOrbit(t *testing.T) {
	h := loadDefault(t)
	for _, id := range []string{"mercury barycenter", "mars barycenter", "neptune barycenter"} {
		b := h.bodies[id]
		var el planetelements.Elements
		planetelements.Mean(b.planet.mean, 2451545.0, &el)
		_, lat, r := meanHeliocentric(b.planet.mean, 2451545.0)
		assert.GreaterOrEqual(t, r, el.Axis*(1-el.Ecc)-1e-9, id)
		assert.LessOrEqual(t, r, el.Axis*(1+el.Ecc)+1e-9, id)
		assert.LessOrEqual(t, math.Abs(lat.Rad()), el.Inc.Rad()+1e-9, id)
	}
}

func TestRightAscensionHoursRange(t *testing.T) {
	assert.InDelta(t, 0.0, rightAscensionHours(vec3{X: 1}), 1e-12)
	assert.InDelta(t, 6.0, rightAscensionHours(vec3{Y: 1}), 1e-12)
	assert.InDelta(t, 18.0, rightAscensionHours(vec3{Y: -1}), 1e-12)
	ra := rightAscensionHours(vec3{X: 1, Y: -1e-300})
	assert.GreaterOrEqual(t, ra, 0.0)
	assert.Less(t, ra, 24.0)
}

// --- observation ---

func TestObserveSunAtJ2000(t *testing.T) {
	h := loadDefault(t)
	at := time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

	obs, err := h.Observe(context.Background(), "sun", at, greenwichEquator)
	require.NoError(t, err)

	// Sun near RA 18h45m, declination -23°, close to the meridian at local noon.
	assert.InDelta(t, 18.75, obs.RightAscension, 0.02)
	assert.InDelta(t, -23.0, obs.Declination, 0.2)
	assert.InDelta(t, 67.0, obs.Altitude, 0.5)
	assert.InDelta(t, 178.0, obs.Azimuth, 2.0)
}

func TestObserveSunAtMarchEquinox(t *testing.T) {
	h := loadDefault(t)
	at := time.Date(2024, time.March, 20, 3, 6, 0, 0, time.UTC)

	obs, err := h.Observe(context.Background(), "sun", at, greenwichEquator)
	require.NoError(t, err)

	offset := math.Min(obs.RightAscension, 24-obs.RightAscension)
	assert.Less(t, offset, 0.05)
	assert.InDelta(t, 0.0, obs.Declination, 0.3)
}

func TestObserveAllBodiesInRange(t *testing.T) {
	h := loadDefault(t)
	at := time.Date(1994, time.April, 18, 4, 0, 0, 0, time.UTC)
	nyc := types.ObserverLocation{Latitude: 40.7128, Longitude: -74.0060}

	for _, e := range zodiac.DefaultCatalog() {
		obs, err := h.Observe(context.Background(), e.ProviderID, at, nyc)
		require.NoError(t, err, e.ProviderID)

		assert.GreaterOrEqual(t, obs.RightAscension, 0.0, e.ProviderID)
		assert.Less(t, obs.RightAscension, 24.0, e.ProviderID)
		assert.GreaterOrEqual(t, obs.Declination, -90.0, e.ProviderID)
		assert.LessOrEqual(t, obs.Declination, 90.0, e.ProviderID)
		assert.GreaterOrEqual(t, obs.Altitude, -90.0, e.ProviderID)
		assert.LessOrEqual(t, obs.Altitude, 90.0, e.ProviderID)
		assert.GreaterOrEqual(t, obs.Azimuth, 0.0, e.ProviderID)
		assert.Less(t, obs.Azimuth, 360.0, e.ProviderID)
	}

	// Spot-check slow movers against their 1994 positions.
	jupiter, err := h.Observe(context.Background(), "jupiter barycenter", at, nyc)
	require.NoError(t, err)
	assert.InDelta(t, 14.6, jupiter.RightAscension, 0.2)

	saturn, err := h.Observe(context.Background(), "saturn barycenter", at, nyc)
	require.NoError(t, err)
	assert.InDelta(t, 22.75, saturn.RightAscension, 0.2)
}

func TestObserveDeterministic(t *testing.T) {
	h := loadDefault(t)
	at := time.Date(1987, time.July, 4, 18, 30, 0, 0, time.UTC)
	loc := types.ObserverLocation{Latitude: -33.87, Longitude: 151.21}

	a, err := h.Observe(context.Background(), "moon", at, loc)
	require.NoError(t, err)
	b, err := h.Observe(context.Background(), "moon", at, loc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestObserveUnknownBody(t *testing.T) {
	h := loadDefault(t)
	_, err := h.Observe(context.Background(), "ceres", time.Now().UTC(), greenwichEquator)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ceres")
}

func TestObserveCancelled(t *testing.T) {
	h := loadDefault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Observe(ctx, "sun", time.Now().UTC(), greenwichEquator)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleDrivesEngine(t *testing.T) {
	h := loadDefault(t)
	e := zodiac.New(h)
	in := types.InstantOf(time.Date(1994, time.April, 18, 4, 0, 0, 0, time.UTC))

	rs, err := e.ComputePositions(context.Background(), in, types.ObserverLocation{Latitude: 40.7128, Longitude: -74.0060})
	require.NoError(t, err)
	require.Equal(t, zodiac.CatalogSize, rs.Len())

	sun, ok := rs.Lookup("sun")
	require.True(t, ok)
	// RA ~1.73h maps to ~26° under the RA approximation: Aries.
	assert.Equal(t, types.Aries, sun.Zodiac.Sign)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/natal-engine/internal/geocode"
	"github.com/pdiddy/natal-engine/internal/observability"
	"github.com/pdiddy/natal-engine/internal/zodiac"
	"github.com/pdiddy/natal-engine/pkg/types"
)

type stubEngine struct {
	err      error
	gotAt    types.ObservationInstant
	gotLoc   types.ObserverLocation
	computed int
}

func (e *stubEngine) ComputePositions(_ context.Context, instant types.ObservationInstant, loc types.ObserverLocation) (types.ResultSet, error) {
	e.computed++
	e.gotAt, e.gotLoc = instant, loc
	if e.err != nil {
		return types.ResultSet{}, e.err
	}
	at, err := instant.UTC()
	if err != nil {
		return types.ResultSet{}, &zodiac.ValidationError{Field: "instant", Reason: err.Error()}
	}
	return types.ResultSet{
		Instant:  at,
		Location: loc,
		Bodies: []types.BodyResult{
			{Key: "sun", Zodiac: types.ZodiacPosition{Sign: types.Aries, Degrees: 25.98}},
		},
	}, nil
}

type stubGeocoder struct {
	res geocode.Result
	err error
}

func (g stubGeocoder) Lookup(_ context.Context, _, _ string) (geocode.Result, error) {
	return g.res, g.err
}

func newTestServer(t *testing.T, eng Computer, geo geocode.Geocoder) (*httptest.Server, *observability.Metrics) {
	t.Helper()
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	s := New(eng, geo, types.ServerConfig{RequestTimeout: 5 * time.Second}, nil, m)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/positions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestPositionsWithCoordinates(t *testing.T) {
	eng := &stubEngine{}
	ts, m := newTestServer(t, eng, nil)

	resp, data := post(t, ts, `{"instant":"1994-04-18T00:00:00-04:00","latitude":40.7128,"longitude":-74.006}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out struct {
		Instant  time.Time              `json:"instant"`
		Location types.ObserverLocation `json:"location"`
		Bodies   []types.BodyResult     `json:"bodies"`
		Address  string                 `json:"address"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Instant.Equal(time.Date(1994, 4, 18, 4, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 40.7128, out.Location.Latitude, 1e-9)
	require.Len(t, out.Bodies, 1)
	assert.Equal(t, types.Aries, out.Bodies[0].Zodiac.Sign)
	assert.Empty(t, out.Address)
	assert.Contains(t, string(data), `"sign":"Aries"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("positions", "200")))
}

func TestPositionsWithCity(t *testing.T) {
	eng := &stubEngine{}
	geo := stubGeocoder{res: geocode.Result{Latitude: 40.4167, Longitude: -3.7036, Address: "Madrid, España"}}
	ts, _ := newTestServer(t, eng, geo)

	resp, data := post(t, ts, `{"instant":"2000-01-01T12:00:00Z","city":"Madrid","country":"ES"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out PositionsResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Madrid, España", out.Address)
	assert.InDelta(t, 40.4167, eng.gotLoc.Latitude, 1e-9)
}

func TestPositionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		engine *stubEngine
		geo    geocode.Geocoder
		body   string
		status int
	}{
		{"malformed json", &stubEngine{}, nil, `{"instant":`, http.StatusBadRequest},
		{"unknown field", &stubEngine{}, nil, `{"instant":"2000-01-01T12:00:00Z","lat":1}`, http.StatusBadRequest},
		{"bad instant", &stubEngine{}, nil, `{"instant":"tomorrow","latitude":0,"longitude":0}`, http.StatusBadRequest},
		{"no location", &stubEngine{}, nil, `{"instant":"2000-01-01T12:00:00Z"}`, http.StatusBadRequest},
		{"city without geocoder", &stubEngine{}, nil, `{"instant":"2000-01-01T12:00:00Z","city":"Madrid"}`, http.StatusBadRequest},
		{
			"naive instant", &stubEngine{err: &zodiac.ValidationError{Field: "instant", Reason: "no time zone"}}, nil,
			`{"instant":"2000-01-01T12:00:00","latitude":0,"longitude":0}`, http.StatusBadRequest,
		},
		{
			"place not found", &stubEngine{}, stubGeocoder{err: fmt.Errorf("%q: %w", "Atlantis", geocode.ErrNotFound)},
			`{"instant":"2000-01-01T12:00:00Z","city":"Atlantis"}`, http.StatusNotFound,
		},
		{
			"observation failure", &stubEngine{err: &zodiac.ObservationError{Body: "moon", ProviderID: "moon", Err: errors.New("no data")}}, nil,
			`{"instant":"2000-01-01T12:00:00Z","latitude":0,"longitude":0}`, http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tt.engine, tt.geo)
			resp, data := post(t, ts, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))

			var e errorResponse
			require.NoError(t, json.Unmarshal(data, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestPositionsRejectsGet(t *testing.T) {
	ts, _ := newTestServer(t, &stubEngine{}, nil)
	resp, err := http.Get(ts.URL + "/v1/positions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t, &stubEngine{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(body, []byte("natal_http_requests_total")), string(body))
}

func TestListenAndServeShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s := New(&stubEngine{}, nil, types.ServerConfig{Addr: addr}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

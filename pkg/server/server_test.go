package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mqttscope/mqttscope/pkg/poller"
	"github.com/mqttscope/mqttscope/pkg/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubSource struct {
	observations []timeseries.Observation
	events       []timeseries.Event
	err          error
}

func (s *stubSource) Observations(_ context.Context, _ string, _ timeseries.Window) ([]timeseries.Observation, error) {
	return s.observations, s.err
}

func (s *stubSource) Events(_ context.Context, _ string, _ timeseries.Window) ([]timeseries.Event, error) {
	return s.events, s.err
}

func newTestServer(t *testing.T, source poller.DataSource) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Options{
		Source: source,
		Logger: zaptest.NewLogger(t),
		Series: []string{"received", "sent"},
	}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestSeriesEndpoint(t *testing.T) {
	now := time.Now().UTC()
	source := &stubSource{
		observations: []timeseries.Observation{
			{Timestamp: now.Add(-time.Hour).Truncate(30 * time.Minute), Series: "received", Value: 11},
		},
	}
	srv := newTestServer(t, source)

	resp, err := http.Get(srv.URL + "/api/series?range=24h")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result poller.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "24h", result.Range)
	assert.Equal(t, 1800, result.Step)
	// 24h of 30m buckets: complete axis regardless of our single observation.
	// 48 or 49 points depending on where "now" falls between boundaries.
	assert.GreaterOrEqual(t, len(result.Series), 48)
	assert.LessOrEqual(t, len(result.Series), 49)
}

func TestSeriesEndpointDataAPIDown(t *testing.T) {
	srv := newTestServer(t, &stubSource{err: context.DeadlineExceeded})

	resp, err := http.Get(srv.URL + "/api/series")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestEventsEndpoint(t *testing.T) {
	source := &stubSource{
		events: []timeseries.Event{
			{Timestamp: time.Now().UTC().Add(-10 * time.Minute), Kind: timeseries.EventConnect, Count: 3},
		},
	}
	srv := newTestServer(t, source)

	resp, err := http.Get(srv.URL + "/api/events?range=1h")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events timeseries.ChartSeries
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.NotEmpty(t, events)

	var connects float64
	for _, point := range events {
		if v := point.Values[poller.SeriesConnects]; v != nil {
			connects += *v
		}
	}
	assert.Equal(t, 3.0, connects)
}

func TestOverviewBeforeFirstPoll(t *testing.T) {
	source := &stubSource{}
	p := poller.New(source, poller.Config{Interval: time.Hour, Range: "1h"}, zaptest.NewLogger(t))
	srv := httptest.NewServer(New(Options{
		Source: source,
		Poller: p,
		Logger: zaptest.NewLogger(t),
	}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/overview")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestACLEndpointsDisabledWithoutStore(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, err := http.Get(srv.URL + "/api/acl/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBrokerEndpointDisabledWithoutProbe(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, err := http.Get(srv.URL + "/api/broker")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

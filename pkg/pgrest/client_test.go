package pgrest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/broker_metrics", r.URL.Path)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		assert.Equal(t, []string{"gte.2024-03-01T10:00:00Z", "lte.2024-03-01T11:00:00Z"}, r.URL.Query()["ts"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ts":"2024-03-01T10:00:00Z","series":"received","value":12}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("sekrit"), WithLogger(zaptest.NewLogger(t)))

	q := url.Values{}
	q.Add("ts", "gte.2024-03-01T10:00:00Z")
	q.Add("ts", "lte.2024-03-01T11:00:00Z")

	rows, err := c.Rows(context.Background(), "broker_metrics", q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "received", rows[0]["series"])
	assert.Equal(t, 12.0, rows[0]["value"])
}

func TestRowsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL,
		WithLogger(zaptest.NewLogger(t)),
		WithRetry(5, time.Millisecond, 10*time.Millisecond),
	)

	rows, err := c.Rows(context.Background(), "broker_metrics", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRowsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL,
		WithLogger(zaptest.NewLogger(t)),
		WithRetry(5, time.Millisecond, 10*time.Millisecond),
	)

	_, err := c.Rows(context.Background(), "no_such_table", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRowsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(zaptest.NewLogger(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Rows(ctx, "broker_metrics", nil)
	assert.Error(t, err)
}

// Package metrics exposes the dashboard's own operational metrics via
// Prometheus, on a listener separate from the API server.
package metrics

import (
	"cmp"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqttscope_fetch_errors_total",
			Help: "Total number of data API fetch errors by table",
		},
		[]string{"table"},
	)

	SkippedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqttscope_skipped_rows_total",
			Help: "Total number of malformed data API rows skipped during decoding",
		},
		[]string{"table", "reason"},
	)

	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mqttscope_poll_duration_seconds",
			Help:    "Duration of one poll cycle against the data API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"range"},
	)

	PollsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mqttscope_polls_discarded_total",
			Help: "Polls superseded by a newer cycle before completing",
		},
	)

	BrokerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqttscope_broker_connected",
			Help: "Whether the broker probe currently holds a connection (1) or not (0)",
		},
	)
)

// ServerOpts configures the metrics listener.
type ServerOpts struct {
	Addr              string
	Path              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

func defaultServerOpts() ServerOpts {
	return ServerOpts{
		Addr:              ":9100",
		Path:              "/metrics",
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// StartServer runs a Prometheus metrics listener until ctx is canceled, then
// shuts it down gracefully. The wait group is released once the listener has
// stopped.
func StartServer(ctx context.Context, wg *sync.WaitGroup, logger *zap.Logger, opts *ServerOpts) {
	effective := defaultServerOpts()
	if opts != nil {
		effective.Addr = cmp.Or(opts.Addr, effective.Addr)
		effective.Path = cmp.Or(opts.Path, effective.Path)
		effective.ShutdownTimeout = cmp.Or(opts.ShutdownTimeout, effective.ShutdownTimeout)
		effective.ReadHeaderTimeout = cmp.Or(opts.ReadHeaderTimeout, effective.ReadHeaderTimeout)
	}

	mux := http.NewServeMux()
	mux.Handle(effective.Path, promhttp.Handler())
	server := &http.Server{
		Addr:              effective.Addr,
		Handler:           mux,
		ReadHeaderTimeout: effective.ReadHeaderTimeout,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting metrics server", zap.String("addr", effective.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), effective.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}()
}

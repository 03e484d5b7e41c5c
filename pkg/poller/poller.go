// Package poller periodically refreshes the dashboard's default chart data
// from the data API. Each poll is an independent cancellable unit; when a
// new cycle starts before the previous one finished, the stale result is
// discarded rather than applied (last-fetch-wins).
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/mqttscope/mqttscope/pkg/metrics"
	"github.com/mqttscope/mqttscope/pkg/timeseries"
	"go.uber.org/zap"
)

// DataSource is the subset of the data API client the poller needs.
type DataSource interface {
	Observations(ctx context.Context, table string, window timeseries.Window) ([]timeseries.Observation, error)
	Events(ctx context.Context, table string, window timeseries.Window) ([]timeseries.Event, error)
}

// Config drives one poller instance.
type Config struct {
	// Interval between poll cycles; typically 15s-300s.
	Interval time.Duration
	// Range label for the default dashboard window, e.g. "24h".
	Range string
	// Tables to read from; zero values use the pgrest defaults.
	ObservationsTable string
	EventsTable       string
	// Series names expected in the observations table.
	Series []string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Poller owns the latest Result snapshot for the HTTP layer.
type Poller struct {
	source DataSource
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	gen        uint64
	inFlight   bool
	cancelPrev context.CancelFunc
	latest     *Result
}

// New creates a poller. Missing config fields get defaults (60s interval,
// 24h range).
func New(source DataSource, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Range == "" {
		cfg.Range = "24h"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{source: source, cfg: cfg, logger: logger}
}

// Run polls until ctx is canceled. The first cycle starts immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.kick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.kick(ctx)
		}
	}
}

// Latest returns the most recent completed result, or nil before the first
// successful poll.
func (p *Poller) Latest() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// kick starts a new poll cycle, canceling any still-running predecessor.
func (p *Poller) kick(ctx context.Context) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancelPrev != nil {
		p.cancelPrev()
		if p.inFlight {
			metrics.PollsDiscarded.Inc()
			p.logger.Debug("superseding unfinished poll")
		}
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancelPrev = cancel
	p.inFlight = true
	p.mu.Unlock()

	go p.poll(pollCtx, gen)
}

func (p *Poller) poll(ctx context.Context, gen uint64) {
	start := time.Now()
	result, err := Build(ctx, p.source, BuildOptions{
		Range:             p.cfg.Range,
		ObservationsTable: p.cfg.ObservationsTable,
		EventsTable:       p.cfg.EventsTable,
		Series:            p.cfg.Series,
		Now:               p.cfg.Now,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		// A newer cycle took over while we were fetching.
		return
	}
	p.inFlight = false

	if err != nil {
		p.logger.Warn("poll failed", zap.String("range", p.cfg.Range), zap.Error(err))
		return
	}
	p.latest = result
	metrics.PollDuration.WithLabelValues(p.cfg.Range).Observe(time.Since(start).Seconds())
	p.logger.Debug("poll complete",
		zap.String("range", p.cfg.Range),
		zap.Int("buckets", len(result.Series)),
		zap.Duration("took", time.Since(start)),
	)
}

package poller

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/mqttscope/mqttscope/pkg/pgrest"
	"github.com/mqttscope/mqttscope/pkg/timeseries"
)

// Series names of the bucketed event chart.
const (
	SeriesConnects    = "connects"
	SeriesDisconnects = "disconnects"
	SeriesNet         = "net"
)

// BuildOptions selects what one chart-data build covers.
type BuildOptions struct {
	Range             string
	ObservationsTable string
	EventsTable       string
	Series            []string
	Now               func() time.Time
}

// Result is the chart-ready payload for one window: the metric series on
// its bucket axis and connect/disconnect counts on the event axis.
type Result struct {
	Range     string                 `json:"range"`
	Step      int                    `json:"step"`
	Series    timeseries.ChartSeries `json:"series"`
	Events    timeseries.ChartSeries `json:"events"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Build runs the full shaping pipeline once: pick a step for the range,
// build the complete axis, fetch the window, merge sparse rows onto the
// axis, and convert all-default buckets into gaps.
func Build(ctx context.Context, source DataSource, opts BuildOptions) (*Result, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	obsTable := cmp.Or(opts.ObservationsTable, pgrest.ObservationsTable)
	eventsTable := cmp.Or(opts.EventsTable, pgrest.EventsTable)
	seriesNames := opts.Series
	if len(seriesNames) == 0 {
		seriesNames = []string{"received", "sent"}
	}

	minutes := timeseries.RangeMinutes(opts.Range)
	step := timeseries.SelectStep(minutes)
	window := timeseries.LastWindow(minutes, now().UTC())

	observations, err := source.Observations(ctx, obsTable, window)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s series: %w", opts.Range, err)
	}
	axis := timeseries.BuildAxis(window, step)
	series := timeseries.InsertGaps(
		timeseries.Merge(axis, observations, seriesNames, 0),
		seriesNames, 0,
	)

	events, err := source.Events(ctx, eventsTable, window)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s events: %w", opts.Range, err)
	}

	return &Result{
		Range:     opts.Range,
		Step:      step,
		Series:    series,
		Events:    eventSeries(window, events, minutes),
		FetchedAt: now().UTC(),
	}, nil
}

// BuildEvents fetches and buckets only the connect/disconnect chart for a
// range, for endpoints that don't need the metric series.
func BuildEvents(ctx context.Context, source DataSource, opts BuildOptions) (timeseries.ChartSeries, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	minutes := timeseries.RangeMinutes(opts.Range)
	window := timeseries.LastWindow(minutes, now().UTC())

	events, err := source.Events(ctx, cmp.Or(opts.EventsTable, pgrest.EventsTable), window)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s events: %w", opts.Range, err)
	}
	return eventSeries(window, events, minutes), nil
}

// eventSeries folds events into buckets and spreads them over a complete
// axis, so the chart shows explicit zero bars where nothing happened.
func eventSeries(window timeseries.Window, events []timeseries.Event, windowMinutes float64) timeseries.ChartSeries {
	granularity := timeseries.GranularityForRange(windowMinutes)
	buckets := timeseries.BucketEvents(events, granularity)

	observations := make([]timeseries.Observation, 0, 3*len(buckets))
	for start, counts := range buckets {
		at := time.Unix(start, 0).UTC()
		observations = append(observations,
			timeseries.Observation{Timestamp: at, Series: SeriesConnects, Value: float64(counts.Connects)},
			timeseries.Observation{Timestamp: at, Series: SeriesDisconnects, Value: float64(counts.Disconnects)},
			timeseries.Observation{Timestamp: at, Series: SeriesNet, Value: float64(counts.Net())},
		)
	}

	axis := timeseries.BuildAxis(window, granularity)
	names := []string{SeriesConnects, SeriesDisconnects, SeriesNet}
	return timeseries.Merge(axis, observations, names, 0)
}

package pgrest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mqttscope/mqttscope/pkg/metrics"
	"github.com/mqttscope/mqttscope/pkg/timeseries"
	"go.uber.org/zap"
)

// Default tables written by the broker exporters.
const (
	ObservationsTable = "broker_metrics"
	EventsTable       = "session_events"
)

// Observations fetches the (timestamp, series, value) rows of a window from
// the given table, in ascending timestamp order. Rows with an unparseable
// timestamp or a non-numeric value are skipped and counted, not fatal; the
// merge downstream fills the holes they leave.
func (c *Client) Observations(ctx context.Context, table string, window timeseries.Window) ([]timeseries.Observation, error) {
	rows, err := c.Rows(ctx, table, windowQuery(window))
	if err != nil {
		metrics.FetchErrors.WithLabelValues(table).Inc()
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}

	observations := make([]timeseries.Observation, 0, len(rows))
	for _, row := range rows {
		ts, err := rowTime(row, "ts")
		if err != nil {
			c.skipRow(table, "bad_timestamp", err)
			continue
		}
		series, ok := row["series"].(string)
		if !ok || series == "" {
			c.skipRow(table, "missing_series", nil)
			continue
		}
		value, ok := rowNumber(row, "value")
		if !ok {
			c.skipRow(table, "bad_value", nil)
			continue
		}
		observations = append(observations, timeseries.Observation{
			Timestamp: ts,
			Series:    series,
			Value:     value,
		})
	}
	return observations, nil
}

// Events fetches connect/disconnect rows of a window from the given table.
// Unrecognized action strings map to EventUnknown and are kept; rows with a
// bad timestamp or a negative count are skipped.
func (c *Client) Events(ctx context.Context, table string, window timeseries.Window) ([]timeseries.Event, error) {
	rows, err := c.Rows(ctx, table, windowQuery(window))
	if err != nil {
		metrics.FetchErrors.WithLabelValues(table).Inc()
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	events := make([]timeseries.Event, 0, len(rows))
	for _, row := range rows {
		ts, err := rowTime(row, "ts")
		if err != nil {
			c.skipRow(table, "bad_timestamp", err)
			continue
		}
		action, _ := row["action"].(string)
		count, ok := rowNumber(row, "count")
		if !ok {
			count = 1 // one row, one event unless the exporter pre-aggregated
		}
		if count < 0 {
			c.skipRow(table, "negative_count", nil)
			continue
		}
		events = append(events, timeseries.Event{
			Timestamp: ts,
			Kind:      timeseries.ParseEventKind(action),
			Count:     int(count),
		})
	}
	return events, nil
}

func (c *Client) skipRow(table, reason string, err error) {
	metrics.SkippedRows.WithLabelValues(table, reason).Inc()
	c.logger.Warn("skipping malformed row",
		zap.String("table", table),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// windowQuery builds the PostgREST filters selecting a time window.
func windowQuery(window timeseries.Window) url.Values {
	q := url.Values{}
	q.Add("ts", "gte."+window.From.UTC().Format(time.RFC3339))
	q.Add("ts", "lte."+window.To.UTC().Format(time.RFC3339))
	q.Set("order", "ts.asc")
	return q
}

// rowTime parses a timestamp column that may arrive as an RFC 3339 string
// or a Unix-seconds number.
func rowTime(row map[string]any, column string) (time.Time, error) {
	switch v := row[column].(type) {
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("column %q is %T, not a timestamp", column, v)
	}
}

func rowNumber(row map[string]any, column string) (float64, bool) {
	v, ok := row[column].(float64)
	return v, ok
}

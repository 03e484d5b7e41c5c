package timeseries

import "time"

// Window is the half-open-ish time range a series is materialized over.
// Both ends are inclusive for bucket boundaries that land on them.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LastWindow returns the window ending now and spanning the given number of
// minutes.
func LastWindow(minutes float64, now time.Time) Window {
	return Window{
		From: now.Add(-time.Duration(minutes * float64(time.Minute))),
		To:   now,
	}
}

// Bucket is a single point on a chart's X-axis. Timestamp is always a
// multiple of the step relative to the Unix epoch.
type Bucket struct {
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
}

// BuildAxis returns the complete, evenly spaced bucket axis for the window
// at the given step, independent of data availability. The first bucket is
// the first step boundary at or after window.From; buckets are emitted while
// they are <= window.To. An empty axis (From already past the last boundary
// before To) is valid.
//
// BuildAxis panics on a non-positive step or an inverted window.
func BuildAxis(window Window, step int) []Bucket {
	if step <= 0 {
		panic("timeseries: step must be positive")
	}
	if window.From.After(window.To) {
		panic("timeseries: window from after to")
	}

	s := int64(step)
	start := ceilDiv(window.From.Unix(), s) * s
	end := window.To.Unix()

	var axis []Bucket
	for ts := start; ts <= end; ts += s {
		t := time.Unix(ts, 0).UTC()
		axis = append(axis, Bucket{Timestamp: t, Label: bucketLabel(t, step)})
	}
	return axis
}

// bucketLabel renders a bucket timestamp for the chart axis. The format
// only depends on the inputs, so rebuilding an axis yields identical labels.
func bucketLabel(t time.Time, step int) string {
	switch {
	case step < 60:
		return t.Format("15:04:05")
	case step <= 3600:
		return t.Format("15:04")
	default:
		return t.Format("Jan 2 15:04")
	}
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

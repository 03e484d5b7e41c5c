// Package timeseries shapes raw broker telemetry into chart-ready series.
//
// It turns sparse rows from the data API (per-interval message counts,
// connect/disconnect events) into dense, evenly spaced series: a step size
// is chosen for the requested range, a complete bucket axis is built for
// the window, and observations are merged onto that axis with default-fill
// and optional gap insertion.
//
// All functions are pure and safe for concurrent use; each call owns its
// inputs and outputs. Invalid windows and non-positive steps are programmer
// errors and panic.
package timeseries

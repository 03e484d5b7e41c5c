package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAxis(t *testing.T) []Bucket {
	t.Helper()
	return BuildAxis(Window{From: ts("2024-03-01T10:00:00Z"), To: ts("2024-03-01T10:10:00Z")}, 300)
}

func TestMerge(t *testing.T) {
	axis := testAxis(t)
	names := []string{"received", "sent"}

	observations := []Observation{
		{Timestamp: ts("2024-03-01T10:00:00Z"), Series: "received", Value: 12},
		{Timestamp: ts("2024-03-01T10:05:00Z"), Series: "received", Value: 7},
		{Timestamp: ts("2024-03-01T10:05:00Z"), Series: "sent", Value: 3},
	}

	series := Merge(axis, observations, names, 0)
	require.Len(t, series, len(axis))

	assert.Equal(t, 12.0, *series[0].Values["received"])
	assert.Equal(t, 0.0, *series[0].Values["sent"]) // default fill
	assert.Equal(t, 7.0, *series[1].Values["received"])
	assert.Equal(t, 3.0, *series[1].Values["sent"])
	assert.Equal(t, 0.0, *series[2].Values["received"])
	assert.Equal(t, 0.0, *series[2].Values["sent"])
}

// Output length tracks the axis, never the observations.
func TestMergeLengthInvariance(t *testing.T) {
	axis := testAxis(t)
	names := []string{"received"}

	tests := []struct {
		name         string
		observations []Observation
	}{
		{name: "no observations", observations: nil},
		{name: "one observation", observations: []Observation{
			{Timestamp: ts("2024-03-01T10:05:00Z"), Series: "received", Value: 1},
		}},
		{name: "observations off the axis", observations: []Observation{
			{Timestamp: ts("2024-03-01T09:00:00Z"), Series: "received", Value: 1},
			{Timestamp: ts("2024-03-01T11:00:00Z"), Series: "received", Value: 2},
			{Timestamp: ts("2024-03-01T10:02:13Z"), Series: "received", Value: 3},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := Merge(axis, tt.observations, names, 0)
			assert.Len(t, series, len(axis))
		})
	}

	assert.Empty(t, Merge(nil, nil, names, 0))
}

// Duplicate (timestamp, series) keys resolve to the last observation in
// input order, matching the data source's map-insertion behavior.
func TestMergeLastWriteWins(t *testing.T) {
	axis := testAxis(t)
	observations := []Observation{
		{Timestamp: ts("2024-03-01T10:00:00Z"), Series: "received", Value: 5},
		{Timestamp: ts("2024-03-01T10:00:00Z"), Series: "received", Value: 9},
	}

	series := Merge(axis, observations, []string{"received"}, 0)
	assert.Equal(t, 9.0, *series[0].Values["received"])
}

func TestInsertGaps(t *testing.T) {
	axis := testAxis(t)
	names := []string{"received", "sent"}
	observations := []Observation{
		{Timestamp: ts("2024-03-01T10:05:00Z"), Series: "sent", Value: 4},
	}

	series := InsertGaps(Merge(axis, observations, names, 0), names, 0)

	// 10:00 and 10:10 have every series at the default: gaps.
	assert.Nil(t, series[0].Values["received"])
	assert.Nil(t, series[0].Values["sent"])
	assert.Nil(t, series[2].Values["received"])
	assert.Nil(t, series[2].Values["sent"])

	// 10:05 has one real value; its zero for "received" is an observed zero
	// and stays.
	require.NotNil(t, series[1].Values["received"])
	assert.Equal(t, 0.0, *series[1].Values["received"])
	assert.Equal(t, 4.0, *series[1].Values["sent"])
}

func TestInsertGapsNonZeroDefault(t *testing.T) {
	axis := testAxis(t)[:1]
	names := []string{"received"}

	series := InsertGaps(Merge(axis, nil, names, -1), names, -1)
	assert.Nil(t, series[0].Values["received"])
}

package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStep(t *testing.T) {
	tests := []struct {
		name    string
		minutes float64
		want    int
	}{
		{name: "15 minutes", minutes: 15, want: 15},
		{name: "1 hour", minutes: 60, want: 60},
		{name: "6 hours", minutes: 360, want: 300},
		{name: "24 hours snaps to 30m rung", minutes: 1440, want: 1800},
		{name: "7 days", minutes: 7 * 1440, want: 14400},
		{name: "30 days", minutes: 30 * 1440, want: 21600},
		{name: "huge window clamps to largest rung", minutes: 365 * 1440, want: 21600},
		{name: "tiny window uses smallest rung", minutes: 1, want: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStep(tt.minutes))
		})
	}
}

func TestSelectStepMonotonic(t *testing.T) {
	prev := 0
	for minutes := float64(1); minutes <= 60*1440; minutes *= 1.5 {
		step := SelectStep(minutes)
		assert.GreaterOrEqual(t, step, prev, "step shrank at %v minutes", minutes)
		prev = step
	}
}

func TestSelectStepPanicsOnNonPositiveWindow(t *testing.T) {
	assert.Panics(t, func() { SelectStep(0) })
	assert.Panics(t, func() { SelectStep(-10) })
}

func TestRangeMinutes(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{label: "15m", want: 15},
		{label: "24h", want: 1440},
		{label: "7d", want: 10080},
		{label: "90m", want: 90},   // suffix parse
		{label: "36h", want: 2160}, // suffix parse
		{label: "2d", want: 2880},  // suffix parse
		{label: "last-12h", want: 720},
		{label: "bogus", want: 60}, // fallback
		{label: "", want: 60},
		{label: "0h", want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, RangeMinutes(tt.label))
		})
	}
}

func TestStepForRange(t *testing.T) {
	assert.Equal(t, 1800, StepForRange("24h"))
	assert.Equal(t, 60, StepForRange("not-a-range")) // 60m fallback -> 1m step
}

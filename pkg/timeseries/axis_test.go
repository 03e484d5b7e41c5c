package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildAxis(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		step int
		want []string
	}{
		{
			name: "ten minute window at five minute step",
			from: "2024-03-01T10:00:00Z",
			to:   "2024-03-01T10:10:00Z",
			step: 300,
			want: []string{"2024-03-01T10:00:00Z", "2024-03-01T10:05:00Z", "2024-03-01T10:10:00Z"},
		},
		{
			name: "from rounds up to next boundary",
			from: "2024-03-01T10:01:30Z",
			to:   "2024-03-01T10:11:00Z",
			step: 300,
			want: []string{"2024-03-01T10:05:00Z", "2024-03-01T10:10:00Z"},
		},
		{
			name: "window narrower than step is empty",
			from: "2024-03-01T10:01:00Z",
			to:   "2024-03-01T10:03:00Z",
			step: 300,
			want: nil,
		},
		{
			name: "single bucket when from is on a boundary",
			from: "2024-03-01T10:00:00Z",
			to:   "2024-03-01T10:00:00Z",
			step: 60,
			want: []string{"2024-03-01T10:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axis := BuildAxis(Window{From: ts(tt.from), To: ts(tt.to)}, tt.step)
			require.Len(t, axis, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, ts(want), axis[i].Timestamp)
				assert.Equal(t, int64(0), axis[i].Timestamp.Unix()%int64(tt.step), "bucket not aligned to step")
			}
		})
	}
}

// Axis length follows floor((to-start)/step)+1 for every window that has at
// least one boundary inside it.
func TestBuildAxisCompleteness(t *testing.T) {
	from := ts("2024-03-01T00:00:17Z")
	for _, step := range []int{15, 60, 300, 1800, 21600} {
		for _, span := range []time.Duration{time.Minute, time.Hour, 26 * time.Hour} {
			window := Window{From: from, To: from.Add(span)}
			axis := BuildAxis(window, step)

			s := int64(step)
			start := ceilDiv(window.From.Unix(), s) * s
			if start > window.To.Unix() {
				assert.Empty(t, axis)
				continue
			}
			want := (window.To.Unix()-start)/s + 1
			assert.Equal(t, int(want), len(axis), "step=%d span=%s", step, span)
		}
	}
}

func TestBuildAxisIdempotent(t *testing.T) {
	window := Window{From: ts("2024-03-01T10:00:00Z"), To: ts("2024-03-02T10:00:00Z")}
	first := BuildAxis(window, 1800)
	second := BuildAxis(window, 1800)
	assert.Equal(t, first, second)
}

func TestBuildAxisPanicsOnBadInput(t *testing.T) {
	window := Window{From: ts("2024-03-01T10:00:00Z"), To: ts("2024-03-01T11:00:00Z")}
	assert.Panics(t, func() { BuildAxis(window, 0) })
	assert.Panics(t, func() { BuildAxis(window, -60) })
	assert.Panics(t, func() {
		BuildAxis(Window{From: window.To, To: window.From}, 60)
	})
}

func TestBucketLabelByStep(t *testing.T) {
	at := ts("2024-03-01T10:05:30Z")
	assert.Equal(t, "10:05:30", bucketLabel(at, 15))
	assert.Equal(t, "10:05", bucketLabel(at, 300))
	assert.Equal(t, "Mar 1 10:05", bucketLabel(at, 7200))
}

func TestLastWindow(t *testing.T) {
	now := ts("2024-03-01T12:00:00Z")
	w := LastWindow(90, now)
	assert.Equal(t, ts("2024-03-01T10:30:00Z"), w.From)
	assert.Equal(t, now, w.To)
}

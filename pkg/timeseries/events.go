package timeseries

import "time"

// EventKind classifies a broker session event. The data source reports
// free-form action strings; anything unrecognized maps to EventUnknown and
// is carried but not counted.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventConnect
	EventDisconnect
)

// ParseEventKind maps an action string from the data source onto the closed
// event enum.
func ParseEventKind(action string) EventKind {
	switch action {
	case "connect", "connected":
		return EventConnect
	case "disconnect", "disconnected":
		return EventDisconnect
	default:
		return EventUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is a discrete occurrence reported by the broker exporter: count
// clients connected or disconnected at a timestamp.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	Count     int       `json:"count"`
}

// EventCounts accumulates the events of one bucket.
type EventCounts struct {
	Connects    int `json:"connects"`
	Disconnects int `json:"disconnects"`
}

// Net is the session count change over the bucket, derived rather than
// stored so it can never drift from its parts.
func (c EventCounts) Net() int { return c.Connects - c.Disconnects }

// Event bucketing granularities, in seconds. Shorter ranges get finer
// granularity; see GranularityForRange.
const (
	GranularityFine   = 300
	GranularityMedium = 900
	GranularityCoarse = 3600
)

// GranularityForRange picks the event bucket width for a window length:
// 5-minute buckets up to an hour, 15-minute up to six hours, hourly beyond.
func GranularityForRange(windowMinutes float64) int {
	switch {
	case windowMinutes <= 60:
		return GranularityFine
	case windowMinutes <= 360:
		return GranularityMedium
	default:
		return GranularityCoarse
	}
}

// BucketEvents folds discrete events into per-bucket counters, truncating
// each event's timestamp down to the start of its containing bucket. Buckets
// with no events are not created here; merge the result onto a BuildAxis
// axis when a gap-free chart is wanted.
//
// BucketEvents panics on a non-positive bucket width or a negative count.
func BucketEvents(events []Event, bucketSeconds int) map[int64]EventCounts {
	if bucketSeconds <= 0 {
		panic("timeseries: bucket width must be positive")
	}

	s := int64(bucketSeconds)
	buckets := make(map[int64]EventCounts)
	for _, e := range events {
		if e.Count < 0 {
			panic("timeseries: negative event count")
		}
		start := floorDiv(e.Timestamp.Unix(), s) * s
		c := buckets[start]
		switch e.Kind {
		case EventConnect:
			c.Connects += e.Count
		case EventDisconnect:
			c.Disconnects += e.Count
		}
		buckets[start] = c
	}
	return buckets
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) != (b > 0) {
		q--
	}
	return q
}

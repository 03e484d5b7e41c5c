package timeseries

import (
	"math"
	"regexp"
	"strconv"
)

// targetPoints is the number of rendered points a chart should stay near,
// regardless of the requested window.
const targetPoints = 80

// stepLadder holds the canonical bucket widths, in seconds, ascending.
// Snapping to these keeps repeated queries for overlapping windows aligned
// on the same bucket boundaries, so server-side aggregates can be reused.
var stepLadder = []int{15, 30, 60, 120, 300, 600, 900, 1800, 3600, 7200, 14400, 21600}

// SelectStep returns the bucket width in seconds for a window of the given
// length in minutes. The raw width windowMinutes*60/targetPoints is rounded
// up to the next rung of the ladder; windows wider than the largest rung
// covers are clamped to 6h buckets.
//
// SelectStep panics if windowMinutes is not positive.
func SelectStep(windowMinutes float64) int {
	if windowMinutes <= 0 {
		panic("timeseries: window minutes must be positive")
	}
	raw := int(math.Ceil(windowMinutes * 60 / targetPoints))
	for _, step := range stepLadder {
		if step >= raw {
			return step
		}
	}
	return stepLadder[len(stepLadder)-1]
}

// namedRanges maps the range labels the dashboard offers to window lengths
// in minutes.
var namedRanges = map[string]float64{
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"3h":  180,
	"6h":  360,
	"12h": 720,
	"24h": 1440,
	"48h": 2880,
	"7d":  7 * 1440,
	"30d": 30 * 1440,
}

var rangeSuffix = regexp.MustCompile(`(\d+)([mhd])$`)

// RangeMinutes maps a range label such as "24h" or "7d" to minutes. Labels
// not in the known set are parsed from a trailing <number><unit> suffix;
// anything unparseable falls back to 60 minutes. Unknown labels are treated
// as a display concern, not an error.
func RangeMinutes(label string) float64 {
	if minutes, ok := namedRanges[label]; ok {
		return minutes
	}
	m := rangeSuffix.FindStringSubmatch(label)
	if m == nil {
		return 60
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 60
	}
	switch m[2] {
	case "m":
		return float64(n)
	case "h":
		return float64(n) * 60
	default: // "d"
		return float64(n) * 1440
	}
}

// StepForRange is a convenience wrapper combining RangeMinutes and SelectStep.
func StepForRange(label string) int {
	return SelectStep(RangeMinutes(label))
}

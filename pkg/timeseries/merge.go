package timeseries

import "time"

// Observation is one raw data point from the data API: a value for a named
// series at a timestamp.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Series    string    `json:"series"`
	Value     float64   `json:"value"`
}

// Point is one entry of a ChartSeries: a bucket plus the value of every
// tracked series at that bucket. A nil value marks a gap (no data recorded),
// which charting libraries render as a break in the line rather than a dip
// to zero.
type Point struct {
	Timestamp time.Time           `json:"timestamp"`
	Label     string              `json:"label"`
	Values    map[string]*float64 `json:"values"`
}

// ChartSeries is one point per bucket of the axis it was merged onto, in
// ascending timestamp order. Its length always equals the axis length.
type ChartSeries []Point

type obsKey struct {
	ts     int64
	series string
}

// Merge maps sparse observations onto a complete axis. Every bucket gets a
// value for every name in seriesNames; buckets with no matching observation
// get defaultValue. When several observations share a (timestamp, series)
// key the last one in input order wins, matching the map-insertion behavior
// of the data source.
//
// Data sparsity never changes the output shape: len(result) == len(axis).
func Merge(axis []Bucket, observations []Observation, seriesNames []string, defaultValue float64) ChartSeries {
	index := make(map[obsKey]float64, len(observations))
	for _, o := range observations {
		index[obsKey{ts: o.Timestamp.Unix(), series: o.Series}] = o.Value
	}

	series := make(ChartSeries, 0, len(axis))
	for _, b := range axis {
		values := make(map[string]*float64, len(seriesNames))
		for _, name := range seriesNames {
			v, ok := index[obsKey{ts: b.Timestamp.Unix(), series: name}]
			if !ok {
				v = defaultValue
			}
			values[name] = ptr(v)
		}
		series = append(series, Point{Timestamp: b.Timestamp, Label: b.Label, Values: values})
	}
	return series
}

// InsertGaps replaces a bucket's values with gaps (nil) when every tracked
// series is simultaneously at defaultValue, i.e. the bucket recorded no data
// at all. A real zero alongside non-default values in the same bucket is
// kept as a zero. The series is modified in place and returned for chaining.
func InsertGaps(series ChartSeries, seriesNames []string, defaultValue float64) ChartSeries {
	for i := range series {
		if len(seriesNames) == 0 {
			continue
		}
		allDefault := true
		for _, name := range seriesNames {
			v, ok := series[i].Values[name]
			if !ok || v == nil || *v != defaultValue {
				allDefault = false
				break
			}
		}
		if allDefault {
			for _, name := range seriesNames {
				series[i].Values[name] = nil
			}
		}
	}
	return series
}

func ptr(v float64) *float64 { return &v }

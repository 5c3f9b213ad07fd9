// Package reading normalizes the backend's reading payloads into a uniform
// sequence of DataPoints.
package reading

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// InvalidTimestampMs marks a point whose timestamp could not be parsed.
const InvalidTimestampMs int64 = math.MinInt64

// DataPoint is one normalized reading. TimestampMs mirrors Timestamp so hot
// paths can compare integers.
type DataPoint struct {
	Reading        *float64  `json:"reading"`
	WaterDischarge *float64  `json:"waterDischarge"`
	Timestamp      time.Time `json:"timestamp"`
	TimestampMs    int64     `json:"timestampMs"`
	IsDeleted      bool      `json:"isDeleted"`
}

// Valid reports whether the point carries a parsed timestamp.
func (p DataPoint) Valid() bool {
	return p.TimestampMs != InvalidTimestampMs
}

func newDataPoint(ts string, loc *time.Location, height, discharge *float64, deleted bool) DataPoint {
	p := DataPoint{
		Reading:        height,
		WaterDischarge: discharge,
		IsDeleted:      deleted,
		TimestampMs:    InvalidTimestampMs,
	}
	if t, ok := ParseTimestamp(ts, loc); ok {
		p.Timestamp = t
		p.TimestampMs = t.UnixMilli()
	} else {
		log.Warn().Str("timestamp", ts).Msg("Unparseable reading timestamp, emitting invalid point")
	}
	return p
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an RFC3339 instant, or a local wall-clock time
// interpreted in loc. A nil loc means UTC.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Ascending returns a copy of points ordered oldest first. Invalid points sort
// first.
func Ascending(points []DataPoint) []DataPoint {
	out := make([]DataPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	return out
}

// Descending returns a copy of points ordered most recent first. Invalid
// points sort last.
func Descending(points []DataPoint) []DataPoint {
	out := make([]DataPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs > out[j].TimestampMs
	})
	return out
}

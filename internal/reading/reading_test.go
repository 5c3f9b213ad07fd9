package reading

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"testing/quick"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

func TestParseTimestamp(t *testing.T) {
	chicago := mustLoad(t, "America/Chicago")

	tests := []struct {
		name   string
		input  string
		wantOK bool
		wantMs int64
	}{
		{
			name:   "rfc3339 utc",
			input:  "2024-04-01T12:00:00Z",
			wantOK: true,
			wantMs: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		},
		{
			name:   "rfc3339 with offset",
			input:  "2024-04-01T07:00:00-05:00",
			wantOK: true,
			wantMs: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		},
		{
			name:   "local wall clock in zone",
			input:  "2024-04-01T07:00:00",
			wantOK: true,
			wantMs: time.Date(2024, 4, 1, 7, 0, 0, 0, chicago).UnixMilli(),
		},
		{
			name:   "noaa minute format",
			input:  "2024-04-01 07:00",
			wantOK: true,
			wantMs: time.Date(2024, 4, 1, 7, 0, 0, 0, chicago).UnixMilli(),
		},
		{name: "empty", input: "", wantOK: false},
		{name: "garbage", input: "yesterday-ish", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input, chicago)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMs, got.UnixMilli())
				assert.Equal(t, chicago, got.Location())
			}
		})
	}
}

func TestFromReadings(t *testing.T) {
	readings := []models.GaugeReading{
		{ID: 1, Timestamp: "2024-04-01T12:00:00Z", WaterHeight: float64Ptr(3.5), WaterDischarge: float64Ptr(120)},
		{ID: 2, Timestamp: "2024-04-01T12:15:00Z", WaterHeight: float64Ptr(3.7), IsDeleted: true},
	}

	points := FromReadings(readings, time.UTC)

	require.Len(t, points, 2)
	assert.Equal(t, 3.5, *points[0].Reading)
	assert.Equal(t, 120.0, *points[0].WaterDischarge)
	assert.False(t, points[0].IsDeleted)
	assert.True(t, points[1].IsDeleted)
	assert.Nil(t, points[1].WaterDischarge)
	assert.Equal(t, time.Date(2024, 4, 1, 12, 15, 0, 0, time.UTC).UnixMilli(), points[1].TimestampMs)
}

// Malformed timestamps are kept as invalid points rather than dropped; the
// consumer decides what to do with them.
func TestMalformedTimestampIsEmittedAsInvalidPoint(t *testing.T) {
	readings := []models.GaugeReading{
		{Timestamp: "2024-04-01T12:00:00Z", WaterHeight: float64Ptr(1)},
		{Timestamp: "not-a-time", WaterHeight: float64Ptr(2)},
	}

	points := FromReadings(readings, time.UTC)

	require.Len(t, points, 2)
	assert.True(t, points[0].Valid())
	assert.False(t, points[1].Valid())
	assert.Equal(t, InvalidTimestampMs, points[1].TimestampMs)
	assert.True(t, points[1].Timestamp.IsZero())
	assert.Equal(t, 2.0, *points[1].Reading)
}

func TestFromColumnsPadsShortColumns(t *testing.T) {
	cols := models.ColumnarReadings{
		Timestamps:   []string{"2024-04-01T12:00:00Z", "2024-04-01T12:15:00Z", "2024-04-01T12:30:00Z"},
		WaterHeights: []*float64{float64Ptr(1), float64Ptr(2)},
		Discharges:   []*float64{float64Ptr(10), float64Ptr(20), float64Ptr(30)},
	}

	points := FromColumns(cols, time.UTC)

	require.Len(t, points, 3)
	assert.Nil(t, points[2].Reading)
	assert.Equal(t, 30.0, *points[2].WaterDischarge)
}

func TestFromColumnsRoundTripProperty(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	property := func(offsets []uint16) bool {
		cols := models.ColumnarReadings{}
		for i, off := range offsets {
			ts := base.Add(time.Duration(off) * time.Minute).Format(time.RFC3339)
			cols.Timestamps = append(cols.Timestamps, ts)
			cols.WaterHeights = append(cols.WaterHeights, float64Ptr(float64(i)))
			cols.Discharges = append(cols.Discharges, float64Ptr(float64(off)))
		}

		points := FromColumns(cols, time.UTC)
		if len(points) != len(offsets) {
			return false
		}
		for i, p := range points {
			parsed, err := time.Parse(time.RFC3339, cols.Timestamps[i])
			if err != nil || p.TimestampMs != parsed.UnixMilli() {
				return false
			}
			if *p.Reading != float64(i) {
				return false
			}
		}
		return true
	}

	cfg := &quick.Config{MaxCount: 200, Rand: rand.New(rand.NewSource(7))}
	require.NoError(t, quick.Check(property, cfg))
}

func TestOrdering(t *testing.T) {
	points := FromReadings([]models.GaugeReading{
		{Timestamp: "2024-04-01T12:30:00Z"},
		{Timestamp: "garbage"},
		{Timestamp: "2024-04-01T12:00:00Z"},
	}, time.UTC)

	asc := Ascending(points)
	desc := Descending(points)

	assert.False(t, asc[0].Valid())
	assert.True(t, asc[1].TimestampMs < asc[2].TimestampMs)
	assert.True(t, desc[0].TimestampMs > desc[1].TimestampMs)
	assert.False(t, desc[2].Valid())
	// Inputs are not reordered in place.
	assert.Equal(t, "2024-04-01T12:30:00Z", points[0].Timestamp.Format(time.RFC3339))
}

func TestPayloadUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind PayloadKind
		wantLen  int
	}{
		{
			name:     "object list",
			body:     `[{"id":1,"timestamp":"2024-04-01T12:00:00Z","waterHeight":1.5,"isDeleted":false}]`,
			wantKind: PayloadObjects,
			wantLen:  1,
		},
		{
			name:     "columnar",
			body:     `{"timestamps":["2024-04-01T12:00:00Z","2024-04-01T12:15:00Z"],"waterHeights":[1,2],"discharges":[10,20],"dischargeTrendRate":0.5}`,
			wantKind: PayloadColumnar,
			wantLen:  2,
		},
		{
			name:     "prediction",
			body:     `{"forecastId":"F-1","timestamps":["2024-04-01T12:00:00Z"],"waterHeights":[1],"discharges":[10],"peaks":[{"ts":"2024-04-01T12:00:00Z","cfs":10,"ft":1}]}`,
			wantKind: PayloadPrediction,
			wantLen:  1,
		},
		{
			name:     "null",
			body:     `null`,
			wantKind: PayloadEmpty,
			wantLen:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Payload
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Len(t, p.DataPoints(time.UTC), tt.wantLen)
		})
	}
}

func TestPayloadPredictionKeepsPeaks(t *testing.T) {
	body := `{"F":{"forecastId":"F-1","noaaSiteId":"ABCD1","timestamps":["2024-04-01T12:00:00Z"],"discharges":[10],"peaks":[{"ts":"2024-04-01T18:00:00Z","cfs":1200,"ft":14.2}]}}`

	var payloads map[string]Payload
	require.NoError(t, json.Unmarshal([]byte(body), &payloads))

	p := payloads["F"]
	require.Equal(t, PayloadPrediction, p.Kind)
	assert.Equal(t, "ABCD1", p.Prediction.NoaaSiteID)
	require.Len(t, p.Prediction.Peaks, 1)
	assert.Equal(t, 1200.0, *p.Prediction.Peaks[0].Cfs)

	cols, ok := p.Columns()
	require.True(t, ok)
	assert.Equal(t, 1, cols.Len())
}

func TestPayloadRejectsScalars(t *testing.T) {
	var p Payload
	err := json.Unmarshal([]byte(`42`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected payload")
}

func TestPayloadMapSkipsMalformedEntries(t *testing.T) {
	var m PayloadMap
	require.NoError(t, json.Unmarshal([]byte(`{
		"USGS-38":{"timestamps":["2024-04-01T12:00:00Z"],"waterHeights":[2.5]},
		"USGS-22":42,
		"USGS-23":{"timestamps":"not-a-list"}
	}`), &m))

	require.Len(t, m, 3)
	assert.Equal(t, PayloadColumnar, m["USGS-38"].Kind)
	assert.Equal(t, PayloadEmpty, m["USGS-22"].Kind)
	assert.Equal(t, PayloadEmpty, m["USGS-23"].Kind)

	var missing PayloadMap
	require.NoError(t, json.Unmarshal([]byte(`null`), &missing))
	assert.Nil(t, missing)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &missing))
}

func TestPayloadMarshalRoundTrip(t *testing.T) {
	in := Payload{Kind: PayloadColumnar, Columnar: &models.ColumnarReadings{Timestamps: []string{"2024-04-01T12:00:00Z"}}}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Payload
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, PayloadColumnar, out.Kind, fmt.Sprintf("payload %s", data))
}

func TestObjectPayloadColumns(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"timestamp":"2024-04-01T12:00:00Z","waterHeight":2.5,"waterDischarge":300}]`), &p))

	cols, ok := p.Columns()

	require.True(t, ok)
	assert.Equal(t, []string{"2024-04-01T12:00:00Z"}, cols.Timestamps)
	assert.Equal(t, 300.0, *cols.Discharges[0])

	_, ok = Payload{}.Columns()
	assert.False(t, ok)
}

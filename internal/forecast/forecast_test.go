package forecast

import (
	"testing"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func int64Ptr(i int64) *int64 {
	return &i
}

var anchor = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

// hoursAgo builds a newest-first series with one point per hour and the given
// discharge overrides; everything else is 100 cfs.
func hoursAgo(hours int, spikes map[int]float64) []reading.DataPoint {
	points := make([]reading.DataPoint, 0, hours+1)
	for h := 0; h <= hours; h++ {
		discharge := 100.0
		if v, ok := spikes[h]; ok {
			discharge = v
		}
		ts := anchor.Add(-time.Duration(h) * time.Hour)
		points = append(points, reading.DataPoint{
			WaterDischarge: float64Ptr(discharge),
			Timestamp:      ts,
			TimestampMs:    ts.UnixMilli(),
		})
	}
	return points
}

func TestMaxReadingWindow(t *testing.T) {
	points := hoursAgo(30, map[int]float64{10: 500, 26: 900})

	got, ok := maxReading(points, anchor.Add(-MaxReadingWindow).UnixMilli())

	require.True(t, ok)
	assert.Equal(t, 500.0, *got.WaterDischarge)
	assert.Equal(t, anchor.Add(-10*time.Hour), got.Timestamp)
}

func TestMaxReadingStopsAtCutoff(t *testing.T) {
	points := hoursAgo(25, nil)
	// out of order on purpose: a later point past the first stale one must
	// never be reached
	late := anchor.Add(-time.Hour)
	points = append(points, reading.DataPoint{
		WaterDischarge: float64Ptr(5000),
		Timestamp:      late,
		TimestampMs:    late.UnixMilli(),
	})

	got, ok := maxReading(points, anchor.Add(-MaxReadingWindow).UnixMilli())

	require.True(t, ok)
	assert.Equal(t, 100.0, *got.WaterDischarge)
}

func TestMaxReadingEmpty(t *testing.T) {
	_, ok := maxReading(nil, anchor.UnixMilli())
	assert.False(t, ok)

	f := newForecast("G1", nil)
	_, ok = f.MaxReading(anchor)
	assert.False(t, ok)
}

func TestForecastViews(t *testing.T) {
	f := newForecast("G1", nil)
	f.pushReadings(models.ColumnarReadings{
		Timestamps: []string{"2024-04-01T10:00:00Z", "2024-04-01T11:00:00Z"},
		Discharges: []*float64{float64Ptr(300), float64Ptr(450)},
	})
	f.setPredictions(&models.ForecastPredictions{
		ForecastID: "F1",
		ColumnarReadings: models.ColumnarReadings{
			Timestamps: []string{"2024-04-02T00:00:00Z", "2024-04-01T18:00:00Z"},
			Discharges: []*float64{float64Ptr(700), float64Ptr(600)},
		},
		Peaks: []models.ForecastPeak{
			{Ts: "2024-04-02T00:00:00Z", Cfs: float64Ptr(700), Ft: float64Ptr(14.5)},
			{Ts: "garbage"},
		},
	})

	points := f.DataPoints()
	require.Len(t, points, 2)
	assert.Equal(t, 450.0, *points[0].WaterDischarge, "newest first")

	forecastPoints := f.ForecastDataPoints()
	require.Len(t, forecastPoints, 2)
	assert.Equal(t, 600.0, *forecastPoints[0].WaterDischarge, "oldest first")

	peaks := f.Peaks()
	require.Len(t, peaks, 1)
	assert.Equal(t, 14.5, *peaks[0].WaterHeight)
	assert.Equal(t, 700.0, *peaks[0].Discharge)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), peaks[0].Time.UTC())

	max, ok := f.MaxReading(anchor)
	require.True(t, ok)
	assert.Equal(t, 450.0, *max.WaterDischarge)
}

func TestLast100(t *testing.T) {
	f := newForecast("G1", nil)
	cols := models.ColumnarReadings{}
	for i := 0; i < 150; i++ {
		cols.Timestamps = append(cols.Timestamps, anchor.Add(time.Duration(i)*time.Minute).Format(time.RFC3339))
	}
	f.pushReadings(cols)
	f.setPredictions(&models.ForecastPredictions{ForecastID: "F1", ColumnarReadings: cols})

	recent := f.Last100Readings()
	require.Len(t, recent, 100)
	assert.Equal(t, anchor.Add(149*time.Minute), recent[0].Timestamp.UTC())

	upcoming := f.Last100ForecastReadings()
	require.Len(t, upcoming, 100)
	assert.Equal(t, anchor.Add(149*time.Minute), upcoming[99].Timestamp.UTC())
}

func TestDischargeTrend(t *testing.T) {
	tests := []struct {
		name string
		rate *float64
		want models.LevelTrend
	}{
		{name: "unknown", rate: nil, want: models.LevelTrendOffline},
		{name: "steady", rate: float64Ptr(-0.4), want: models.LevelTrendSteady},
		{name: "rising", rate: float64Ptr(12), want: models.LevelTrendRising},
		{name: "falling", rate: float64Ptr(-3), want: models.LevelTrendFalling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForecast("G1", nil)
			f.pushReadings(models.ColumnarReadings{DischargeTrendRate: tt.rate})
			assert.Equal(t, tt.want, f.DischargeTrend())
		})
	}
}

// Package forecast holds the forecast-screen aggregates: a rolling history of
// recent readings per gauge plus the latest NOAA-derived forecast.
package forecast

import (
	"math"
	"sync"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
	"github.com/rs/zerolog/log"
)

const (
	// MaxReadingWindow bounds the MaxReading scan.
	MaxReadingWindow = 24 * time.Hour

	recentLimit = 100

	// SteadyDischargeRate is the |cfs per hour| below which discharge is
	// considered steady.
	SteadyDischargeRate = 1.0
)

// Peak is a forecast crest.
type Peak struct {
	Time        time.Time `json:"time"`
	WaterHeight *float64  `json:"waterHeight"`
	Discharge   *float64  `json:"discharge"`
}

type Forecast struct {
	mu sync.RWMutex

	gaugeID     string
	readings    models.ColumnarReadings
	predictions *models.ForecastPredictions

	tz *time.Location
}

func newForecast(gaugeID string, tz *time.Location) *Forecast {
	if tz == nil {
		tz = time.UTC
	}
	return &Forecast{gaugeID: gaugeID, tz: tz}
}

// TimeZone is the zone timestamps are read and displayed in. A nil forecast
// reports UTC.
func (f *Forecast) TimeZone() *time.Location {
	if f == nil || f.tz == nil {
		return time.UTC
	}
	return f.tz
}

func (f *Forecast) GaugeID() string {
	return f.gaugeID
}

// RecentReadings returns a copy of the accumulated reading columns.
func (f *Forecast) RecentReadings() models.ColumnarReadings {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cols := f.readings
	cols.Timestamps = append([]string(nil), cols.Timestamps...)
	cols.WaterHeights = append([]*float64(nil), cols.WaterHeights...)
	cols.Discharges = append([]*float64(nil), cols.Discharges...)
	return cols
}

func (f *Forecast) Predictions() *models.ForecastPredictions {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.predictions
}

// DataPoints are the recent readings, newest first.
func (f *Forecast) DataPoints() []reading.DataPoint {
	return reading.Descending(reading.FromColumns(f.RecentReadings(), f.tz))
}

// ForecastDataPoints are the forecast readings, oldest first.
func (f *Forecast) ForecastDataPoints() []reading.DataPoint {
	p := f.Predictions()
	if p == nil {
		return nil
	}
	return reading.Ascending(reading.FromColumns(p.ColumnarReadings, f.tz))
}

// Peaks relabels the forecast crests. Peaks with an unparseable time are
// dropped.
func (f *Forecast) Peaks() []Peak {
	p := f.Predictions()
	if p == nil {
		return nil
	}

	peaks := make([]Peak, 0, len(p.Peaks))
	for _, raw := range p.Peaks {
		ts, ok := reading.ParseTimestamp(raw.Ts, f.tz)
		if !ok {
			log.Warn().Str("gauge_id", f.gaugeID).Str("timestamp", raw.Ts).Msg("Skipping forecast peak with bad timestamp")
			continue
		}
		peaks = append(peaks, Peak{Time: ts, WaterHeight: raw.Ft, Discharge: raw.Cfs})
	}
	return peaks
}

// MaxReading is the highest discharge within MaxReadingWindow of now.
func (f *Forecast) MaxReading(now time.Time) (reading.DataPoint, bool) {
	return maxReading(f.DataPoints(), now.Add(-MaxReadingWindow).UnixMilli())
}

// maxReading walks newest-first points and stops at the first one older than
// cutoffMs.
func maxReading(points []reading.DataPoint, cutoffMs int64) (reading.DataPoint, bool) {
	var best reading.DataPoint
	found := false
	for _, p := range points {
		if p.TimestampMs < cutoffMs {
			break
		}
		if p.WaterDischarge == nil {
			continue
		}
		if !found || *p.WaterDischarge > *best.WaterDischarge {
			best = p
			found = true
		}
	}
	return best, found
}

// Last100Readings are the most recent readings, newest first.
func (f *Forecast) Last100Readings() []reading.DataPoint {
	points := f.DataPoints()
	if len(points) > recentLimit {
		points = points[:recentLimit]
	}
	return points
}

// Last100ForecastReadings are the final forecast readings, oldest first.
func (f *Forecast) Last100ForecastReadings() []reading.DataPoint {
	points := f.ForecastDataPoints()
	if len(points) > recentLimit {
		points = points[len(points)-recentLimit:]
	}
	return points
}

// DischargeTrend classifies the backend-supplied discharge trend rate.
func (f *Forecast) DischargeTrend() models.LevelTrend {
	f.mu.RLock()
	rate := f.readings.DischargeTrendRate
	f.mu.RUnlock()

	switch {
	case rate == nil:
		return models.LevelTrendOffline
	case math.Abs(*rate) < SteadyDischargeRate:
		return models.LevelTrendSteady
	case *rate > 0:
		return models.LevelTrendRising
	default:
		return models.LevelTrendFalling
	}
}

func (f *Forecast) pushReadings(delta models.ColumnarReadings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings.Append(delta)
}

func (f *Forecast) setPredictions(p *models.ForecastPredictions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictions = p
}

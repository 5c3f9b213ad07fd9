package gauge

import (
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

// Record is the persisted form of a Gauge.
type Record struct {
	LocationID           string                      `json:"locationId"`
	Readings             []models.GaugeReading       `json:"readings"`
	Predictions          []models.GaugeReading       `json:"predictions,omitempty"`
	NoaaForecast         *models.ForecastPredictions `json:"noaaForecast,omitempty"`
	Status               *models.GaugeStatus         `json:"status,omitempty"`
	PeakStatus           *models.GaugeStatus         `json:"peakStatus,omitempty"`
	LastReadingID        *int64                      `json:"lastReadingId,omitempty"`
	WaterHeightTrendRate *float64                    `json:"waterHeightTrendRate,omitempty"`
	DischargeTrendRate   *float64                    `json:"dischargeTrendRate,omitempty"`
}

// Snapshot is the whole gauge collection at a point in time.
type Snapshot struct {
	TakenAt time.Time `json:"takenAt"`
	Gauges  []Record  `json:"gauges"`
}

func (g *Gauge) record() Record {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Record{
		LocationID:           g.locationID,
		Readings:             append([]models.GaugeReading(nil), g.readings...),
		Predictions:          append([]models.GaugeReading(nil), g.predictions...),
		NoaaForecast:         g.noaaForecast,
		Status:               g.status,
		PeakStatus:           g.peakStatus,
		LastReadingID:        g.lastReadingID,
		WaterHeightTrendRate: g.waterHeightTrendRate,
		DischargeTrendRate:   g.dischargeTrendRate,
	}
}

// Snapshot captures the collection for persistence.
func (s *Store) Snapshot() Snapshot {
	gauges := s.All()
	snap := Snapshot{
		TakenAt: s.now(),
		Gauges:  make([]Record, 0, len(gauges)),
	}
	for _, g := range gauges {
		snap.Gauges = append(snap.Gauges, g.record())
	}
	return snap
}

// Restore replaces the collection with snap. Watermarks are never restored,
// so the first fetch after a restore is a full baseline.
func (s *Store) Restore(snap Snapshot) {
	gauges := make(map[string]*Gauge, len(snap.Gauges))
	for _, r := range snap.Gauges {
		if r.LocationID == "" {
			continue
		}
		g := newGauge(r.LocationID, s.locations, s.tz)
		g.readings = r.Readings
		g.predictions = r.Predictions
		g.noaaForecast = r.NoaaForecast
		g.status = r.Status
		g.peakStatus = r.PeakStatus
		g.waterHeightTrendRate = r.WaterHeightTrendRate
		g.dischargeTrendRate = r.DischargeTrendRate
		gauges[r.LocationID] = g
	}

	s.mu.Lock()
	s.gauges = gauges
	s.state = floodapi.ErrorState{}
	s.mu.Unlock()

	log.Info().
		Int("count", len(gauges)).
		Time("taken_at", snap.TakenAt).
		Msg("Restored gauge snapshot")
}

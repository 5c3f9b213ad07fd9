package forecast

import (
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

type Record struct {
	GaugeID        string                      `json:"gaugeId"`
	RecentReadings models.ColumnarReadings     `json:"recentReadings"`
	Predictions    *models.ForecastPredictions `json:"predictions,omitempty"`
}

// Snapshot is the forecast collection at a point in time. MaxReadingID is
// informational only and is never restored.
type Snapshot struct {
	TakenAt      time.Time `json:"takenAt"`
	MaxReadingID *int64    `json:"maxReadingId,omitempty"`
	Forecasts    []Record  `json:"forecasts"`
}

func (s *Store) Snapshot() Snapshot {
	forecasts := s.All()
	snap := Snapshot{
		TakenAt:      s.now(),
		MaxReadingID: s.MaxReadingID(),
		Forecasts:    make([]Record, 0, len(forecasts)),
	}
	for _, f := range forecasts {
		snap.Forecasts = append(snap.Forecasts, Record{
			GaugeID:        f.gaugeID,
			RecentReadings: f.RecentReadings(),
			Predictions:    f.Predictions(),
		})
	}
	return snap
}

// Restore replaces the collection and clears the watermark so the next
// FetchRecentReadings returns the full recent window.
func (s *Store) Restore(snap Snapshot) {
	forecasts := make(map[string]*Forecast, len(snap.Forecasts))
	for _, r := range snap.Forecasts {
		if r.GaugeID == "" {
			continue
		}
		f := newForecast(r.GaugeID, s.tz)
		f.readings = r.RecentReadings
		f.predictions = r.Predictions
		forecasts[r.GaugeID] = f
	}

	s.mu.Lock()
	s.forecasts = forecasts
	s.maxReadingID = nil
	s.state = floodapi.ErrorState{}
	s.mu.Unlock()

	log.Info().
		Int("count", len(forecasts)).
		Time("taken_at", snap.TakenAt).
		Msg("Restored forecast snapshot")
}

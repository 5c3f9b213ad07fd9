package forecast

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/internal/metrics"
	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

const (
	storeName = "forecast"

	DefaultForecastLookback = 24 * time.Hour
)

type API interface {
	GetRecentReadings(ctx context.Context, maxReadingID *int64) client.Result[floodapi.RecentReadingsResponse]
	GetForecast(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[floodapi.ForecastResponse]
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func WithTimeZone(tz *time.Location) StoreOption {
	return func(s *Store) {
		if tz != nil {
			s.tz = tz
		}
	}
}

// WithGaugeIDs sets the gauges forecasts are requested for.
func WithGaugeIDs(ids ...string) StoreOption {
	return func(s *Store) {
		s.gaugeIDs = append([]string(nil), ids...)
	}
}

// WithForecastLookback sets how old a forecast may be and still be accepted.
func WithForecastLookback(d time.Duration) StoreOption {
	return func(s *Store) {
		s.forecastLookback = d
	}
}

// Store owns the forecast collection and the store-wide reading watermark.
type Store struct {
	mu           sync.RWMutex
	forecasts    map[string]*Forecast
	maxReadingID *int64
	state        floodapi.ErrorState

	api              API
	gaugeIDs         []string
	now              func() time.Time
	tz               *time.Location
	forecastLookback time.Duration
}

func NewStore(api API, opts ...StoreOption) *Store {
	s := &Store{
		forecasts:        make(map[string]*Forecast),
		api:              api,
		now:              time.Now,
		tz:               time.UTC,
		forecastLookback: DefaultForecastLookback,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchRecentReadings pulls readings newer than the watermark and pushes them
// onto each gauge's history.
func (s *Store) FetchRecentReadings(ctx context.Context) error {
	result := s.api.GetRecentReadings(ctx, s.MaxReadingID())
	metrics.ObserveFetch(storeName, "recent_readings", string(result.Kind))

	if !result.OK() {
		return s.fail(floodapi.NewFetchError("fetch recent readings", result))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := 0
	for id, payload := range result.Data.Gauges {
		delta, ok := payload.Columns()
		if !ok {
			log.Debug().Str("gauge_id", id).Str("kind", payload.Kind.String()).Msg("Skipping empty readings payload")
			continue
		}
		s.getOrCreate(id).pushReadings(delta)
		merged += delta.Len()
	}

	if result.Data.MaxReadingID != nil {
		s.maxReadingID = result.Data.MaxReadingID
	}
	s.state = floodapi.ErrorState{}
	metrics.ObserveMerged(storeName, "append", merged)

	log.Debug().
		Int("gauges", len(result.Data.Gauges)).
		Int("count", merged).
		Msg("Merged recent readings")

	return nil
}

// FetchForecast replaces the predictions of every gauge in the response.
func (s *Store) FetchForecast(ctx context.Context) error {
	cutoff := s.now().Add(-s.forecastLookback)
	result := s.api.GetForecast(ctx, s.gaugeIDs, cutoff)
	metrics.ObserveFetch(storeName, "forecast", string(result.Kind))

	if !result.OK() {
		return s.fail(floodapi.NewFetchError("fetch forecast", result))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for id, payload := range result.Data.Forecasts {
		if payload.Kind != reading.PayloadPrediction {
			log.Warn().Str("gauge_id", id).Str("kind", payload.Kind.String()).Msg("Ignoring forecast without forecast id")
			continue
		}
		s.getOrCreate(id).setPredictions(payload.Prediction)
		updated++
	}
	s.state = floodapi.ErrorState{}

	log.Debug().Int("count", updated).Msg("Updated forecasts")
	return nil
}

// FetchData rebuilds the collection from scratch. Readings are fetched before
// forecasts; a failed readings fetch does not skip the forecast.
func (s *Store) FetchData(ctx context.Context) error {
	s.reset()

	readingsErr := s.FetchRecentReadings(ctx)
	forecastErr := s.FetchForecast(ctx)

	if forecastErr == nil && readingsErr != nil {
		// keep the readings failure visible after the forecast succeeded
		s.mu.Lock()
		s.state = floodapi.StateFor(readingsErr)
		s.mu.Unlock()
	}
	return errors.Join(readingsErr, forecastErr)
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts = make(map[string]*Forecast)
	s.maxReadingID = nil
}

// Get returns nil for unknown gauges.
func (s *Store) Get(gaugeID string) *Forecast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forecasts[gaugeID]
}

// All returns the forecasts ordered by gauge id.
func (s *Store) All() []*Forecast {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Forecast, 0, len(s.forecasts))
	for _, f := range s.forecasts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].gaugeID < out[j].gaugeID
	})
	return out
}

func (s *Store) MaxReadingID() *int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxReadingID
}

func (s *Store) LastError() floodapi.ErrorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// getOrCreate must be called with s.mu held.
func (s *Store) getOrCreate(id string) *Forecast {
	f, ok := s.forecasts[id]
	if !ok {
		f = newForecast(id, s.tz)
		s.forecasts[id] = f
	}
	return f
}

func (s *Store) fail(err error) error {
	log.Error().Err(err).Msg("Forecast fetch failed")

	s.mu.Lock()
	s.state = floodapi.StateFor(err)
	s.mu.Unlock()

	return err
}

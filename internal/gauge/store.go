package gauge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/internal/locations"
	"github.com/bbernstein/floodwatch/backend-go/internal/metrics"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

const (
	storeName = "gauge"

	DefaultRegion           = "default"
	DefaultLiveLookback     = 24 * time.Hour
	DefaultFetchAllLookback = 3 * 24 * time.Hour
)

// API is the part of the flood backend the gauge store needs.
type API interface {
	GetGages(ctx context.Context, region string, from, to time.Time) client.Result[models.GagesResponse]
	GetGaugeReadings(ctx context.Context, req floodapi.GaugeReadingsRequest) client.Result[models.GaugeReadingsResponse]
}

// RangeOptions selects the window and merge mode of FetchRangeForGauge.
// Nil From/To fall back to the live window ending now.
type RangeOptions struct {
	From               *time.Time
	To                 *time.Time
	IncludeLastReading bool
	IncludePredictions bool
}

// DefaultRangeOptions is the live polling fetch: incremental and with
// predictions.
func DefaultRangeOptions() RangeOptions {
	return RangeOptions{IncludeLastReading: true, IncludePredictions: true}
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

func WithRegion(region string) StoreOption {
	return func(s *Store) {
		s.region = region
	}
}

func WithLiveLookback(d time.Duration) StoreOption {
	return func(s *Store) {
		s.liveLookback = d
	}
}

func WithFetchAllLookback(d time.Duration) StoreOption {
	return func(s *Store) {
		s.fetchAllLookback = d
	}
}

// Store owns the gauge collection. All mutation goes through its fetch
// methods; racing fetches resolve as last write wins.
type Store struct {
	mu     sync.RWMutex
	gauges map[string]*Gauge
	state  floodapi.ErrorState

	api       API
	locations locations.Lookup

	now              func() time.Time
	tz               *time.Location
	region           string
	liveLookback     time.Duration
	fetchAllLookback time.Duration
}

func NewStore(api API, lookup locations.Lookup, opts ...StoreOption) *Store {
	s := &Store{
		gauges:           make(map[string]*Gauge),
		api:              api,
		locations:        lookup,
		now:              time.Now,
		tz:               time.UTC,
		region:           DefaultRegion,
		liveLookback:     DefaultLiveLookback,
		fetchAllLookback: DefaultFetchAllLookback,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAll loads status and recent readings for every gauge in the region and
// replaces the collection. Gauges that are still reported keep their
// identity; every watermark, forecast and trend rate is cleared.
func (s *Store) FetchAll(ctx context.Context) error {
	now := s.now()
	result := s.api.GetGages(ctx, s.region, now.Add(-s.fetchAllLookback), now)
	metrics.ObserveFetch(storeName, "fetch_all", string(result.Kind))

	if !result.OK() {
		return s.fail(floodapi.NewFetchError("fetch all gauges", result))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*Gauge, len(result.Data.Gages))
	var errs []error
	merged := 0
	for _, summary := range result.Data.Gages {
		if summary.LocationID == "" {
			log.Warn().Msg("Skipping gauge without location id")
			continue
		}

		g, ok := s.gauges[summary.LocationID]
		if !ok {
			g = newGauge(summary.LocationID, s.locations, s.tz)
		}
		errs = append(errs,
			g.setProp(propReadings, summary.Readings),
			g.setProp(propPredictions, summary.Predictions),
			g.setProp(propStatus, summary.Status),
			g.setProp(propPeakStatus, summary.PeakStatus),
			g.setProp(propNoaaForecast, (*models.ForecastPredictions)(nil)),
			g.setProp(propWaterHeightTrendRate, (*float64)(nil)),
			g.setProp(propDischargeTrendRate, (*float64)(nil)),
			g.setProp(propLastReadingID, (*int64)(nil)),
		)
		next[summary.LocationID] = g
		merged += len(summary.Readings)
	}

	s.gauges = next
	s.state = floodapi.ErrorState{}
	metrics.ObserveMerged(storeName, "replace", merged)

	log.Info().
		Int("count", len(next)).
		Int("readings", merged).
		Msg("Fetched all gauges")

	return errors.Join(errs...)
}

// FetchRangeForGauge fetches one gauge's readings and merges them. With
// IncludeLastReading the readings are appended to the current tail, otherwise
// they replace it. The watermark is only kept for fetches that include
// predictions.
func (s *Store) FetchRangeForGauge(ctx context.Context, locationID string, opts RangeOptions) error {
	now := s.now()
	from := now.Add(-s.liveLookback)
	if opts.From != nil {
		from = *opts.From
	}
	to := now
	if opts.To != nil {
		to = *opts.To
	}

	req := floodapi.GaugeReadingsRequest{
		LocationID:         locationID,
		From:               from,
		To:                 to,
		IncludeLastReading: opts.IncludeLastReading,
		IncludePredictions: opts.IncludePredictions,
	}
	if opts.IncludeLastReading {
		if g := s.GetByLocationID(locationID); g != nil {
			req.LastReadingID = g.LastReadingID()
		}
	}

	result := s.api.GetGaugeReadings(ctx, req)
	metrics.ObserveFetch(storeName, "fetch_range", string(result.Kind))

	if !result.OK() {
		return s.fail(floodapi.NewFetchError(fmt.Sprintf("fetch readings for %s", locationID), result))
	}

	resp := result.Data
	if resp.NoData {
		log.Debug().Str("location_id", locationID).Msg("No new readings")
		s.clearError()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gauges[locationID]
	if !ok {
		g = newGauge(locationID, s.locations, s.tz)
		s.gauges[locationID] = g
	}

	mode := "replace"
	readingsProp := propReadings
	if opts.IncludeLastReading {
		mode = "append"
		readingsProp = propAppendReadings
	}

	watermark := resp.LastReadingID
	if !opts.IncludePredictions {
		watermark = nil
	}

	err := errors.Join(
		g.setProp(readingsProp, resp.Readings),
		g.setProp(propPredictions, resp.Predictions),
		g.setProp(propNoaaForecast, resp.NoaaForecast),
		g.setProp(propStatus, resp.Status),
		g.setProp(propPeakStatus, resp.PeakStatus),
		g.setProp(propWaterHeightTrendRate, resp.WaterHeightTrendRate),
		g.setProp(propDischargeTrendRate, resp.DischargeTrendRate),
		g.setProp(propLastReadingID, watermark),
	)

	s.state = floodapi.ErrorState{}
	metrics.ObserveMerged(storeName, mode, len(resp.Readings))

	log.Debug().
		Str("location_id", locationID).
		Str("mode", mode).
		Int("count", len(resp.Readings)).
		Msg("Merged gauge readings")

	return err
}

// GetByLocationID returns nil when the gauge is unknown.
func (s *Store) GetByLocationID(id string) *Gauge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gauges[id]
}

// All returns the gauges ordered by location id.
func (s *Store) All() []*Gauge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Gauge, 0, len(s.gauges))
	for _, g := range s.gauges {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].locationID < out[j].locationID
	})
	return out
}

// Upstream is the nearest ranked gauge with a lower rank, or nil.
func (s *Store) Upstream(id string) *Gauge {
	return s.neighbor(id, -1)
}

// Downstream is the nearest ranked gauge with a higher rank, or nil.
func (s *Store) Downstream(id string) *Gauge {
	return s.neighbor(id, 1)
}

func (s *Store) neighbor(id string, direction int) *Gauge {
	ranked := s.ranked()
	for i, g := range ranked {
		if g.gauge.locationID != id {
			continue
		}
		j := i + direction
		if j < 0 || j >= len(ranked) {
			return nil
		}
		return ranked[j].gauge
	}
	return nil
}

type rankedGauge struct {
	gauge *Gauge
	rank  int
}

func (s *Store) ranked() []rankedGauge {
	var out []rankedGauge
	for _, g := range s.All() {
		info, ok := g.Location()
		if !ok || info.Rank == nil {
			continue
		}
		out = append(out, rankedGauge{gauge: g, rank: *info.Rank})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].rank < out[j].rank
	})
	return out
}

// LastError reports the outcome of the most recent fetch.
func (s *Store) LastError() floodapi.ErrorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) fail(err error) error {
	log.Error().Err(err).Msg("Gauge fetch failed")

	s.mu.Lock()
	s.state = floodapi.StateFor(err)
	s.mu.Unlock()

	return err
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.state = floodapi.ErrorState{}
	s.mu.Unlock()
}

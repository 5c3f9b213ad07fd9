package gauge

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/locations"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
)

// Gauge is the aggregate root for one gauge location. It is created once per
// location id and mutated in place by the Store, so callers may hold on to it
// across refreshes.
type Gauge struct {
	mu sync.RWMutex

	locationID           string
	readings             []models.GaugeReading
	predictions          []models.GaugeReading
	noaaForecast         *models.ForecastPredictions
	status               *models.GaugeStatus
	peakStatus           *models.GaugeStatus
	lastReadingID        *int64
	waterHeightTrendRate *float64
	dischargeTrendRate   *float64

	locations locations.Lookup
	tz        *time.Location
}

// RoadStatus describes the water level relative to a road crossing.
type RoadStatus struct {
	Name           string  `json:"name"`
	Level          float64 `json:"level"`
	Preposition    string  `json:"preposition"`
	DeltaFormatted string  `json:"deltaFormatted"`
}

const (
	PrepositionBelow = "below"
	PrepositionOver  = "over"
)

func newGauge(locationID string, lookup locations.Lookup, tz *time.Location) *Gauge {
	if tz == nil {
		tz = time.UTC
	}
	return &Gauge{
		locationID: locationID,
		locations:  lookup,
		tz:         tz,
	}
}

func (g *Gauge) LocationID() string {
	return g.locationID
}

// Readings returns a copy of the raw readings, oldest first.
func (g *Gauge) Readings() []models.GaugeReading {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.GaugeReading(nil), g.readings...)
}

func (g *Gauge) Predictions() []models.GaugeReading {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.GaugeReading(nil), g.predictions...)
}

func (g *Gauge) NoaaForecast() *models.ForecastPredictions {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.noaaForecast
}

func (g *Gauge) PeakStatus() *models.GaugeStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.peakStatus
}

// LastReadingID is the merge watermark; nil means the next fetch must be a
// full baseline.
func (g *Gauge) LastReadingID() *int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastReadingID
}

func (g *Gauge) TrendRates() (waterHeight, discharge *float64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.waterHeightTrendRate, g.dischargeTrendRate
}

func (g *Gauge) HasData() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.readings) > 0
}

// TimeZone is the zone readings are parsed and displayed in.
func (g *Gauge) TimeZone() *time.Location {
	return g.tz
}

// GaugeStatus never returns an empty status: gauges without one are reported
// offline.
func (g *Gauge) GaugeStatus() models.GaugeStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.status == nil {
		return models.OfflineStatus()
	}
	return *g.status
}

// CurrentStatus selects the live status when now is selected and the peak
// status of the historic window otherwise.
func (g *Gauge) CurrentStatus(isNow bool) models.GaugeStatus {
	if !isNow {
		if peak := g.PeakStatus(); peak != nil {
			return *peak
		}
	}
	return g.GaugeStatus()
}

// Location looks up the static location data. A missing entry means it has
// not been loaded yet.
func (g *Gauge) Location() (*models.LocationInfo, bool) {
	if g.locations == nil {
		return nil, false
	}
	return g.locations.Lookup(g.locationID)
}

func (g *Gauge) RoadToYellowStage() *float64 {
	return g.roadToStage(func(l *models.LocationInfo) *float64 { return l.YellowStage })
}

func (g *Gauge) RoadToRedStage() *float64 {
	return g.roadToStage(func(l *models.LocationInfo) *float64 { return l.RedStage })
}

// roadToStage is nil unless a road saddle and a distinct yellow/red pair are
// configured; equal stages mean there is no near-flooding band.
func (g *Gauge) roadToStage(stage func(*models.LocationInfo) *float64) *float64 {
	loc, ok := g.Location()
	if !ok || loc.RoadSaddleHeight == nil || loc.YellowStage == nil || loc.RedStage == nil {
		return nil
	}
	if *loc.YellowStage == *loc.RedStage {
		return nil
	}
	delta := *loc.RoadSaddleHeight - *stage(loc)
	return &delta
}

// CalculatedRoadStatus relates waterLevel (default: the current reading) to
// the road saddle. Nil when no road is configured or no level is known.
func (g *Gauge) CalculatedRoadStatus(waterLevel *float64) *RoadStatus {
	loc, ok := g.Location()
	if !ok || !loc.HasRoad() {
		return nil
	}
	if waterLevel == nil {
		waterLevel = g.CurrentReading()
	}
	if waterLevel == nil {
		return nil
	}

	level := *waterLevel - *loc.RoadSaddleHeight
	preposition := PrepositionOver
	if level < 0 {
		preposition = PrepositionBelow
	}

	return &RoadStatus{
		Name:           loc.RoadName,
		Level:          level,
		Preposition:    preposition,
		DeltaFormatted: fmt.Sprintf("%.2f ft", math.Abs(level)),
	}
}

// ChartMinAndMax returns the configured y-axis bounds for dataType.
func (g *Gauge) ChartMinAndMax(dataType models.DataType) (min, max *float64) {
	loc, ok := g.Location()
	if !ok {
		return nil, nil
	}
	return loc.Chart.For(dataType)
}

// CurrentReading is the latest known water height.
func (g *Gauge) CurrentReading() *float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.status != nil && g.status.LastReading != nil && g.status.LastReading.WaterHeight != nil {
		return g.status.LastReading.WaterHeight
	}
	if last, ok := lastActual(g.readings); ok {
		return last.WaterHeight
	}
	return nil
}

// GroundHeight is the terrain baseline for area fills.
func (g *Gauge) GroundHeight() *float64 {
	g.mu.RLock()
	for i := len(g.readings) - 1; i >= 0; i-- {
		if g.readings[i].GroundHeight != nil {
			h := g.readings[i].GroundHeight
			g.mu.RUnlock()
			return h
		}
	}
	g.mu.RUnlock()

	if loc, ok := g.Location(); ok {
		return loc.GroundHeight
	}
	return nil
}

// DataPoints normalizes every stored reading, deleted ones included.
func (g *Gauge) DataPoints() []reading.DataPoint {
	return reading.FromReadings(g.Readings(), g.tz)
}

// ActualPoints are the observed readings that are neither deleted nor missing.
func (g *Gauge) ActualPoints() []reading.DataPoint {
	readings := g.Readings()
	kept := readings[:0]
	for _, r := range readings {
		if !r.IsDeleted && !r.IsMissing {
			kept = append(kept, r)
		}
	}
	return reading.FromReadings(kept, g.tz)
}

func (g *Gauge) DeletedPoints() []reading.DataPoint {
	var deleted []models.GaugeReading
	for _, r := range g.Readings() {
		if r.IsDeleted {
			deleted = append(deleted, r)
		}
	}
	return reading.FromReadings(deleted, g.tz)
}

// PredictedPoints prepends the most recent actual reading to the server
// predictions so the predicted line joins the observed one.
func (g *Gauge) PredictedPoints() []reading.DataPoint {
	g.mu.RLock()
	if len(g.predictions) == 0 {
		g.mu.RUnlock()
		return nil
	}
	joined := make([]models.GaugeReading, 0, len(g.predictions)+1)
	if last, ok := lastActual(g.readings); ok {
		joined = append(joined, last)
	}
	joined = append(joined, g.predictions...)
	g.mu.RUnlock()

	return reading.FromReadings(joined, g.tz)
}

// ForecastPoints are the NOAA forecast readings, if any.
func (g *Gauge) ForecastPoints() []reading.DataPoint {
	forecast := g.NoaaForecast()
	if forecast == nil {
		return nil
	}
	return reading.FromColumns(forecast.ColumnarReadings, g.tz)
}

func lastActual(readings []models.GaugeReading) (models.GaugeReading, bool) {
	for i := len(readings) - 1; i >= 0; i-- {
		if !readings[i].IsDeleted && !readings[i].IsMissing {
			return readings[i], true
		}
	}
	return models.GaugeReading{}, false
}

type prop int

const (
	propReadings prop = iota
	propAppendReadings
	propPredictions
	propNoaaForecast
	propStatus
	propPeakStatus
	propLastReadingID
	propWaterHeightTrendRate
	propDischargeTrendRate
)

var propNames = map[prop]string{
	propReadings:             "readings",
	propAppendReadings:       "readings+",
	propPredictions:          "predictions",
	propNoaaForecast:         "noaaForecast",
	propStatus:               "status",
	propPeakStatus:           "peakStatus",
	propLastReadingID:        "lastReadingId",
	propWaterHeightTrendRate: "waterHeightTrendRate",
	propDischargeTrendRate:   "dischargeTrendRate",
}

func (p prop) String() string {
	if name, ok := propNames[p]; ok {
		return name
	}
	return fmt.Sprintf("prop(%d)", int(p))
}

// ErrPropType is returned by setProp when value does not match the field.
var ErrPropType = errors.New("wrong value type")

// setProp is the only way gauge state changes.
func (g *Gauge) setProp(p prop, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ok bool
	switch p {
	case propReadings:
		var readings []models.GaugeReading
		if readings, ok = value.([]models.GaugeReading); ok {
			g.readings = append([]models.GaugeReading(nil), readings...)
		}
	case propAppendReadings:
		var readings []models.GaugeReading
		if readings, ok = value.([]models.GaugeReading); ok {
			g.readings = append(g.readings, readings...)
		}
	case propPredictions:
		var predictions []models.GaugeReading
		if predictions, ok = value.([]models.GaugeReading); ok {
			g.predictions = append([]models.GaugeReading(nil), predictions...)
		}
	case propNoaaForecast:
		ok = assign(&g.noaaForecast, value)
	case propStatus:
		ok = assign(&g.status, value)
	case propPeakStatus:
		ok = assign(&g.peakStatus, value)
	case propLastReadingID:
		ok = assign(&g.lastReadingID, value)
	case propWaterHeightTrendRate:
		ok = assign(&g.waterHeightTrendRate, value)
	case propDischargeTrendRate:
		ok = assign(&g.dischargeTrendRate, value)
	default:
		return fmt.Errorf("gauge %s: unknown property %s", g.locationID, p)
	}

	if !ok {
		return fmt.Errorf("gauge %s: setting %s to %T: %w", g.locationID, p, value, ErrPropType)
	}
	return nil
}

func assign[T any](dst *T, value any) bool {
	v, ok := value.(T)
	if ok {
		*dst = v
	}
	return ok
}

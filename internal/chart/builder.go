package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/forecast"
	"github.com/bbernstein/floodwatch/backend-go/internal/gauge"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
)

type BuilderConfig struct {
	// DashboardWindow is the rolling window shown in dashboard mode and the
	// default range in details mode.
	DashboardWindow time.Duration
	// PredictionLookAhead extends details charts when predictions exist.
	PredictionLookAhead time.Duration
	// GapSize breaks a line instead of interpolating across missing data.
	GapSize time.Duration
	Crest   CrestConfig
	Labels  Labels
	Now     func() time.Time
}

func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		DashboardWindow:     24 * time.Hour,
		PredictionLookAhead: 6 * time.Hour,
		GapSize:             2 * time.Hour,
		Crest:               DefaultCrestConfig(),
		Labels:              DefaultLabels(),
		Now:                 time.Now,
	}
}

// Builder derives chart options. It holds no state beyond its config and is
// safe for concurrent use.
type Builder struct {
	cfg BuilderConfig
}

func NewBuilder(cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.DashboardWindow <= 0 {
		cfg.DashboardWindow = def.DashboardWindow
	}
	if cfg.PredictionLookAhead <= 0 {
		cfg.PredictionLookAhead = def.PredictionLookAhead
	}
	if cfg.GapSize <= 0 {
		cfg.GapSize = def.GapSize
	}
	// An all-zero crest config means unset. Otherwise only a negative
	// prominence falls back, so 0 stays configurable.
	if cfg.Crest == (CrestConfig{}) || cfg.Crest.MinProminence < 0 {
		cfg.Crest.MinProminence = def.Crest.MinProminence
	}
	if cfg.Crest.MaxNeighborGap <= 0 {
		cfg.Crest.MaxNeighborGap = def.Crest.MaxNeighborGap
	}
	if cfg.Labels == (Labels{}) {
		cfg.Labels = def.Labels
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Builder{cfg: cfg}
}

// window resolves the visible range of req.
func (b *Builder) window(req Request) (start, end time.Time) {
	now := b.cfg.Now()
	if req.Mode != ModeDetails {
		return now.Add(-b.cfg.DashboardWindow), now
	}

	end = req.End
	if end.IsZero() {
		end = now
	}
	start = req.Start
	if start.IsZero() || !start.Before(end) {
		start = end.Add(-b.cfg.DashboardWindow)
	}
	return start, end
}

// BuildGaugeOptions builds the chart for one gauge. A nil or empty gauge
// yields empty series.
func (b *Builder) BuildGaugeOptions(g *gauge.Gauge, req Request) Options {
	dataType := req.DataType
	if dataType == "" {
		dataType = DataTypeLevel
	}
	details := req.Mode == ModeDetails
	start, end := b.window(req)

	var (
		predicted, actual, forecastPoints, deleted []reading.DataPoint
		ground, cfgMin, cfgMax                     *float64
		info                                       *models.LocationInfo
		tz                                         *time.Location
		road                                       RoadDescriber
	)
	if g != nil {
		predicted = g.PredictedPoints()
		actual = g.ActualPoints()
		forecastPoints = g.ForecastPoints()
		deleted = g.DeletedPoints()
		cfgMin, cfgMax = g.ChartMinAndMax(dataType)
		info, _ = g.Location()
		tz = g.TimeZone()
		road = gaugeRoad(g)
		if dataType == DataTypeLevel {
			ground = g.GroundHeight()
		}
	}

	xMax := end
	if details && len(predicted) > 0 {
		xMax = end.Add(b.cfg.PredictionLookAhead)
	}

	opts := Options{
		Series: []Series{
			b.series(KindPredicted, predicted, dataType, start, xMax, ground),
			b.series(KindActual, actual, dataType, start, end, ground),
			b.series(KindForecast, forecastPoints, dataType, start, xMax, ground),
			b.series(KindDeleted, deleted, dataType, start, end, ground),
		},
		XAxis:   b.xAxis(start, xMax, details),
		YAxis:   b.yAxis(dataType, details),
		Tooltip: NewTooltipFormatter(b.cfg.Labels, dataType, tz, road),
	}
	opts.YAxis.Min, opts.YAxis.Max = yBounds(dataType, ground, cfgMin, cfgMax, opts.Series)

	if dataType == DataTypeLevel {
		b.addStageMarkers(&opts.YAxis, info)
	}

	if details && dataType == DataTypeLevel {
		if crest, ok := FindCrest(actual, Window{Start: start, End: end}, b.cfg.Crest); ok {
			opts.Crest = &Point{X: crest.TimestampMs, Y: *crest.Reading}
			opts.XAxis.PlotLines = append(opts.XAxis.PlotLines, PlotLine{
				Value:     float64(crest.TimestampMs),
				Color:     ColorCrest,
				DashStyle: DashShortDot,
				Width:     1,
				Label:     fmt.Sprintf("%s %.2f %s", b.cfg.Labels.Crest, *crest.Reading, b.cfg.Labels.LevelUnit),
			})
		}
	}

	return opts
}

// BuildForecastOptions builds the forecast screen chart. Discharge is the
// default data type. loc may be nil.
func (b *Builder) BuildForecastOptions(f *forecast.Forecast, loc *models.LocationInfo, req Request) Options {
	dataType := req.DataType
	if dataType == "" {
		dataType = DataTypeDischarge
	}
	details := req.Mode == ModeDetails
	start, end := b.window(req)

	var ground, cfgMin, cfgMax *float64
	if loc != nil {
		cfgMin, cfgMax = loc.Chart.For(dataType)
		if dataType == DataTypeLevel {
			ground = loc.GroundHeight
		}
	}

	var actual, upcoming []reading.DataPoint
	var peaks []forecast.Peak
	if f != nil {
		actual = f.DataPoints()
		upcoming = f.ForecastDataPoints()
		peaks = f.Peaks()
	}

	xMax := end
	if n := len(upcoming); n > 0 && upcoming[n-1].Valid() && upcoming[n-1].Timestamp.After(xMax) {
		xMax = upcoming[n-1].Timestamp
	}

	opts := Options{
		Series: []Series{
			b.series(KindActual, actual, dataType, start, end, ground),
			b.series(KindForecast, upcoming, dataType, start, xMax, ground),
		},
		XAxis:   b.xAxis(start, xMax, details),
		YAxis:   b.yAxis(dataType, details),
		Tooltip: NewTooltipFormatter(b.cfg.Labels, dataType, f.TimeZone(), locationRoad(loc)),
	}
	opts.YAxis.Min, opts.YAxis.Max = yBounds(dataType, ground, cfgMin, cfgMax, opts.Series)

	if dataType == DataTypeLevel {
		b.addStageMarkers(&opts.YAxis, loc)
	}

	if details {
		for _, peak := range peaks {
			v := peak.Discharge
			if dataType == DataTypeLevel {
				v = peak.WaterHeight
			}
			if v == nil {
				continue
			}
			opts.XAxis.PlotLines = append(opts.XAxis.PlotLines, PlotLine{
				Value:     float64(peak.Time.UnixMilli()),
				Color:     ColorForecast,
				DashStyle: DashShortDot,
				Width:     1,
				Label:     fmt.Sprintf("%s %.2f %s", b.cfg.Labels.Peak, *v, b.cfg.Labels.unit(dataType)),
			})
		}
	}

	return opts
}

func (b *Builder) xAxis(start, end time.Time, details bool) Axis {
	min, max := float64(start.UnixMilli()), float64(end.UnixMilli())
	axis := Axis{
		Type:   AxisDatetime,
		Min:    &min,
		Max:    &max,
		Labels: details,
	}
	if !details {
		axis.PlotLines = []PlotLine{{
			Value:     min,
			Color:     ColorWindowStart,
			DashStyle: DashDot,
			Width:     1,
		}}
	}
	return axis
}

func (b *Builder) yAxis(dataType DataType, details bool) Axis {
	axis := Axis{
		Type:   AxisLinear,
		Title:  b.cfg.Labels.LevelTitle,
		Labels: details,
	}
	if dataType == DataTypeDischarge {
		axis.Type = AxisLogarithmic
		axis.Title = b.cfg.Labels.DischargeTitle
	}
	return axis
}

func (b *Builder) series(kind SeriesKind, points []reading.DataPoint, dataType DataType, from, to time.Time, threshold *float64) Series {
	s := Series{
		Name:      b.cfg.Labels.kind(kind),
		Kind:      kind,
		Type:      "area",
		Threshold: threshold,
		GapSize:   b.cfg.GapSize.Milliseconds(),
		GapUnit:   GapUnitValue,
		Data:      []Point{},
	}
	switch kind {
	case KindActual:
		s.Color = ColorActual
	case KindPredicted:
		s.Color = ColorPredicted
		s.DashStyle = DashShortDot
	case KindForecast:
		s.Type = "line"
		s.Color = ColorForecast
		s.DashStyle = DashShortDot
	case KindDeleted:
		s.Type = "scatter"
		s.Color = ColorDeleted
		s.GapSize = 0
		s.GapUnit = ""
	}

	fromMs, toMs := from.UnixMilli(), to.UnixMilli()
	for _, p := range reading.Ascending(points) {
		if !p.Valid() || p.TimestampMs < fromMs || p.TimestampMs > toMs {
			continue
		}
		v := value(p, dataType)
		if v == nil || math.IsNaN(*v) {
			continue
		}
		if dataType == DataTypeDischarge && *v <= 0 {
			continue
		}
		s.Data = append(s.Data, Point{X: p.TimestampMs, Y: *v})
	}
	return s
}

func (b *Builder) addStageMarkers(axis *Axis, info *models.LocationInfo) {
	if info == nil {
		return
	}
	if info.YellowStage != nil {
		axis.PlotLines = append(axis.PlotLines, PlotLine{
			Value: *info.YellowStage,
			Color: ColorYellowStage,
			Width: 1,
			Label: b.cfg.Labels.YellowStage,
		})
	}
	if info.RedStage != nil {
		axis.PlotLines = append(axis.PlotLines, PlotLine{
			Value: *info.RedStage,
			Color: ColorRedStage,
			Width: 1,
			Label: b.cfg.Labels.RedStage,
		})
	}
	if info.YellowStage != nil && info.RedStage != nil && *info.YellowStage < *info.RedStage {
		axis.PlotBands = append(axis.PlotBands, PlotBand{
			From:  *info.YellowStage,
			To:    *info.RedStage,
			Color: ColorYellowStage,
			Label: b.cfg.Labels.YellowStage,
		})
	}
	if info.HasRoad() {
		axis.PlotLines = append(axis.PlotLines, PlotLine{
			Value:     *info.RoadSaddleHeight,
			Color:     ColorRoad,
			DashStyle: DashSolid,
			Width:     2,
			Label:     info.RoadName,
		})
	}
}

// yBounds clamps the configured minimum to the ground height and then down to
// the lowest visible value so low readings are never clipped.
func yBounds(dataType DataType, ground, cfgMin, cfgMax *float64, series []Series) (min, max *float64) {
	min = maxOf(ground, cfgMin)
	max = cfgMax

	lo, hi, ok := observedRange(series)
	if ok {
		if min != nil && lo < *min {
			min = &lo
		}
		if max != nil && hi > *max {
			max = &hi
		}
	}

	if dataType == DataTypeDischarge && min != nil && *min <= 0 {
		min = nil
	}
	return min, max
}

func observedRange(series []Series) (lo, hi float64, ok bool) {
	for _, s := range series {
		if s.Kind == KindDeleted {
			continue
		}
		for _, p := range s.Data {
			if !ok || p.Y < lo {
				lo = p.Y
			}
			if !ok || p.Y > hi {
				hi = p.Y
			}
			ok = true
		}
	}
	return lo, hi, ok
}

func maxOf(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a >= *b:
		return a
	default:
		return b
	}
}

func value(p reading.DataPoint, dataType DataType) *float64 {
	if dataType == DataTypeDischarge {
		return p.WaterDischarge
	}
	return p.Reading
}

func gaugeRoad(g *gauge.Gauge) RoadDescriber {
	return func(level float64) (string, bool) {
		status := g.CalculatedRoadStatus(&level)
		if status == nil {
			return "", false
		}
		return fmt.Sprintf("%s %s %s", status.DeltaFormatted, status.Preposition, status.Name), true
	}
}

func locationRoad(info *models.LocationInfo) RoadDescriber {
	if !info.HasRoad() {
		return nil
	}
	return func(level float64) (string, bool) {
		delta := level - *info.RoadSaddleHeight
		preposition := gauge.PrepositionOver
		if delta < 0 {
			preposition = gauge.PrepositionBelow
		}
		return fmt.Sprintf("%.2f ft %s %s", math.Abs(delta), preposition, info.RoadName), true
	}
}

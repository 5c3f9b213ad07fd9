// Package chart turns gauge and forecast aggregates into renderer-agnostic
// chart options.
package chart

import (
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
)

type Mode string

const (
	// ModeDashboard is the small card chart: a fixed window ending now.
	ModeDashboard Mode = "dashboard"
	// ModeDetails is the full chart for an explicit range.
	ModeDetails Mode = "details"
)

func (m Mode) Valid() bool {
	return m == ModeDashboard || m == ModeDetails
}

type DataType = models.DataType

const (
	DataTypeLevel     = models.DataTypeLevel
	DataTypeDischarge = models.DataTypeDischarge
)

type SeriesKind string

const (
	KindActual    SeriesKind = "actual"
	KindPredicted SeriesKind = "predicted"
	KindForecast  SeriesKind = "forecast"
	KindDeleted   SeriesKind = "deleted"
)

type AxisType string

const (
	AxisDatetime    AxisType = "datetime"
	AxisLinear      AxisType = "linear"
	AxisLogarithmic AxisType = "logarithmic"
)

const (
	ColorActual      = "#2a6ebb"
	ColorPredicted   = "#8ab4e8"
	ColorForecast    = "#7b52ab"
	ColorDeleted     = "#c0392b"
	ColorYellowStage = "#f1c40f"
	ColorRedStage    = "#e74c3c"
	ColorRoad        = "#555555"
	ColorWindowStart = "#999999"
	ColorCrest       = "#1b2631"

	// GapUnitValue means GapSize is measured in x-axis units (milliseconds).
	GapUnitValue = "value"

	DashDot      = "Dot"
	DashShortDot = "ShortDot"
	DashSolid    = "Solid"
)

// Point is one (epoch ms, value) pair.
type Point struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

type Series struct {
	Name      string     `json:"name"`
	Kind      SeriesKind `json:"kind"`
	Type      string     `json:"type"`
	Color     string     `json:"color"`
	Threshold *float64   `json:"threshold"`
	GapSize   int64      `json:"gapSize,omitempty"`
	GapUnit   string     `json:"gapUnit,omitempty"`
	DashStyle string     `json:"dashStyle,omitempty"`
	Data      []Point    `json:"data"`
}

type PlotLine struct {
	Value     float64 `json:"value"`
	Color     string  `json:"color"`
	DashStyle string  `json:"dashStyle,omitempty"`
	Width     int     `json:"width"`
	Label     string  `json:"label,omitempty"`
}

type PlotBand struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
	Label string  `json:"label,omitempty"`
}

type Axis struct {
	Type      AxisType   `json:"type"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
	Title     string     `json:"title,omitempty"`
	Labels    bool       `json:"labels"`
	PlotLines []PlotLine `json:"plotLines,omitempty"`
	PlotBands []PlotBand `json:"plotBands,omitempty"`
}

// Options is everything a renderer needs to draw one chart.
type Options struct {
	Series  []Series         `json:"series"`
	XAxis   Axis             `json:"xAxis"`
	YAxis   Axis             `json:"yAxis"`
	Crest   *Point           `json:"crest,omitempty"`
	Tooltip TooltipFormatter `json:"-"`
}

// Request selects the chart to build. Zero Start/End fall back to the
// dashboard window ending now.
type Request struct {
	Mode     Mode
	DataType DataType
	Start    time.Time
	End      time.Time
}

// Labels are the user-facing strings baked into options.
type Labels struct {
	Actual         string
	Predicted      string
	Forecast       string
	Deleted        string
	Crest          string
	Peak           string
	YellowStage    string
	RedStage       string
	LevelUnit      string
	DischargeUnit  string
	LevelTitle     string
	DischargeTitle string
}

func DefaultLabels() Labels {
	return Labels{
		Actual:         "Actual",
		Predicted:      "Predicted",
		Forecast:       "NOAA Forecast",
		Deleted:        "Deleted",
		Crest:          "Crest",
		Peak:           "Peak",
		YellowStage:    "Near flooding",
		RedStage:       "Flooding",
		LevelUnit:      "ft",
		DischargeUnit:  "cfs",
		LevelTitle:     "Water level",
		DischargeTitle: "Discharge",
	}
}

func (l Labels) unit(dataType DataType) string {
	if dataType == DataTypeDischarge {
		return l.DischargeUnit
	}
	return l.LevelUnit
}

func (l Labels) kind(kind SeriesKind) string {
	switch kind {
	case KindPredicted:
		return l.Predicted
	case KindForecast:
		return l.Forecast
	case KindDeleted:
		return l.Deleted
	default:
		return l.Actual
	}
}

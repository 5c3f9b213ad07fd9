package models

import (
	"fmt"
)

// ColumnarReadings is the paged wire shape: parallel arrays indexed by reading.
type ColumnarReadings struct {
	Timestamps           []string   `json:"timestamps"`
	WaterHeights         []*float64 `json:"waterHeights"`
	Discharges           []*float64 `json:"discharges"`
	WaterHeightTrendRate *float64   `json:"waterHeightTrendRate,omitempty"`
	DischargeTrendRate   *float64   `json:"dischargeTrendRate,omitempty"`
}

func (c *ColumnarReadings) Len() int {
	return len(c.Timestamps)
}

// Append pushes the columns of delta onto c. Short height or discharge columns
// in delta are padded with nil so indexes stay aligned. Trend rates are
// metadata and are overwritten whenever delta carries them.
func (c *ColumnarReadings) Append(delta ColumnarReadings) {
	n := delta.Len()
	c.padTo(c.Len())

	c.Timestamps = append(c.Timestamps, delta.Timestamps...)
	c.WaterHeights = append(c.WaterHeights, padColumn(delta.WaterHeights, n)...)
	c.Discharges = append(c.Discharges, padColumn(delta.Discharges, n)...)

	if delta.WaterHeightTrendRate != nil {
		c.WaterHeightTrendRate = delta.WaterHeightTrendRate
	}
	if delta.DischargeTrendRate != nil {
		c.DischargeTrendRate = delta.DischargeTrendRate
	}
}

func (c *ColumnarReadings) padTo(n int) {
	c.WaterHeights = padColumn(c.WaterHeights, n)
	c.Discharges = padColumn(c.Discharges, n)
}

func padColumn(col []*float64, n int) []*float64 {
	if len(col) >= n {
		return col[:n]
	}
	padded := make([]*float64, n)
	copy(padded, col)
	return padded
}

// ForecastPeak is a forecast crest as sent by the backend.
type ForecastPeak struct {
	Ts  string   `json:"ts"`
	Cfs *float64 `json:"cfs"`
	Ft  *float64 `json:"ft"`
}

// ForecastPredictions carries NOAA-derived forecast columns for one gauge. The
// presence of ForecastID distinguishes it from plain columnar readings.
type ForecastPredictions struct {
	ForecastID string `json:"forecastId"`
	NoaaSiteID string `json:"noaaSiteId,omitempty"`
	IssuedAt   string `json:"issuedAt,omitempty"`
	ColumnarReadings
	Peaks []ForecastPeak `json:"peaks"`
}

// Validate checks if a ForecastPredictions's fields are valid
func (p *ForecastPredictions) Validate() error {
	if p.ForecastID == "" {
		return fmt.Errorf("forecast id is required")
	}
	if len(p.WaterHeights) > p.Len() || len(p.Discharges) > p.Len() {
		return fmt.Errorf("column length mismatch: %d timestamps", p.Len())
	}
	for i, peak := range p.Peaks {
		if peak.Ts == "" {
			return fmt.Errorf("invalid peak at index %d: missing timestamp", i)
		}
	}
	return nil
}

// GaugeSummary is one gauge in the batched status call.
type GaugeSummary struct {
	LocationID  string         `json:"locationId"`
	Status      *GaugeStatus   `json:"status,omitempty"`
	PeakStatus  *GaugeStatus   `json:"peakStatus,omitempty"`
	Readings    []GaugeReading `json:"readings"`
	Predictions []GaugeReading `json:"predictions,omitempty"`
}

type GagesResponse struct {
	Gages []GaugeSummary `json:"gages"`
}

type GaugeReadingsResponse struct {
	Readings             []GaugeReading       `json:"readings"`
	Predictions          []GaugeReading       `json:"predictions,omitempty"`
	NoaaForecast         *ForecastPredictions `json:"noaaForecast,omitempty"`
	Status               *GaugeStatus         `json:"status,omitempty"`
	PeakStatus           *GaugeStatus         `json:"peakStatus,omitempty"`
	LastReadingID        *int64               `json:"lastReadingId,omitempty"`
	WaterHeightTrendRate *float64             `json:"waterHeightTrendRate,omitempty"`
	DischargeTrendRate   *float64             `json:"dischargeTrendRate,omitempty"`
	NoData               bool                 `json:"noData"`
}

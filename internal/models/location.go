package models

import "fmt"

// FloodEvent is a catalogued historic flood for a location.
type FloodEvent struct {
	ID        string `json:"id" dynamodbav:"id"`
	Name      string `json:"name" dynamodbav:"name"`
	StartDate string `json:"startDate" dynamodbav:"startDate"`
	EndDate   string `json:"endDate" dynamodbav:"endDate"`
}

// ChartBounds holds the configured y-axis bounds per series type.
type ChartBounds struct {
	LevelMin     *float64 `json:"levelMin,omitempty" dynamodbav:"levelMin"`
	LevelMax     *float64 `json:"levelMax,omitempty" dynamodbav:"levelMax"`
	DischargeMin *float64 `json:"dischargeMin,omitempty" dynamodbav:"dischargeMin"`
	DischargeMax *float64 `json:"dischargeMax,omitempty" dynamodbav:"dischargeMax"`
}

// LocationInfo is static reference data for a gauge location. It is looked up
// by id and may load after the gauges that reference it.
type LocationInfo struct {
	ID               string       `json:"id" dynamodbav:"id"`
	Name             string       `json:"name" dynamodbav:"name"`
	Latitude         float64      `json:"latitude" dynamodbav:"latitude"`
	Longitude        float64      `json:"longitude" dynamodbav:"longitude"`
	Rank             *int         `json:"rank,omitempty" dynamodbav:"rank"`
	YellowStage      *float64     `json:"yellowStage,omitempty" dynamodbav:"yellowStage"`
	RedStage         *float64     `json:"redStage,omitempty" dynamodbav:"redStage"`
	GroundHeight     *float64     `json:"groundHeight,omitempty" dynamodbav:"groundHeight"`
	RoadName         string       `json:"roadName,omitempty" dynamodbav:"roadName"`
	RoadSaddleHeight *float64     `json:"roadSaddleHeight,omitempty" dynamodbav:"roadSaddleHeight"`
	NoaaSiteID       string       `json:"noaaSiteId,omitempty" dynamodbav:"noaaSiteId"`
	Chart            ChartBounds  `json:"chart" dynamodbav:"chart"`
	FloodEvents      []FloodEvent `json:"floodEvents,omitempty" dynamodbav:"floodEvents"`
}

// HasRoad reports whether a road crossing is configured for the location.
func (l *LocationInfo) HasRoad() bool {
	return l != nil && l.RoadSaddleHeight != nil
}

// Validate checks if a LocationInfo's fields are valid
func (l *LocationInfo) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("location id is required")
	}

	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", l.Latitude)
	}

	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", l.Longitude)
	}

	return nil
}

// DataType selects which series a chart or bound refers to.
type DataType string

const (
	DataTypeLevel     DataType = "level"
	DataTypeDischarge DataType = "discharge"
)

// For returns the configured bounds for dataType.
func (b ChartBounds) For(dataType DataType) (min, max *float64) {
	if dataType == DataTypeDischarge {
		return b.DischargeMin, b.DischargeMax
	}
	return b.LevelMin, b.LevelMax
}

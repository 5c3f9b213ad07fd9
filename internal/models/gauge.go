package models

import (
	"fmt"
)

type FloodLevel string

const (
	FloodLevelOffline      FloodLevel = "Offline"
	FloodLevelOnline       FloodLevel = "Online"
	FloodLevelDry          FloodLevel = "Dry"
	FloodLevelNormal       FloodLevel = "Normal"
	FloodLevelNearFlooding FloodLevel = "NearFlooding"
	FloodLevelFlooding     FloodLevel = "Flooding"
)

type LevelTrend string

const (
	LevelTrendRising   LevelTrend = "Rising"
	LevelTrendFalling  LevelTrend = "Falling"
	LevelTrendSteady   LevelTrend = "Steady"
	LevelTrendCresting LevelTrend = "Cresting"
	LevelTrendOffline  LevelTrend = "Offline"
)

// GaugeReading is one raw observation as returned by the backend. ID grows
// monotonically per gauge and doubles as the incremental-fetch watermark.
type GaugeReading struct {
	ID               int64    `json:"id" dynamodbav:"id"`
	Timestamp        string   `json:"timestamp" dynamodbav:"timestamp"`
	WaterHeight      *float64 `json:"waterHeight" dynamodbav:"waterHeight"`
	WaterDischarge   *float64 `json:"waterDischarge" dynamodbav:"waterDischarge"`
	GroundHeight     *float64 `json:"groundHeight,omitempty" dynamodbav:"groundHeight"`
	BatteryMillivolt *float64 `json:"batteryMillivolt,omitempty" dynamodbav:"batteryMillivolt"`
	RoadSaddleHeight *float64 `json:"roadSaddleHeight,omitempty" dynamodbav:"roadSaddleHeight"`
	IsDeleted        bool     `json:"isDeleted" dynamodbav:"isDeleted"`
	IsMissing        bool     `json:"isMissing" dynamodbav:"isMissing"`
}

type WaterTrend struct {
	TrendValues []float64 `json:"trendValues"`
	TrendValue  float64   `json:"trendValue"`
}

// GaugeStatus is a snapshot of a gauge at one point in time: either the
// current state or the peak of a historic event.
type GaugeStatus struct {
	LastReading *GaugeReading `json:"lastReading,omitempty"`
	FloodLevel  FloodLevel    `json:"floodLevel"`
	LevelTrend  LevelTrend    `json:"levelTrend"`
	WaterTrend  *WaterTrend   `json:"waterTrend,omitempty"`
}

// OfflineStatus is the placeholder used when a gauge has no status yet.
func OfflineStatus() GaugeStatus {
	return GaugeStatus{
		FloodLevel: FloodLevelOffline,
		LevelTrend: LevelTrendOffline,
	}
}

// Validate checks if a GaugeReading's fields are valid
func (r *GaugeReading) Validate() error {
	if r.ID < 0 {
		return fmt.Errorf("invalid reading id: %d", r.ID)
	}
	if r.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if r.WaterDischarge != nil && *r.WaterDischarge < 0 {
		return fmt.Errorf("invalid water discharge: %f", *r.WaterDischarge)
	}
	return nil
}

// Validate checks if a GaugeStatus's fields are valid
func (s *GaugeStatus) Validate() error {
	switch s.FloodLevel {
	case FloodLevelOffline, FloodLevelOnline, FloodLevelDry, FloodLevelNormal,
		FloodLevelNearFlooding, FloodLevelFlooding:
		// Valid level
	default:
		return fmt.Errorf("invalid flood level: %s", s.FloodLevel)
	}

	switch s.LevelTrend {
	case LevelTrendRising, LevelTrendFalling, LevelTrendSteady, LevelTrendCresting, LevelTrendOffline:
		// Valid trend
	default:
		return fmt.Errorf("invalid level trend: %s", s.LevelTrend)
	}

	if s.LastReading != nil {
		if err := s.LastReading.Validate(); err != nil {
			return fmt.Errorf("invalid last reading: %w", err)
		}
	}
	return nil
}

package gauge

import (
	"testing"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/locations"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func int64Ptr(i int64) *int64 {
	return &i
}

func intPtr(i int) *int {
	return &i
}

func newReading(id int64, ts string, height float64) models.GaugeReading {
	return models.GaugeReading{ID: id, Timestamp: ts, WaterHeight: float64Ptr(height)}
}

func TestGaugeStatusDefaultsToOffline(t *testing.T) {
	g := newGauge("USGS-38", nil, nil)

	status := g.GaugeStatus()

	assert.Equal(t, models.FloodLevelOffline, status.FloodLevel)
	assert.Equal(t, models.LevelTrendOffline, status.LevelTrend)
	assert.False(t, g.HasData())
	assert.Equal(t, time.UTC, g.TimeZone())
}

func TestCurrentStatus(t *testing.T) {
	g := newGauge("USGS-38", nil, nil)
	require.NoError(t, g.setProp(propStatus, &models.GaugeStatus{FloodLevel: models.FloodLevelNormal}))

	assert.Equal(t, models.FloodLevelNormal, g.CurrentStatus(false).FloodLevel, "falls back without peak status")

	require.NoError(t, g.setProp(propPeakStatus, &models.GaugeStatus{FloodLevel: models.FloodLevelFlooding}))

	assert.Equal(t, models.FloodLevelNormal, g.CurrentStatus(true).FloodLevel)
	assert.Equal(t, models.FloodLevelFlooding, g.CurrentStatus(false).FloodLevel)
}

func TestRoadToStage(t *testing.T) {
	tests := []struct {
		name       string
		info       models.LocationInfo
		wantYellow *float64
		wantRed    *float64
	}{
		{
			name: "distinct stages",
			info: models.LocationInfo{
				ID:               "USGS-38",
				RoadSaddleHeight: float64Ptr(100),
				YellowStage:      float64Ptr(95),
				RedStage:         float64Ptr(90),
			},
			wantYellow: float64Ptr(5),
			wantRed:    float64Ptr(10),
		},
		{
			name: "equal stages have no band",
			info: models.LocationInfo{
				ID:               "USGS-38",
				RoadSaddleHeight: float64Ptr(100),
				YellowStage:      float64Ptr(92),
				RedStage:         float64Ptr(92),
			},
		},
		{
			name: "no road saddle",
			info: models.LocationInfo{
				ID:          "USGS-38",
				YellowStage: float64Ptr(95),
				RedStage:    float64Ptr(90),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGauge("USGS-38", locations.NewCatalog(tt.info), nil)

			assert.Equal(t, tt.wantYellow, g.RoadToYellowStage())
			assert.Equal(t, tt.wantRed, g.RoadToRedStage())
		})
	}
}

func TestRoadToStageWithoutLocation(t *testing.T) {
	g := newGauge("USGS-38", locations.NewCatalog(), nil)

	assert.Nil(t, g.RoadToYellowStage())
	assert.Nil(t, g.RoadToRedStage())
	_, ok := g.Location()
	assert.False(t, ok)
}

func TestCalculatedRoadStatus(t *testing.T) {
	catalog := locations.NewCatalog(models.LocationInfo{
		ID:               "USGS-38",
		RoadName:         "County Rd 12",
		RoadSaddleHeight: float64Ptr(100),
	})
	g := newGauge("USGS-38", catalog, nil)
	require.NoError(t, g.setProp(propReadings, []models.GaugeReading{newReading(1, "2024-04-01T00:00:00Z", 97.5)}))

	t.Run("current reading below road", func(t *testing.T) {
		status := g.CalculatedRoadStatus(nil)
		require.NotNil(t, status)
		assert.Equal(t, "County Rd 12", status.Name)
		assert.InDelta(t, -2.5, status.Level, 1e-9)
		assert.Equal(t, PrepositionBelow, status.Preposition)
		assert.Equal(t, "2.50 ft", status.DeltaFormatted)
	})

	t.Run("override over road", func(t *testing.T) {
		status := g.CalculatedRoadStatus(float64Ptr(101.25))
		require.NotNil(t, status)
		assert.Equal(t, PrepositionOver, status.Preposition)
		assert.Equal(t, "1.25 ft", status.DeltaFormatted)
	})

	t.Run("no road configured", func(t *testing.T) {
		other := newGauge("USGS-40", locations.NewCatalog(models.LocationInfo{ID: "USGS-40"}), nil)
		assert.Nil(t, other.CalculatedRoadStatus(float64Ptr(3)))
	})
}

func TestChartMinAndMax(t *testing.T) {
	catalog := locations.NewCatalog(models.LocationInfo{
		ID: "USGS-38",
		Chart: models.ChartBounds{
			LevelMin:     float64Ptr(80),
			LevelMax:     float64Ptr(110),
			DischargeMin: float64Ptr(10),
		},
	})
	g := newGauge("USGS-38", catalog, nil)

	min, max := g.ChartMinAndMax(models.DataTypeLevel)
	assert.Equal(t, 80.0, *min)
	assert.Equal(t, 110.0, *max)

	min, max = g.ChartMinAndMax(models.DataTypeDischarge)
	assert.Equal(t, 10.0, *min)
	assert.Nil(t, max)
}

func TestPointViews(t *testing.T) {
	g := newGauge("USGS-38", nil, nil)
	deleted := newReading(2, "2024-04-01T00:15:00Z", 40)
	deleted.IsDeleted = true
	missing := newReading(3, "2024-04-01T00:30:00Z", 0)
	missing.IsMissing = true

	require.NoError(t, g.setProp(propReadings, []models.GaugeReading{
		newReading(1, "2024-04-01T00:00:00Z", 3.0),
		deleted,
		missing,
		newReading(4, "2024-04-01T00:45:00Z", 3.4),
	}))
	require.NoError(t, g.setProp(propPredictions, []models.GaugeReading{
		newReading(0, "2024-04-01T01:00:00Z", 3.6),
		newReading(0, "2024-04-01T01:15:00Z", 3.8),
	}))

	assert.Len(t, g.DataPoints(), 4)
	assert.Len(t, g.ActualPoints(), 2)
	require.Len(t, g.DeletedPoints(), 1)
	assert.True(t, g.DeletedPoints()[0].IsDeleted)

	predicted := g.PredictedPoints()
	require.Len(t, predicted, 3)
	assert.Equal(t, 3.4, *predicted[0].Reading, "joins the latest actual reading")
	assert.Equal(t, 3.6, *predicted[1].Reading)

	assert.Equal(t, 3.4, *g.CurrentReading())
	assert.Len(t, g.Readings(), 4, "view methods must not mutate state")
}

func TestPredictedPointsEmptyWithoutPredictions(t *testing.T) {
	g := newGauge("USGS-38", nil, nil)
	require.NoError(t, g.setProp(propReadings, []models.GaugeReading{newReading(1, "2024-04-01T00:00:00Z", 3.0)}))

	assert.Empty(t, g.PredictedPoints())
	assert.Empty(t, g.ForecastPoints())
}

func TestGroundHeight(t *testing.T) {
	catalog := locations.NewCatalog(models.LocationInfo{ID: "USGS-38", GroundHeight: float64Ptr(80)})
	g := newGauge("USGS-38", catalog, nil)

	assert.Equal(t, 80.0, *g.GroundHeight(), "falls back to location")

	r := newReading(1, "2024-04-01T00:00:00Z", 83)
	r.GroundHeight = float64Ptr(81)
	require.NoError(t, g.setProp(propReadings, []models.GaugeReading{r}))

	assert.Equal(t, 81.0, *g.GroundHeight())
}

func TestSetPropRejectsWrongType(t *testing.T) {
	g := newGauge("USGS-38", nil, nil)
	require.NoError(t, g.setProp(propLastReadingID, int64Ptr(12)))

	err := g.setProp(propLastReadingID, "twelve")

	assert.ErrorIs(t, err, ErrPropType)
	assert.Equal(t, int64(12), *g.LastReadingID(), "mismatched value leaves field untouched")
}

func TestSetPropAppend(t *testing.T) {
	g := newGauge("USGS-38", nil, nil)
	require.NoError(t, g.setProp(propReadings, []models.GaugeReading{newReading(1, "2024-04-01T00:00:00Z", 1)}))
	require.NoError(t, g.setProp(propAppendReadings, []models.GaugeReading{newReading(2, "2024-04-01T00:15:00Z", 2)}))

	readings := g.Readings()
	require.Len(t, readings, 2)
	assert.Equal(t, int64(2), readings[1].ID)
}

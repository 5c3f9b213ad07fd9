package reading

import (
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
)

// FromReadings normalizes the per-reading object list. Nothing is filtered:
// the output has one point per input reading.
func FromReadings(readings []models.GaugeReading, loc *time.Location) []DataPoint {
	points := make([]DataPoint, len(readings))
	for i, r := range readings {
		points[i] = newDataPoint(r.Timestamp, loc, r.WaterHeight, r.WaterDischarge, r.IsDeleted)
	}
	return points
}

// FromColumns zips the parallel columns by index. Height and discharge
// columns shorter than the timestamp column yield nil values.
func FromColumns(cols models.ColumnarReadings, loc *time.Location) []DataPoint {
	points := make([]DataPoint, len(cols.Timestamps))
	for i, ts := range cols.Timestamps {
		points[i] = newDataPoint(ts, loc, at(cols.WaterHeights, i), at(cols.Discharges, i), false)
	}
	return points
}

func at(col []*float64, i int) *float64 {
	if i < len(col) {
		return col[i]
	}
	return nil
}

// ToColumns converts the object list into the columnar shape. Deleted flags
// do not survive the conversion.
func ToColumns(readings []models.GaugeReading) models.ColumnarReadings {
	cols := models.ColumnarReadings{
		Timestamps:   make([]string, len(readings)),
		WaterHeights: make([]*float64, len(readings)),
		Discharges:   make([]*float64, len(readings)),
	}
	for i, r := range readings {
		cols.Timestamps[i] = r.Timestamp
		cols.WaterHeights[i] = r.WaterHeight
		cols.Discharges[i] = r.WaterDischarge
	}
	return cols
}

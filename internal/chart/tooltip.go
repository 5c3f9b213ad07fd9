package chart

import (
	"fmt"
	"strings"
	"time"
)

const tooltipTimeLayout = "Mon Jan 2, 3:04 PM"

// TooltipPoint is the hovered point handed to a TooltipFormatter.
type TooltipPoint struct {
	Kind  SeriesKind
	Time  time.Time
	Value float64
}

type TooltipFormatter func(TooltipPoint) string

// RoadDescriber describes a water level relative to the road crossing. It
// reports false when the gauge has no road configured.
type RoadDescriber func(level float64) (string, bool)

// NewTooltipFormatter renders the kind label, value, local time and, for water
// levels, the road-relative description when one is available.
func NewTooltipFormatter(labels Labels, dataType DataType, loc *time.Location, road RoadDescriber) TooltipFormatter {
	if loc == nil {
		loc = time.UTC
	}
	unit := labels.unit(dataType)

	return func(p TooltipPoint) string {
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %.2f %s\n", labels.kind(p.Kind), p.Value, unit)
		b.WriteString(p.Time.In(loc).Format(tooltipTimeLayout))

		if road != nil && dataType == DataTypeLevel {
			if desc, ok := road(p.Value); ok {
				b.WriteString("\n")
				b.WriteString(desc)
			}
		}
		return b.String()
	}
}

package chart

import (
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
)

// CrestConfig tunes crest detection.
type CrestConfig struct {
	// MinProminence is how far (ft) the crest must rise above the window
	// minimum.
	MinProminence float64
	// MaxNeighborGap is the largest allowed distance from the crest to each
	// of its neighbors; a wider gap means the maximum is an isolated spike.
	MaxNeighborGap time.Duration
}

func DefaultCrestConfig() CrestConfig {
	return CrestConfig{
		MinProminence:  1.0,
		MaxNeighborGap: 120 * time.Minute,
	}
}

// Window is an inclusive time range. A zero End means now.
type Window struct {
	Start time.Time
	End   time.Time
}

// FindCrest returns the latest interior point holding the window maximum
// water level, or false when the window has no meaningful crest.
func FindCrest(points []reading.DataPoint, w Window, cfg CrestConfig) (reading.DataPoint, bool) {
	end := w.End
	if end.IsZero() {
		end = time.Now()
	}
	startMs, endMs := w.Start.UnixMilli(), end.UnixMilli()

	var inWindow []reading.DataPoint
	for _, p := range points {
		if !p.Valid() || p.Reading == nil {
			continue
		}
		if p.TimestampMs >= startMs && p.TimestampMs <= endMs {
			inWindow = append(inWindow, p)
		}
	}
	if len(inWindow) < 3 {
		return reading.DataPoint{}, false
	}
	inWindow = reading.Ascending(inWindow)

	min, max := *inWindow[0].Reading, *inWindow[0].Reading
	for _, p := range inWindow[1:] {
		if *p.Reading < min {
			min = *p.Reading
		}
		if *p.Reading > max {
			max = *p.Reading
		}
	}
	if max < min+cfg.MinProminence {
		return reading.DataPoint{}, false
	}

	last := len(inWindow) - 1
	if *inWindow[0].Reading == max || *inWindow[last].Reading == max {
		return reading.DataPoint{}, false
	}

	gapMs := cfg.MaxNeighborGap.Milliseconds()
	for i := last - 1; i > 0; i-- {
		p := inWindow[i]
		if *p.Reading != max {
			continue
		}
		if p.TimestampMs-inWindow[i-1].TimestampMs > gapMs {
			continue
		}
		if inWindow[i+1].TimestampMs-p.TimestampMs > gapMs {
			continue
		}
		return p, true
	}
	return reading.DataPoint{}, false
}

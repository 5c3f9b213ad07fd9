package reading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	// PayloadObjects is the per-reading object list.
	PayloadObjects
	// PayloadColumnar is the parallel-array shape.
	PayloadColumnar
	// PayloadPrediction is the columnar shape carrying a forecastId.
	PayloadPrediction
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadObjects:
		return "objects"
	case PayloadColumnar:
		return "columnar"
	case PayloadPrediction:
		return "prediction"
	default:
		return "empty"
	}
}

// Payload is a decoded reading payload in exactly one of its wire shapes.
// Only the field matching Kind is set.
type Payload struct {
	Kind       PayloadKind
	Objects    []models.GaugeReading
	Columnar   *models.ColumnarReadings
	Prediction *models.ForecastPredictions
}

var _ json.Unmarshaler = (*Payload)(nil)

func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = Payload{Kind: PayloadEmpty}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var objects []models.GaugeReading
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return fmt.Errorf("decoding reading list: %w", err)
		}
		*p = Payload{Kind: PayloadObjects, Objects: objects}
		return nil
	case '{':
		var shape struct {
			ForecastID *string `json:"forecastId"`
		}
		if err := json.Unmarshal(trimmed, &shape); err != nil {
			return fmt.Errorf("reading payload shape: %w", err)
		}
		if shape.ForecastID != nil {
			var prediction models.ForecastPredictions
			if err := json.Unmarshal(trimmed, &prediction); err != nil {
				return fmt.Errorf("decoding forecast predictions: %w", err)
			}
			*p = Payload{Kind: PayloadPrediction, Prediction: &prediction}
			return nil
		}
		var cols models.ColumnarReadings
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return fmt.Errorf("decoding columnar readings: %w", err)
		}
		*p = Payload{Kind: PayloadColumnar, Columnar: &cols}
		return nil
	default:
		return fmt.Errorf("unexpected payload starting with %q", trimmed[0])
	}
}

// PayloadMap keys payloads by gauge id. A malformed entry decodes as an
// empty payload instead of failing the whole map.
type PayloadMap map[string]Payload

var _ json.Unmarshaler = (*PayloadMap)(nil)

func (m *PayloadMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding payload map: %w", err)
	}
	if raw == nil {
		*m = nil
		return nil
	}

	out := make(PayloadMap, len(raw))
	for id, entry := range raw {
		var p Payload
		if err := json.Unmarshal(entry, &p); err != nil {
			log.Warn().Err(err).Str("gauge_id", id).Msg("Skipping malformed payload")
			p = Payload{Kind: PayloadEmpty}
		}
		out[id] = p
	}
	*m = out
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadObjects:
		return json.Marshal(p.Objects)
	case PayloadColumnar:
		return json.Marshal(p.Columnar)
	case PayloadPrediction:
		return json.Marshal(p.Prediction)
	default:
		return []byte("null"), nil
	}
}

// Columns returns the columnar view of any non-empty payload.
func (p Payload) Columns() (models.ColumnarReadings, bool) {
	switch p.Kind {
	case PayloadObjects:
		return ToColumns(p.Objects), true
	case PayloadColumnar:
		return *p.Columnar, true
	case PayloadPrediction:
		return p.Prediction.ColumnarReadings, true
	default:
		return models.ColumnarReadings{}, false
	}
}

// DataPoints normalizes whichever shape the payload holds.
func (p Payload) DataPoints(loc *time.Location) []DataPoint {
	switch p.Kind {
	case PayloadObjects:
		return FromReadings(p.Objects, loc)
	case PayloadColumnar, PayloadPrediction:
		cols, _ := p.Columns()
		return FromColumns(cols, loc)
	default:
		return nil
	}
}

// Package floodapi binds the gauge backend endpoints onto the HTTP transport.
package floodapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/bbernstein/floodwatch/backend-go/internal/reading"
	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

// RecentReadingsResponse maps gauge id to the readings added since the
// watermark that was sent.
type RecentReadingsResponse struct {
	Gauges       reading.PayloadMap `json:"gauges"`
	MaxReadingID *int64             `json:"maxReadingId,omitempty"`
}

// ForecastResponse maps gauge id to its forecast predictions.
type ForecastResponse struct {
	Forecasts reading.PayloadMap `json:"forecasts"`
}

type GaugeReadingsRequest struct {
	LocationID         string
	From               time.Time
	To                 time.Time
	LastReadingID      *int64
	IncludeLastReading bool
	IncludePredictions bool
}

type forecastRequest struct {
	GaugeIDs    []string `json:"gaugeIds"`
	IfNewerThan string   `json:"ifNewerThan"`
}

type Client struct {
	http client.Interface
}

func New(httpClient client.Interface) *Client {
	return &Client{http: httpClient}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// GetGages returns status and recent readings for every gauge in region.
func (c *Client) GetGages(ctx context.Context, region string, from, to time.Time) client.Result[models.GagesResponse] {
	query := url.Values{}
	query.Set("from", formatTime(from))
	query.Set("to", formatTime(to))

	resp, err := c.http.Get(ctx, "/regions/"+url.PathEscape(region)+"/gages", query)
	result := client.Decode[models.GagesResponse](resp, err)
	logResult("GetGages", result.Kind, result.Err)
	return result
}

// GetGaugeReadings returns one gauge's readings for a range.
func (c *Client) GetGaugeReadings(ctx context.Context, req GaugeReadingsRequest) client.Result[models.GaugeReadingsResponse] {
	query := url.Values{}
	query.Set("from", formatTime(req.From))
	query.Set("to", formatTime(req.To))
	query.Set("includeLastReading", strconv.FormatBool(req.IncludeLastReading))
	query.Set("includePredictions", strconv.FormatBool(req.IncludePredictions))
	if req.LastReadingID != nil {
		query.Set("lastReadingId", strconv.FormatInt(*req.LastReadingID, 10))
	}

	resp, err := c.http.Get(ctx, "/gages/"+url.PathEscape(req.LocationID)+"/readings", query)
	result := client.Decode[models.GaugeReadingsResponse](resp, err)
	logResult("GetGaugeReadings", result.Kind, result.Err)
	return result
}

// GetRecentReadings returns readings newer than maxReadingID, or the recent
// window when it is nil.
func (c *Client) GetRecentReadings(ctx context.Context, maxReadingID *int64) client.Result[RecentReadingsResponse] {
	query := url.Values{}
	if maxReadingID != nil {
		query.Set("maxReadingId", strconv.FormatInt(*maxReadingID, 10))
	}

	resp, err := c.http.Get(ctx, "/forecasts/readings", query)
	result := client.Decode[RecentReadingsResponse](resp, err)
	logResult("GetRecentReadings", result.Kind, result.Err)
	return result
}

// GetForecast returns forecast predictions issued after ifNewerThan.
func (c *Client) GetForecast(ctx context.Context, gaugeIDs []string, ifNewerThan time.Time) client.Result[ForecastResponse] {
	body := forecastRequest{
		GaugeIDs:    gaugeIDs,
		IfNewerThan: formatTime(ifNewerThan),
	}

	resp, err := c.http.Post(ctx, "/forecasts", url.Values{"gaugeIds": []string{strings.Join(gaugeIDs, ",")}}, body)
	result := client.Decode[ForecastResponse](resp, err)
	logResult("GetForecast", result.Kind, result.Err)
	return result
}

func logResult(endpoint string, kind client.Kind, err error) {
	if kind == client.KindOK {
		log.Debug().Str("endpoint", endpoint).Msg("Request succeeded")
		return
	}
	log.Warn().Err(err).Str("endpoint", endpoint).Str("kind", string(kind)).Msg("Request failed")
}

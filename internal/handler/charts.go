package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/floodwatch/backend-go/internal/api"
	"github.com/bbernstein/floodwatch/backend-go/internal/cache"
	"github.com/bbernstein/floodwatch/backend-go/internal/chart"
	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/internal/forecast"
	"github.com/bbernstein/floodwatch/backend-go/internal/gauge"
	"github.com/bbernstein/floodwatch/backend-go/internal/locations"
	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type GaugeFetcher interface {
	FetchRangeForGauge(ctx context.Context, locationID string, opts gauge.RangeOptions) error
	GetByLocationID(id string) *gauge.Gauge
}

type ForecastFetcher interface {
	FetchRecentReadings(ctx context.Context) error
	FetchForecast(ctx context.Context) error
	Get(gaugeID string) *forecast.Forecast
	MaxReadingID() *int64
}

type ChartCache interface {
	Get(key string) ([]byte, bool)
	Add(key string, data []byte)
}

// ChartsHandler serves chart options for a gauge (the default) or, with
// kind=forecast, for a forecast gauge.
type ChartsHandler struct {
	gauges    GaugeFetcher
	forecasts ForecastFetcher
	locations locations.Lookup
	builder   *chart.Builder
	cache     ChartCache
	now       func() time.Time
}

type HandlerOption func(*ChartsHandler)

func WithClock(now func() time.Time) HandlerOption {
	return func(h *ChartsHandler) {
		h.now = now
	}
}

func NewChartsHandler(gauges GaugeFetcher, forecasts ForecastFetcher, lookup locations.Lookup, builder *chart.Builder, chartCache ChartCache, opts ...HandlerOption) *ChartsHandler {
	h := &ChartsHandler{
		gauges:    gauges,
		forecasts: forecasts,
		locations: lookup,
		builder:   builder,
		cache:     chartCache,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ChartsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := request.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return withRequestID(requestID)(h.handle(ctx, requestID, request))
}

func (h *ChartsHandler) handle(ctx context.Context, requestID string, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := log.With().Str("request_id", requestID).Logger()

	params := request.QueryStringParameters
	gaugeID := request.PathParameters["gaugeId"]
	if gaugeID == "" {
		gaugeID = params["gaugeId"]
	}
	if gaugeID == "" {
		return api.Error("gaugeId is required", http.StatusBadRequest)
	}

	req, err := api.ParseChartRequest(params)
	if err != nil {
		return api.Error(err.Error(), http.StatusBadRequest)
	}

	if params["kind"] == "forecast" {
		return h.forecastChart(ctx, requestID, gaugeID, req)
	}

	fetchErr := h.gauges.FetchRangeForGauge(ctx, gaugeID, h.rangeOptions(req))
	g := h.gauges.GetByLocationID(gaugeID)
	if fetchErr != nil {
		if g == nil || !g.HasData() {
			logger.Error().Err(fetchErr).Str("gauge_id", gaugeID).Msg("Fetching gauge failed")
			return fetchFailure(fetchErr)
		}
		logger.Warn().Err(fetchErr).Str("gauge_id", gaugeID).Msg("Serving stale gauge data")
	}
	if g == nil {
		return api.Error("Gauge not found", http.StatusNotFound)
	}

	var version int64
	if id := g.LastReadingID(); id != nil {
		version = *id
	} else {
		version = int64(len(g.Readings()))
	}

	return h.cached(chartKey(gaugeID, req, version), func() any {
		status := g.GaugeStatus()
		return api.NewChartResponse(gaugeID, &status, h.builder.BuildGaugeOptions(g, req))
	})
}

// rangeOptions picks the live incremental fetch unless the request names an
// explicit historic window. Historic fetches replace the readings and drop
// the watermark so the next live fetch starts over.
func (h *ChartsHandler) rangeOptions(req chart.Request) gauge.RangeOptions {
	if req.Mode != chart.ModeDetails {
		return gauge.DefaultRangeOptions()
	}
	historic := !req.Start.IsZero() || (!req.End.IsZero() && req.End.Before(h.now()))
	if !historic {
		return gauge.DefaultRangeOptions()
	}

	opts := gauge.RangeOptions{}
	if !req.Start.IsZero() {
		opts.From = &req.Start
	}
	if !req.End.IsZero() {
		opts.To = &req.End
	}
	return opts
}

func (h *ChartsHandler) forecastChart(ctx context.Context, requestID, gaugeID string, req chart.Request) (events.APIGatewayProxyResponse, error) {
	fetchErr := errors.Join(
		h.forecasts.FetchRecentReadings(ctx),
		h.forecasts.FetchForecast(ctx),
	)
	f := h.forecasts.Get(gaugeID)
	if fetchErr != nil {
		if f == nil {
			log.Error().Err(fetchErr).Str("request_id", requestID).Str("gauge_id", gaugeID).Msg("Fetching forecast failed")
			return fetchFailure(fetchErr)
		}
		log.Warn().Err(fetchErr).Str("request_id", requestID).Str("gauge_id", gaugeID).Msg("Serving stale forecast data")
	}
	if f == nil {
		return api.Error("Forecast not found", http.StatusNotFound)
	}

	var version int64
	if id := h.forecasts.MaxReadingID(); id != nil {
		version = *id
	}

	info, _ := h.locations.Lookup(gaugeID)
	return h.cached(chartKey("forecast:"+gaugeID, req, version), func() any {
		return api.NewChartResponse(gaugeID, nil, h.builder.BuildForecastOptions(f, info, req))
	})
}

// cached serves key from the chart cache or renders and stores it.
func (h *ChartsHandler) cached(key string, render func() any) (events.APIGatewayProxyResponse, error) {
	if h.cache != nil {
		if body, ok := h.cache.Get(key); ok {
			return api.SuccessJSON(body)
		}
	}

	body, err := json.Marshal(render())
	if err != nil {
		log.Error().Err(err).Msg("Encoding chart options failed")
		return api.Error("Internal Server Error", http.StatusInternalServerError)
	}
	if h.cache != nil {
		h.cache.Add(key, body)
	}
	return api.SuccessJSON(body)
}

func withRequestID(id string) func(events.APIGatewayProxyResponse, error) (events.APIGatewayProxyResponse, error) {
	return func(resp events.APIGatewayProxyResponse, err error) (events.APIGatewayProxyResponse, error) {
		if resp.Headers == nil {
			resp.Headers = map[string]string{}
		}
		resp.Headers["X-Request-Id"] = id
		return resp, err
	}
}

func chartKey(subject string, req chart.Request, version int64) string {
	return cache.ChartKey(subject, string(req.Mode), string(req.DataType), req.Start, req.End, version)
}

func fetchFailure(err error) (events.APIGatewayProxyResponse, error) {
	var fe *floodapi.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case client.KindTimeout:
			return api.Error("Upstream timed out", http.StatusGatewayTimeout)
		case client.KindNotFound:
			return api.Error("Gauge not found", http.StatusNotFound)
		}
	}
	return api.Error("Upstream unavailable", http.StatusBadGateway)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bbernstein/floodwatch/backend-go/internal/app"
	"github.com/bbernstein/floodwatch/backend-go/internal/config"
	"github.com/bbernstein/floodwatch/backend-go/internal/handler"
	"github.com/rs/zerolog/log"
)

var (
	lambdaStart   = lambda.Start // Allow mocking of lambda.Start in tests
	chartsHandler *handler.ChartsHandler
	setupOnce     sync.Once
	initHandler   = defaultInitHandler
)

func defaultInitHandler(ctx context.Context) (*handler.ChartsHandler, error) {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	a, err := app.New(ctx, cfg, config.GetCacheConfig(), app.Deps{})
	if err != nil {
		return nil, fmt.Errorf("wiring application: %w", err)
	}

	if err := a.RefreshLocations(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting without location data")
	}

	var chartCache handler.ChartCache
	if a.ChartCache != nil {
		chartCache = a.ChartCache
	}
	return handler.NewChartsHandler(a.Gauges, a.Forecasts, a.Catalog, a.Builder, chartCache), nil
}

func InitializeService() error {
	var initError error
	setupOnce.Do(func() {
		var err error
		chartsHandler, err = initHandler(context.Background())
		if err != nil {
			initError = fmt.Errorf("failed to initialize handler: %w", err)
			log.Error().Err(err).Msg("Failed to initialize handler")
		}
	})
	return initError
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if chartsHandler == nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"responseType":"error","error":"Handler not initialized"}`,
		}, fmt.Errorf("handler not initialized")
	}
	return chartsHandler.HandleRequest(ctx, request)
}

func main() {
	if err := InitializeService(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize service")
	}
	lambdaStart(handleRequest)
}

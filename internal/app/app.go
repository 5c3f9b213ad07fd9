// Package app wires the stores, caches and chart builder from configuration.
// Both entrypoints build the same object graph through it.
package app

import (
	"context"
	"fmt"

	"github.com/bbernstein/floodwatch/backend-go/internal/cache"
	"github.com/bbernstein/floodwatch/backend-go/internal/chart"
	"github.com/bbernstein/floodwatch/backend-go/internal/config"
	"github.com/bbernstein/floodwatch/backend-go/internal/floodapi"
	"github.com/bbernstein/floodwatch/backend-go/internal/forecast"
	"github.com/bbernstein/floodwatch/backend-go/internal/gauge"
	"github.com/bbernstein/floodwatch/backend-go/internal/locations"
	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config     *config.Config
	Catalog    *locations.Catalog
	Gauges     *gauge.Store
	Forecasts  *forecast.Store
	Builder    *chart.Builder
	ChartCache *cache.ChartCache
	Snapshots  *cache.S3SnapshotStore

	locationSource *locations.DynamoSource
}

// Deps lets callers substitute the outward-facing clients. Nil fields are
// built from the default AWS configuration.
type Deps struct {
	HTTP   client.Interface
	Dynamo locations.DynamoDBClient
	S3     cache.S3Client
}

func New(ctx context.Context, cfg *config.Config, cacheCfg *config.CacheConfig, deps Deps) (*App, error) {
	if deps.HTTP == nil {
		deps.HTTP = client.New(client.Options{
			BaseURL:    cfg.APIBaseURL,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: cfg.MaxRetries,
		})
	}
	api := floodapi.New(deps.HTTP)
	tz := cfg.Location()

	a := &App{
		Config:  cfg,
		Catalog: locations.NewCatalog(),
	}

	a.Gauges = gauge.NewStore(api, a.Catalog,
		gauge.WithRegion(cfg.Region),
		gauge.WithTimeZone(tz),
	)
	a.Forecasts = forecast.NewStore(api,
		forecast.WithGaugeIDs(cfg.ForecastGaugeIDs...),
		forecast.WithTimeZone(tz),
	)

	builderCfg := chart.DefaultBuilderConfig()
	builderCfg.Crest = chart.CrestConfig{
		MinProminence:  cfg.CrestMinProminenceFt,
		MaxNeighborGap: cfg.CrestMaxNeighborGap,
	}
	a.Builder = chart.NewBuilder(builderCfg)

	if cacheCfg.EnableChartCache {
		chartCache, err := cache.NewChartCache(cacheCfg)
		if err != nil {
			return nil, err
		}
		a.ChartCache = chartCache
	}

	if cacheCfg.EnableSnapshots && cfg.SnapshotBucket != "" {
		if deps.S3 == nil {
			s3Client, err := cache.NewS3Client(ctx)
			if err != nil {
				return nil, err
			}
			deps.S3 = s3Client
		}
		a.Snapshots = cache.NewS3SnapshotStore(deps.S3, cfg.SnapshotBucket, cacheCfg.GetSnapshotTTL())
	}

	if cfg.LocationsTable != "" {
		if deps.Dynamo == nil {
			dynamoClient, err := cache.NewDynamoClient(ctx, cfg.DynamoEndpoint)
			if err != nil {
				return nil, fmt.Errorf("creating DynamoDB client: %w", err)
			}
			deps.Dynamo = dynamoClient
		}
		a.locationSource = locations.NewDynamoSource(deps.Dynamo, cfg.LocationsTable)
	}

	log.Info().
		Str("region", cfg.Region).
		Str("time_zone", tz.String()).
		Bool("chart_cache", a.ChartCache != nil).
		Bool("snapshots", a.Snapshots != nil).
		Msg("Application wired")

	return a, nil
}

// RefreshLocations reloads the location catalog. Without a table it is a
// no-op.
func (a *App) RefreshLocations(ctx context.Context) error {
	if a.locationSource == nil {
		return nil
	}
	if err := a.locationSource.Refresh(ctx, a.Catalog); err != nil {
		return err
	}
	log.Debug().Int("count", a.Catalog.Len()).Msg("Refreshed locations")
	return nil
}

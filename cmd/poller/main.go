package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/app"
	"github.com/bbernstein/floodwatch/backend-go/internal/config"
	"github.com/bbernstein/floodwatch/backend-go/internal/poller"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func newPoller(a *app.App) *poller.Poller {
	cfg := a.Config
	opts := []poller.Option{
		poller.WithIntervals(poller.Intervals{
			Gauges:    cfg.GaugePollInterval,
			Readings:  cfg.ReadingsPollInterval,
			Forecasts: cfg.ForecastPollInterval,
		}),
		poller.WithLocationRefresh(a.RefreshLocations),
		poller.WithJobTimeout(2 * cfg.HTTPTimeout * time.Duration(cfg.MaxRetries+1)),
	}
	if a.Snapshots != nil {
		opts = append(opts, poller.WithSnapshots(a.Snapshots))
	}
	return poller.New(a.Gauges, a.Forecasts, opts...)
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg, config.GetCacheConfig(), app.Deps{})
	if err != nil {
		return err
	}

	p := newPoller(a)
	if err := p.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Restoring snapshots failed")
	}
	if err := p.Baseline(ctx); err != nil {
		log.Warn().Err(err).Msg("Baseline fetch incomplete")
	}
	if err := p.Start(ctx); err != nil {
		return err
	}

	srv := newMetricsServer(cfg.MetricsAddr)
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	<-p.Stop().Done()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Poller failed")
	}
}

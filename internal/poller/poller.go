// Package poller keeps the gauge and forecast stores warm on a schedule and
// persists their snapshots between runs.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/forecast"
	"github.com/bbernstein/floodwatch/backend-go/internal/gauge"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	gaugeSnapshot    = "gauges"
	forecastSnapshot = "forecasts"
)

type GaugeStore interface {
	FetchAll(ctx context.Context) error
	Snapshot() gauge.Snapshot
	Restore(snap gauge.Snapshot)
}

type ForecastStore interface {
	FetchData(ctx context.Context) error
	FetchRecentReadings(ctx context.Context) error
	FetchForecast(ctx context.Context) error
	Snapshot() forecast.Snapshot
	Restore(snap forecast.Snapshot)
}

// SnapshotStore persists named JSON documents. *cache.S3SnapshotStore
// satisfies it.
type SnapshotStore interface {
	Save(ctx context.Context, name string, v any) error
	Load(ctx context.Context, name string, v any) (bool, error)
}

type Intervals struct {
	Gauges    time.Duration
	Readings  time.Duration
	Forecasts time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Gauges:    5 * time.Minute,
		Readings:  time.Minute,
		Forecasts: 30 * time.Minute,
	}
}

type Option func(*Poller)

func WithIntervals(iv Intervals) Option {
	return func(p *Poller) {
		def := DefaultIntervals()
		if iv.Gauges <= 0 {
			iv.Gauges = def.Gauges
		}
		if iv.Readings <= 0 {
			iv.Readings = def.Readings
		}
		if iv.Forecasts <= 0 {
			iv.Forecasts = def.Forecasts
		}
		p.intervals = iv
	}
}

// WithSnapshots enables restoring at startup and saving after each job.
func WithSnapshots(store SnapshotStore) Option {
	return func(p *Poller) {
		p.snapshots = store
	}
}

// WithLocationRefresh runs refresh before the baseline fetch and on the
// gauge schedule.
func WithLocationRefresh(refresh func(ctx context.Context) error) Option {
	return func(p *Poller) {
		p.refreshLocations = refresh
	}
}

// WithJobTimeout bounds each scheduled job.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.jobTimeout = d
		}
	}
}

type Poller struct {
	gauges           GaugeStore
	forecasts        ForecastStore
	snapshots        SnapshotStore
	refreshLocations func(ctx context.Context) error
	intervals        Intervals
	jobTimeout       time.Duration
	cron             *cron.Cron
}

func New(gauges GaugeStore, forecasts ForecastStore, opts ...Option) *Poller {
	p := &Poller{
		gauges:     gauges,
		forecasts:  forecasts,
		intervals:  DefaultIntervals(),
		jobTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	return p
}

// Restore loads any saved snapshots into the stores. Missing or expired
// snapshots are not an error.
func (p *Poller) Restore(ctx context.Context) error {
	if p.snapshots == nil {
		return nil
	}

	var errs []error

	var gs gauge.Snapshot
	if ok, err := p.snapshots.Load(ctx, gaugeSnapshot, &gs); err != nil {
		errs = append(errs, err)
	} else if ok {
		p.gauges.Restore(gs)
	}

	var fs forecast.Snapshot
	if ok, err := p.snapshots.Load(ctx, forecastSnapshot, &fs); err != nil {
		errs = append(errs, err)
	} else if ok {
		p.forecasts.Restore(fs)
	}

	return errors.Join(errs...)
}

// Baseline refreshes locations, then fetches every gauge and the forecast
// data concurrently. A failure in one store does not cancel the other.
func (p *Poller) Baseline(ctx context.Context) error {
	if p.refreshLocations != nil {
		if err := p.refreshLocations(ctx); err != nil {
			log.Error().Err(err).Msg("Refreshing locations failed")
		}
	}

	// A plain Group has no derived context, so one failure leaves the other
	// fetch running. Wait only reports the first error; both are kept.
	var (
		g        errgroup.Group
		gaugeErr error
		fcErr    error
	)
	g.Go(func() error {
		gaugeErr = p.gauges.FetchAll(ctx)
		return gaugeErr
	})
	g.Go(func() error {
		fcErr = p.forecasts.FetchData(ctx)
		return fcErr
	})
	err := g.Wait()

	p.saveSnapshots(ctx)
	if err != nil {
		return errors.Join(gaugeErr, fcErr)
	}
	return nil
}

// Start schedules the recurring jobs.
func (p *Poller) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		interval time.Duration
		run      func(ctx context.Context) error
	}{
		{"gauges", p.intervals.Gauges, p.pollGauges},
		{"readings", p.intervals.Readings, p.forecasts.FetchRecentReadings},
		{"forecasts", p.intervals.Forecasts, p.forecasts.FetchForecast},
	}

	for _, job := range jobs {
		spec := "@every " + job.interval.String()
		if _, err := p.cron.AddFunc(spec, func() { p.runJob(ctx, job.name, job.run) }); err != nil {
			return fmt.Errorf("scheduling %s job: %w", job.name, err)
		}
		log.Info().Str("job", job.name).Dur("interval", job.interval).Msg("Scheduled poll job")
	}

	p.cron.Start()
	return nil
}

// Stop halts scheduling. The returned context is done once running jobs have
// finished.
func (p *Poller) Stop() context.Context {
	return p.cron.Stop()
}

func (p *Poller) pollGauges(ctx context.Context) error {
	if p.refreshLocations != nil {
		if err := p.refreshLocations(ctx); err != nil {
			log.Error().Err(err).Msg("Refreshing locations failed")
		}
	}
	return p.gauges.FetchAll(ctx)
}

func (p *Poller) runJob(parent context.Context, name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, p.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := run(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Msg("Poll job failed")
	} else {
		log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Poll job done")
	}
	p.saveSnapshots(ctx)
}

func (p *Poller) saveSnapshots(ctx context.Context) {
	if p.snapshots == nil {
		return
	}
	if err := p.snapshots.Save(ctx, gaugeSnapshot, p.gauges.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("Saving gauge snapshot failed")
	}
	if err := p.snapshots.Save(ctx, forecastSnapshot, p.forecasts.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("Saving forecast snapshot failed")
	}
}

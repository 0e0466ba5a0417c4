package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many airports are refreshed at once.
const DefaultConcurrency = 4

// Scheduler periodically refreshes every tracked airport.
type Scheduler struct {
	svc         *Service
	cron        *cron.Cron
	concurrency int
	log         *slog.Logger
}

// NewScheduler registers the refresh job on schedule, which accepts standard
// five-field cron expressions and descriptors such as "@every 15m".
// ctx bounds every scheduled run.
func NewScheduler(ctx context.Context, svc *Service, schedule string, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		svc:         svc,
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		concurrency: DefaultConcurrency,
		log:         log,
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		failed, err := s.RefreshTracked(ctx)
		if err != nil {
			s.log.Error("scheduled refresh failed", "err", err)
			return
		}
		if failed > 0 {
			s.log.Warn("scheduled refresh finished with failures", "failed", failed)
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling refresh %q: %w", schedule, err)
	}

	return s, nil
}

// Start runs the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("refresh scheduler started")
}

// Stop halts the scheduler and returns a context that is done once any
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RefreshTracked refreshes every tracked airport with bounded concurrency and
// returns how many failed. Only a failure to list airports is returned as an error.
func (s *Scheduler) RefreshTracked(ctx context.Context) (int, error) {
	airports, err := s.svc.store.ListTrackedAirports(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing tracked airports: %w", err)
	}

	var failed atomic.Int32
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, a := range airports {
		icao := a.ICAO
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("airport refresh panicked", "icao", icao, "recover", r)
					failed.Add(1)
				}
			}()
			if _, err := s.svc.refresh(gCtx, icao, TriggerSchedule); err != nil {
				s.log.Warn("airport refresh failed", "icao", icao, "err", err)
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("tracked airports refreshed", "total", len(airports), "failed", failed.Load())
	return int(failed.Load()), nil
}

// Package scheduler drives the background cycles: the three price
// refresh workers and the alert evaluation engine, each on its own cron
// cadence. Jobs run in singleton mode, so a cycle still in flight when
// its next invocation fires is skipped rather than overlapped.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"pricetracker/config"
	"pricetracker/services"
)

// Scheduler owns the gocron instance and the job wiring.
type Scheduler struct {
	cron   *gocron.Scheduler
	cfg    *config.Config
	crypto *services.CryptoService
	stocks *services.StockService
	forex  *services.ForexService
	alerts *services.AlertService
	hub    *services.RealtimeHub
	logger zerolog.Logger
}

// New creates a scheduler over the given services. hub may be nil when
// streaming is disabled.
func New(cfg *config.Config, crypto *services.CryptoService, stocks *services.StockService, forex *services.ForexService, alerts *services.AlertService, hub *services.RealtimeHub, logger zerolog.Logger) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Scheduler{
		cron:   cron,
		cfg:    cfg,
		crypto: crypto,
		stocks: stocks,
		forex:  forex,
		alerts: alerts,
		hub:    hub,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers every job with its configured cron expression and
// starts the scheduler asynchronously.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		cron string
		run  func()
	}{
		{"refresh_crypto", s.cfg.CryptoUpdateCron, s.refreshCrypto},
		{"refresh_stocks", s.cfg.StockUpdateCron, s.refreshStocks},
		{"refresh_forex", s.cfg.ForexUpdateCron, s.refreshForex},
		{"check_alerts", s.cfg.AlertCheckCron, s.checkAlerts},
	}

	for _, job := range jobs {
		if _, err := s.cron.Cron(job.cron).Tag(job.name).Do(job.run); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.cron, err)
		}
		s.logger.Info().Str("job", job.name).Str("cron", job.cron).Msg("job scheduled")
	}

	s.cron.StartAsync()
	s.logger.Info().Msg("scheduler started")
	return nil
}

// Stop halts the scheduler, letting running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
}

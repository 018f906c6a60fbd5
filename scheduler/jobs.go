package scheduler

import (
	"context"

	"pricetracker/metrics"
)

// Job bodies. Each cycle is bounded by the upstream timeout inside the
// services; a failed cycle is logged and retried by the next scheduled
// invocation, never by an in-process retry loop.

func (s *Scheduler) refreshCrypto() {
	ctx := context.Background()
	updated, err := s.crypto.RefreshPrices(ctx)
	if err != nil {
		metrics.RefreshCycles.WithLabelValues("crypto", "error").Inc()
		s.logger.Error().Err(err).Msg("crypto refresh cycle failed")
		return
	}
	metrics.RefreshCycles.WithLabelValues("crypto", "ok").Inc()

	if s.hub != nil && updated > 0 {
		if prices, err := s.crypto.GetAll(ctx); err == nil {
			s.hub.Publish("crypto", prices)
		}
	}
}

func (s *Scheduler) refreshStocks() {
	ctx := context.Background()
	updated, err := s.stocks.RefreshPrices(ctx)
	if err != nil {
		metrics.RefreshCycles.WithLabelValues("stock", "error").Inc()
		s.logger.Error().Err(err).Msg("stock refresh cycle failed")
		return
	}
	metrics.RefreshCycles.WithLabelValues("stock", "ok").Inc()

	if s.hub != nil && updated > 0 {
		if prices, err := s.stocks.GetAll(ctx); err == nil {
			s.hub.Publish("stock", prices)
		}
	}
}

func (s *Scheduler) refreshForex() {
	ctx := context.Background()
	updated, err := s.forex.RefreshRates(ctx)
	if err != nil {
		metrics.RefreshCycles.WithLabelValues("forex", "error").Inc()
		s.logger.Error().Err(err).Msg("forex refresh cycle failed")
		return
	}
	metrics.RefreshCycles.WithLabelValues("forex", "ok").Inc()

	if s.hub != nil && updated > 0 {
		if rates, err := s.forex.GetAll(ctx); err == nil {
			s.hub.Publish("forex", rates)
		}
	}
}

func (s *Scheduler) checkAlerts() {
	report, err := s.alerts.CheckAlerts(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("alert check cycle failed")
		return
	}
	s.logger.Info().
		Int("checked", report.Checked).
		Int("triggered", report.Triggered).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("alert check cycle completed")
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/store"
)

// Sweeper periodically retries failed deliveries that still have retry
// budget, spacing attempts with exponential backoff. Operator-initiated
// retries share the same claim, so the two can never double-send.
type Sweeper struct {
	dispatcher *Dispatcher
	logs       *store.DeliveryLogs
	backoff    time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
}

func NewSweeper(dispatcher *Dispatcher, logs *store.DeliveryLogs, backoff time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dispatcher: dispatcher,
		logs:       logs,
		backoff:    backoff,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start schedules Sweep on the given cron spec (e.g. "@every 1m").
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("retry sweeper started", "spec", spec, "backoff_base", s.backoff)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep retries every failed entry whose backoff window has elapsed.
func (s *Sweeper) Sweep(ctx context.Context) {
	entries, err := s.logs.ListFailedRetryable(ctx)
	if err != nil {
		s.logger.Error("sweep: listing failed deliveries", "error", err)
		return
	}
	now := time.Now().UTC()
	for _, entry := range entries {
		if now.Sub(entry.UpdatedAt) < s.delay(entry.RetryCount) {
			continue
		}
		if _, err := s.dispatcher.Retry(ctx, entry.ID); err != nil {
			// Races with operator retries surface as typed errors; skip them.
			if errors.Is(err, models.ErrRetryExhausted) || errors.Is(err, models.ErrInvalidState) {
				continue
			}
			s.logger.Error("sweep: retry failed", "log_id", entry.ID, "error", err)
		}
	}
}

// delay doubles per retry already used: base, 2x, 4x.
func (s *Sweeper) delay(retryCount int) time.Duration {
	return s.backoff << uint(retryCount)
}

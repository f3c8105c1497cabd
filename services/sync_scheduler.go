package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// The weekly slot mirrors the Monday 04:00 cron of the original
	// deployment; ratings only move on weekends and league night.
	syncSlotWeekday = time.Monday
	syncSlotHour    = 4

	// Upper bound for one full pipeline run; a hung provider call must
	// not stall the scheduler forever.
	syncRunTimeout = 30 * time.Minute
)

// SyncScheduler owns the two triggers of the pipeline: the optional
// synchronous startup run and the recurring weekly slot. A single-slot
// semaphore guarantees at most one run in flight no matter how the
// triggers line up.
type SyncScheduler struct {
	syncService SyncService
	sem         *semaphore.Weighted
	logger      *slog.Logger
	loc         *time.Location
}

func NewSyncScheduler(syncService SyncService, logger *slog.Logger, loc *time.Location) *SyncScheduler {
	return &SyncScheduler{
		syncService: syncService,
		sem:         semaphore.NewWeighted(1),
		logger:      logger,
		loc:         loc,
	}
}

// RunStartup fires the pipeline once, synchronously. The caller treats a
// failure here as fatal: the first run gates readiness.
func (s *SyncScheduler) RunStartup(ctx context.Context) error {
	return s.runOnce(ctx)
}

// Start blocks and fires the pipeline once per weekly slot until the
// context is canceled. Failures of scheduled runs are logged and the
// scheduler moves on to the next slot.
func (s *SyncScheduler) Start(ctx context.Context) {
	for {
		next := s.NextSlot(time.Now())
		s.logger.Info("next scheduled sync", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sync scheduler stopped")
			return
		case <-timer.C:
		}

		if err := s.runOnce(ctx); err != nil {
			if errors.Is(err, ErrSyncAlreadyRunning) {
				s.logger.Warn("scheduled sync skipped, previous run still in flight")
			} else {
				s.logger.Error("scheduled sync failed", slog.Any("error", err))
			}
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) error {
	if !s.sem.TryAcquire(1) {
		return ErrSyncAlreadyRunning
	}
	defer s.sem.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, syncRunTimeout)
	defer cancel()
	return s.syncService.Run(runCtx)
}

// NextSlot returns the first weekly slot strictly after now in the
// scheduler's timezone.
func (s *SyncScheduler) NextSlot(now time.Time) time.Time {
	now = now.In(s.loc)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), syncSlotHour, 0, 0, 0, s.loc)
	for candidate.Weekday() != syncSlotWeekday || !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

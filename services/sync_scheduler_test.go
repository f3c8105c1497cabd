package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingSyncService struct {
	started  chan struct{}
	release  chan struct{}
	runCount int
}

func (b *blockingSyncService) Run(ctx context.Context) error {
	b.runCount++
	close(b.started)
	<-b.release
	return nil
}

func TestSchedulerRejectsOverlappingRuns(t *testing.T) {
	blocking := &blockingSyncService{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	scheduler := NewSyncScheduler(blocking, testLogger(), time.UTC)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- scheduler.RunStartup(context.Background())
	}()

	select {
	case <-blocking.started:
	case <-time.After(time.Second):
		t.Fatal("first run never started")
	}

	err := scheduler.RunStartup(context.Background())
	require.ErrorIs(t, err, ErrSyncAlreadyRunning)

	close(blocking.release)
	require.NoError(t, <-firstDone)
	require.Equal(t, 1, blocking.runCount)
}

func TestNextSlotMidweek(t *testing.T) {
	scheduler := NewSyncScheduler(nil, testLogger(), time.UTC)

	// Wednesday 2026-08-26 12:00 UTC -> Monday 2026-08-31 04:00 UTC
	now := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	next := scheduler.NextSlot(now)
	require.Equal(t, time.Date(2026, time.August, 31, 4, 0, 0, 0, time.UTC), next)
}

func TestNextSlotEarlyMondayStaysSameDay(t *testing.T) {
	scheduler := NewSyncScheduler(nil, testLogger(), time.UTC)

	now := time.Date(2026, time.August, 31, 3, 59, 0, 0, time.UTC)
	next := scheduler.NextSlot(now)
	require.Equal(t, time.Date(2026, time.August, 31, 4, 0, 0, 0, time.UTC), next)
}

func TestNextSlotExactlyOnSlotMovesToNextWeek(t *testing.T) {
	scheduler := NewSyncScheduler(nil, testLogger(), time.UTC)

	now := time.Date(2026, time.August, 31, 4, 0, 0, 0, time.UTC)
	next := scheduler.NextSlot(now)
	require.Equal(t, time.Date(2026, time.September, 7, 4, 0, 0, 0, time.UTC), next)
}

func TestNextSlotHonorsTimezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	scheduler := NewSyncScheduler(nil, testLogger(), tokyo)

	// Sunday 23:00 UTC is already Monday 08:00 in Tokyo, past the slot.
	now := time.Date(2026, time.August, 30, 23, 0, 0, 0, time.UTC)
	next := scheduler.NextSlot(now)
	require.Equal(t, time.Date(2026, time.September, 7, 4, 0, 0, 0, tokyo), next)
}

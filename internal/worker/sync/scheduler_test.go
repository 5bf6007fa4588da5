package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/ichiba/internal/places"
)

type mockSyncRunner struct {
	syncStaleFn func(ctx context.Context, olderThan time.Time) (*places.SyncResult, error)
}

func (m *mockSyncRunner) SyncStale(ctx context.Context, olderThan time.Time) (*places.SyncResult, error) {
	if m.syncStaleFn != nil {
		return m.syncStaleFn(ctx, olderThan)
	}
	return &places.SyncResult{}, nil
}

var _ SyncRunner = (*mockSyncRunner)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRunOnce_PassesStaleCutoff(t *testing.T) {
	var gotOlderThan time.Time
	runner := &mockSyncRunner{
		syncStaleFn: func(ctx context.Context, olderThan time.Time) (*places.SyncResult, error) {
			gotOlderThan = olderThan
			return &places.SyncResult{Attempted: 2, Succeeded: 2}, nil
		},
	}
	s := NewScheduler(runner, testLogger(), SchedulerConfig{StaleDays: 7})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	want := time.Now().AddDate(0, 0, -7)
	if diff := want.Sub(gotOlderThan); diff < -time.Minute || diff > time.Minute {
		t.Errorf("olderThan = %v, want about %v", gotOlderThan, want)
	}
}

func TestRunOnce_PropagatesBatchFailure(t *testing.T) {
	runner := &mockSyncRunner{
		syncStaleFn: func(ctx context.Context, olderThan time.Time) (*places.SyncResult, error) {
			return nil, errors.New("database down")
		},
	}
	s := NewScheduler(runner, testLogger(), SchedulerConfig{})

	if err := s.RunOnce(context.Background()); err == nil {
		t.Error("expected error when the batch itself fails")
	}
}

func TestNewScheduler_AppliesDefaults(t *testing.T) {
	s := NewScheduler(&mockSyncRunner{}, testLogger(), SchedulerConfig{})

	if s.config.Interval != 6*time.Hour {
		t.Errorf("Interval = %v, want 6h", s.config.Interval)
	}
	if s.config.StaleDays != 7 {
		t.Errorf("StaleDays = %d, want 7", s.config.StaleDays)
	}
}

func TestStart_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	ran := make(chan struct{}, 1)
	runner := &mockSyncRunner{
		syncStaleFn: func(ctx context.Context, olderThan time.Time) (*places.SyncResult, error) {
			select {
			case ran <- struct{}{}:
			default:
			}
			return &places.SyncResult{}, nil
		},
	}
	s := NewScheduler(runner, testLogger(), SchedulerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("scheduler should run once at startup")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler should stop on context cancel")
	}
}

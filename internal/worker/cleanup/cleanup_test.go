package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type mockSessionPurger struct {
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionPurger) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

var _ SessionPurger = (*mockSessionPurger)(nil)

type mockPurgeRecorder struct {
	recorded []int64
}

func (m *mockPurgeRecorder) RecordSessionsPurged(count int64) {
	m.recorded = append(m.recorded, count)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRun_PurgesAndRecords(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 5, nil },
	}
	recorder := &mockPurgeRecorder{}
	job := NewCleanupJob(purger, recorder, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(recorder.recorded) != 1 || recorder.recorded[0] != 5 {
		t.Errorf("recorded = %v, want [5]", recorder.recorded)
	}
}

func TestRun_NothingToPurge_SkipsMetric(t *testing.T) {
	recorder := &mockPurgeRecorder{}
	job := NewCleanupJob(&mockSessionPurger{}, recorder, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(recorder.recorded) != 0 {
		t.Errorf("recorded = %v, want no metric for a zero purge", recorder.recorded)
	}
}

func TestRun_PropagatesError(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("database down")
		},
	}
	job := NewCleanupJob(purger, nil, testLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Error("expected error when the purge fails")
	}
}

func TestRun_NilRecorder(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 3, nil },
	}
	job := NewCleanupJob(purger, nil, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v, recorder should be optional", err)
	}
}

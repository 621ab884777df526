package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"khata/internal/log"
)

type fakeLedger struct {
	snapshots int
	prunes    int
	err       error
}

func (f *fakeLedger) Snapshot(context.Context) (string, error) {
	f.snapshots++
	return "auto-backup-1", f.err
}

func (f *fakeLedger) PruneMonthlyTotals() error {
	f.prunes++
	return f.err
}

type fakeCaches struct{ calls int }

func (f *fakeCaches) CleanAll() int {
	f.calls++
	return 2
}

func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		jobs    int
		wantErr bool
	}{
		{"both jobs", Config{SnapshotSchedule: "*/30 * * * *", CleanupSchedule: "0 3 * * *"}, 2, false},
		{"snapshot disabled", Config{CleanupSchedule: "0 3 * * *"}, 1, false},
		{"nothing scheduled", Config{}, 0, false},
		{"invalid expression", Config{SnapshotSchedule: "every day"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(&fakeLedger{}, nil, tt.cfg, log.Discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewScheduler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Jobs() != tt.jobs {
				t.Errorf("Jobs() = %d, want %d", s.Jobs(), tt.jobs)
			}
		})
	}
}

func TestRunJobs(t *testing.T) {
	ledger := &fakeLedger{}
	caches := &fakeCaches{}
	s, err := NewScheduler(ledger, caches, Config{}, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.RunSnapshot(ctx); err != nil || ledger.snapshots != 1 {
		t.Errorf("RunSnapshot() = %v, snapshots = %d", err, ledger.snapshots)
	}
	if err := s.RunCleanup(ctx); err != nil || ledger.prunes != 1 || caches.calls != 1 {
		t.Errorf("RunCleanup() = %v, prunes = %d, cache cleans = %d", err, ledger.prunes, caches.calls)
	}

	ledger.err = errors.New("disk full")
	if err := s.RunCleanup(ctx); err == nil {
		t.Error("RunCleanup should report prune failures")
	}
	if caches.calls != 1 {
		t.Error("caches must not be cleaned after a failed prune")
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	s, err := NewScheduler(&fakeLedger{}, nil, Config{SnapshotSchedule: "@every 1h"}, log.Discard())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}
	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := NewScheduler(&fakeLedger{}, nil, Config{}, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Second) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

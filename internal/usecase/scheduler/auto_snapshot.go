package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/simaogato/networth-backend/internal/domain"
)

// Snapshotter appends a snapshot of the current balances to the stored document
type Snapshotter interface {
	Snapshot(ctx context.Context) (*domain.Document, error)
}

// AutoSnapshotScheduler records balance snapshots on a cron schedule
type AutoSnapshotScheduler struct {
	cron        *cron.Cron
	store       domain.SnapshotStore
	snapshotter Snapshotter
	logger      *slog.Logger
	timeout     time.Duration
}

// NewAutoSnapshotScheduler creates a scheduler for a standard 5-field cron spec
// (descriptors such as "@monthly" are accepted too)
func NewAutoSnapshotScheduler(
	spec string,
	store domain.SnapshotStore,
	snapshotter Snapshotter,
	logger *slog.Logger,
) (*AutoSnapshotScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AutoSnapshotScheduler{
		cron:        cron.New(),
		store:       store,
		snapshotter: snapshotter,
		logger:      logger,
		timeout:     30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, &domain.ValidationError{Field: "AUTO_SNAPSHOT_CRON", Reason: err.Error()}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine
func (s *AutoSnapshotScheduler) Start() {
	s.logger.Info("auto snapshot scheduler started")
	s.cron.Start()
}

// Stop stops scheduling and waits for a running snapshot to finish or ctx to expire
func (s *AutoSnapshotScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop scheduler: %w", ctx.Err())
	}
}

// RunOnce records one snapshot. A document without accounts is skipped.
// It reports whether a snapshot was recorded.
func (s *AutoSnapshotScheduler) RunOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "auto snapshot failed", "error", err)
		return false
	}
	if len(doc.Accounts) == 0 {
		s.logger.InfoContext(ctx, "auto snapshot skipped, no accounts")
		return false
	}

	next, err := s.snapshotter.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "auto snapshot failed", "error", err)
		return false
	}
	s.logger.InfoContext(ctx, "auto snapshot recorded", "history", len(next.History))
	return true
}

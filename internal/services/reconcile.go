package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/store"
)

// ReconcileWorker periodically repairs derived state: cached upvote counts
// are recomputed from the ledger and old read notifications are purged.
type ReconcileWorker struct {
	store     store.Store
	retention time.Duration
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewReconcileWorker creates a new background reconcile worker. A zero
// retention keeps read notifications forever.
func NewReconcileWorker(st store.Store, retention time.Duration, logger *zap.SugaredLogger) *ReconcileWorker {
	return &ReconcileWorker{store: st, retention: retention, logger: logger, now: time.Now}
}

// Start runs a pass immediately and then every interval until ctx is done.
func (w *ReconcileWorker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and reports what it changed.
func (w *ReconcileWorker) RunOnce(ctx context.Context) ReconcileResult {
	var res ReconcileResult

	fixed, err := w.store.RecountUpvotes(ctx)
	if err != nil {
		w.logger.Errorw("Upvote recount failed", "error", err)
		res.Errors++
	} else {
		res.CountsFixed = fixed
		if fixed > 0 {
			w.logger.Warnw("Corrected drifted upvote counts", "tickets", fixed)
		}
	}

	if w.retention > 0 {
		purged, err := w.store.PurgeRead(ctx, w.now().Add(-w.retention))
		if err != nil {
			w.logger.Errorw("Notification purge failed", "error", err)
			res.Errors++
		} else {
			res.NotificationsPurged = purged
		}
	}

	w.logger.Debugw("Reconcile pass complete",
		"counts_fixed", res.CountsFixed,
		"notifications_purged", res.NotificationsPurged,
	)
	return res
}

// ReconcileResult summarizes one pass.
type ReconcileResult struct {
	CountsFixed         int
	NotificationsPurged int
	Errors              int
}

// Package workers contains long-running background maintenance tasks.
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/database"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// CleanupWorker prunes negotiation history past the retention window and
// reclaims database space.
type CleanupWorker struct {
	db         *database.DB
	config     *config.RetentionConfig
	lastVacuum time.Time
}

// NewCleanupWorker creates a new cleanup worker.
func NewCleanupWorker(db *database.DB, cfg *config.RetentionConfig) *CleanupWorker {
	return &CleanupWorker{
		db:     db,
		config: cfg,
	}
}

// Start runs the cleanup loop until the context is cancelled. The first pass
// runs immediately.
func (w *CleanupWorker) Start(ctx context.Context) {
	util.Info("Starting cleanup worker",
		"interval", w.config.CleanupInterval,
		"negotiation_days", w.config.NegotiationDays,
	)

	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			util.Info("Cleanup worker stopping")
			return
		case <-ticker.C:
			w.runCleanup(ctx)
		}
	}
}

func (w *CleanupWorker) runCleanup(ctx context.Context) {
	util.Debug("Running cleanup tasks")

	w.cleanupNegotiations(ctx)
	w.maybeVacuum(ctx)
}

// cleanupNegotiations removes negotiations older than the retention window.
// Audit-trail rows cascade via the foreign key.
func (w *CleanupWorker) cleanupNegotiations(ctx context.Context) {
	result, err := w.db.ExecContext(ctx, `
		DELETE FROM negotiations
		WHERE created_at < datetime('now', ?)
	`, fmt.Sprintf("-%d days", w.config.NegotiationDays))

	if err != nil {
		util.Error("Failed to cleanup negotiations", "error", err)
		return
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		util.Info("Cleaned up old negotiations", "count", rows)
	}
}

// maybeVacuum runs VACUUM at most once every 24 hours.
func (w *CleanupWorker) maybeVacuum(ctx context.Context) {
	if !w.lastVacuum.IsZero() && time.Since(w.lastVacuum) < 24*time.Hour {
		return
	}

	util.Info("Running database VACUUM")
	if _, err := w.db.ExecContext(ctx, `VACUUM`); err != nil {
		util.Error("Failed to VACUUM database", "error", err)
		return
	}
	w.lastVacuum = time.Now()
}

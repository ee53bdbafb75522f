// File path: internal/task/runner.go

// Package task drains the persistent task queue, running build and refresh
// jobs strictly one at a time and recording their lifecycle in the store.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/common/telemetry"
	"github.com/nicodishanthj/Trawl_phase1/internal/source"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// Executor runs one ticket through the gather-and-build pipeline. A nil
// since means a full build; a refresh passes the window start.
type Executor interface {
	Execute(ctx context.Context, ticketID string, since *time.Time) (string, error)
}

// Runner owns the task loop.
type Runner struct {
	store *store.Store
	exec  Executor
	cfg   Config
}

// NewRunner constructs a runner over the given store and executor.
func NewRunner(st *store.Store, exec Executor, cfg Config) *Runner {
	return &Runner{store: st, exec: exec, cfg: applyDefaults(cfg)}
}

// Run polls for work until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	logger := common.Logger()
	logger.Info("task: runner started", "poll", r.cfg.PollInterval.String())
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if err := r.QueueStale(ctx); err != nil {
			logger.Warn("task: staleness scan failed", "error", err)
		}
		if _, err := r.ProcessPending(ctx); err != nil {
			logger.Warn("task: processing failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("task: runner stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessPending drains the pending queue in creation order, one task at
// a time. Task failures are recorded and do not stop the drain; the error
// return covers store access only.
func (r *Runner) ProcessPending(ctx context.Context) (int, error) {
	logger := common.Logger()
	pending, err := r.store.PendingTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending tasks: %w", err)
	}
	processed := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := r.store.UpdateTaskStatus(ctx, task.ID, store.StatusInProgress, ""); err != nil {
			return processed, fmt.Errorf("mark task %d in progress: %w", task.ID, err)
		}

		var since *time.Time
		if task.TaskType == store.TaskRefresh {
			since = r.refreshWindow(ctx, task.TicketID)
		}
		filename, runErr := r.exec.Execute(ctx, task.TicketID, since)
		if runErr != nil {
			var authErr *source.AuthError
			if errors.As(runErr, &authErr) {
				logger.Warn("task: authentication failed, not retrying",
					"task", task.ID, "ticket", task.TicketID, "source", authErr.Source)
			} else {
				logger.Warn("task: execution failed",
					"task", task.ID, "ticket", task.TicketID, "error", runErr)
			}
			if err := r.store.UpdateTaskStatus(ctx, task.ID, store.StatusFailed, runErr.Error()); err != nil {
				return processed, fmt.Errorf("mark task %d failed: %w", task.ID, err)
			}
			telemetry.RecordTask(store.StatusFailed)
			processed++
			continue
		}
		if err := r.store.UpdateTaskStatus(ctx, task.ID, store.StatusCompleted, ""); err != nil {
			return processed, fmt.Errorf("mark task %d completed: %w", task.ID, err)
		}
		telemetry.RecordTask(store.StatusCompleted)
		logger.Info("task: completed", "task", task.ID, "ticket", task.TicketID, "filename", filename)
		processed++
	}
	return processed, nil
}

// refreshWindow derives the search window start for a refresh: the oldest
// per-source fetch time on record, or RefreshInterval ago when the ticket
// has no history.
func (r *Runner) refreshWindow(ctx context.Context, ticketID string) *time.Time {
	fallback := time.Now().UTC().Add(-r.cfg.RefreshInterval)
	record, err := r.store.Document(ctx, ticketID)
	if err != nil || record == nil {
		return &fallback
	}
	history, err := r.store.FetchHistory(ctx, record.ID)
	if err != nil || len(history) == 0 {
		return &fallback
	}
	oldest := history[0].LastFetched
	for _, entry := range history[1:] {
		if entry.LastFetched.Before(oldest) {
			oldest = entry.LastFetched
		}
	}
	return &oldest
}

// QueueStale enqueues a refresh for every tracked document whose last
// update predates the staleness threshold and which has no task already
// queued or running.
func (r *Runner) QueueStale(ctx context.Context) error {
	documents, err := r.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(documents) == 0 {
		return nil
	}
	pending, err := r.store.PendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	busy := make(map[string]struct{}, len(pending))
	for _, task := range pending {
		busy[task.TicketID] = struct{}{}
	}

	cutoff := time.Now().UTC().Add(-r.cfg.StalenessThreshold)
	logger := common.Logger()
	for _, doc := range documents {
		if !doc.LastUpdated.Before(cutoff) {
			continue
		}
		if _, ok := busy[doc.TicketID]; ok {
			continue
		}
		if _, err := r.store.CreateTask(ctx, doc.TicketID, store.TaskRefresh); err != nil {
			return fmt.Errorf("queue refresh for %s: %w", doc.TicketID, err)
		}
		logger.Info("task: refresh queued", "ticket", doc.TicketID, "last_updated", doc.LastUpdated)
	}
	return nil
}

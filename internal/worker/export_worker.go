// Package worker keeps the spreadsheet reports current. It re-exports a
// user's dashboard whenever a change notification arrives and, as a backup
// for lost messages, every configured user on a fixed interval.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"painel/internal/amqp"
	"painel/internal/dashboard"
	plog "painel/internal/log"
	"painel/internal/report"
	"painel/internal/services"
)

// Exporter publishes a report somewhere and returns where it landed.
type Exporter interface {
	Export(ctx context.Context, userID string, r *report.Report) (string, error)
}

type ExportWorker struct {
	sessions *services.SessionManager
	exporter Exporter
	users    []string
	now      func() time.Time
	logger   *plog.Logger

	mu         sync.Mutex
	lastExport map[string]time.Time
}

// NewExportWorker exports the dashboards of users through exporter. users
// is the set refreshed by ExportAll; change messages may name any user.
func NewExportWorker(sessions *services.SessionManager, exporter Exporter, users []string, now func() time.Time) *ExportWorker {
	if now == nil {
		now = time.Now
	}
	return &ExportWorker{
		sessions:   sessions,
		exporter:   exporter,
		users:      users,
		now:        now,
		logger:     plog.Default(plog.ComponentWorker),
		lastExport: make(map[string]time.Time),
	}
}

// HandleChangeMessage reloads the user's session from the store and
// re-exports it. The store of this process never sees the writes of the
// API process, so the cached session is always stale here.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		plog.FieldUserID, msg.UserID,
		plog.FieldCollection, msg.Collection,
		"timestamp", msg.Timestamp)

	w.sessions.Drop(msg.UserID)
	if _, err := w.ExportUser(ctx, msg.UserID); err != nil {
		return fmt.Errorf("export after change: %w", err)
	}
	return nil
}

// ExportUser builds the user's current dashboard, with the saved date
// range and sort order and no table filter, and exports it.
func (w *ExportWorker) ExportUser(ctx context.Context, userID string) (string, error) {
	sess, err := w.sessions.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	req := sess.ViewRequest(dashboard.TableFilter{})
	now := w.now()
	rep := report.FromView(req.Snapshot, dashboard.BuildView(req), now)

	rng, err := w.exporter.Export(ctx, userID, rep)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.lastExport[userID] = now
	w.mu.Unlock()
	return rng, nil
}

// LastExport reports when the user was last exported successfully.
func (w *ExportWorker) LastExport(userID string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.lastExport[userID]
	return t, ok
}

// ExportAll exports every configured user. A failing user does not stop
// the others; all failures are returned joined.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	if len(w.users) == 0 {
		return nil
	}
	var (
		errs   []error
		synced int
	)
	for _, userID := range w.users {
		if err := ctx.Err(); err != nil {
			return err
		}
		// sessions are reloaded so writes from other processes are seen
		w.sessions.Drop(userID)
		if _, err := w.ExportUser(ctx, userID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export user report",
				plog.FieldUserID, userID,
				plog.FieldError, err)
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		synced++
	}
	w.logger.InfoContext(ctx, "Periodic export completed",
		"total", len(w.users),
		"exported", synced,
		"errors", len(errs))
	return errors.Join(errs...)
}

// RunPeriodic calls ExportAll once immediately and then every interval
// until ctx ends.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.ExportAll(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Startup export failed", plog.FieldError, err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ExportAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", plog.FieldError, err)
			}
		}
	}
}

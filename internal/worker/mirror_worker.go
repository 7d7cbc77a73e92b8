// Package worker refreshes the spreadsheet mirror of the ledger. It reacts
// to change messages from the web process and additionally resyncs on a
// timer, so a lost message only delays the mirror instead of forking it.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salarybook/internal/amqp"
	"salarybook/internal/core"
	"salarybook/internal/ledger"
	"salarybook/internal/sheets"
)

type MirrorWorker struct {
	service *ledger.Service
	mirror  sheets.LedgerMirror
	mode    core.ExportMode
}

func NewMirrorWorker(service *ledger.Service, mirror sheets.LedgerMirror, mode core.ExportMode) *MirrorWorker {
	if !mode.IsValid() {
		mode = core.ExportEmployees
	}
	return &MirrorWorker{
		service: service,
		mirror:  mirror,
		mode:    mode,
	}
}

// HandleChangeMessage refreshes the mirror in response to one ledger change.
// Every change triggers a full snapshot replace, so the message payload only
// matters for logging.
func (w *MirrorWorker) HandleChangeMessage(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "processing ledger change",
		"reason", msg.Reason,
		"entity_id", msg.EntityID)
	return w.Resync(ctx)
}

// Resync replaces the mirrored snapshot with the current ledger state.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	rows, err := w.service.ExportRows(ctx, w.mode)
	if err != nil {
		return fmt.Errorf("build export rows: %w", err)
	}
	if err := w.mirror.ReplaceLedgerRows(ctx, rows); err != nil {
		return fmt.Errorf("replace mirror rows: %w", err)
	}
	slog.InfoContext(ctx, "mirror refreshed", "rows", len(rows)-1)
	return nil
}

// RunPeriodicResync resyncs on the given interval until ctx is cancelled.
// This is the backstop for lost messages and worker downtime.
func (w *MirrorWorker) RunPeriodicResync(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				slog.ErrorContext(ctx, "periodic mirror resync failed", "error", err)
			}
		}
	}
}

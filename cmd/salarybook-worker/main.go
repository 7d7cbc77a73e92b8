package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"salarybook/internal/amqp"
	"salarybook/internal/cli"
	"salarybook/internal/core"
	"salarybook/internal/ledger"
	applog "salarybook/internal/log"
	"salarybook/internal/sheets"
	gsheet "salarybook/internal/sheets/google"
	sheetsmem "salarybook/internal/sheets/memory"
	"salarybook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting salarybook-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := cli.OpenStore(ctx, logger, cfg)
	defer store.Close()

	// The worker only reads, so it publishes nothing.
	service := ledger.New(store, nil, logger.WithComponent(applog.ComponentLedger).Logger)

	var mirror sheets.LedgerMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		// Without a spreadsheet the worker still drains the queue, keeping
		// the snapshot in memory for inspection.
		mirror = sheetsmem.New()
		logger.Info("Google Sheets disabled - mirroring to memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(service, mirror, core.ExportMode(cfg.MirrorExportMode))

	// Initial snapshot so a fresh worker does not wait for the first change.
	if err := mirrorWorker.Resync(ctx); err != nil {
		logger.Error("Startup resync failed", "error", err)
		// Keep running; the periodic resync will retry.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeLedgerChanges(gctx, func(msg *amqp.LedgerChangedMessage) error {
			return mirrorWorker.HandleChangeMessage(gctx, msg)
		})
	})

	g.Go(func() error {
		return mirrorWorker.RunPeriodicResync(gctx, cfg.MirrorSyncInterval)
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"mode", cfg.MirrorExportMode,
		"resync_interval", cfg.MirrorSyncInterval.String())

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	// Give in-flight handlers a moment to finish before closing connections.
	time.Sleep(time.Second)
	logger.Info("Worker shutdown complete")
}

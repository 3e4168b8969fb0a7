package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"painel/internal/amqp"
	"painel/internal/cli"
	"painel/internal/config"
	"painel/internal/core"
	plog "painel/internal/log"
	"painel/internal/report"
	"painel/internal/services"
	"painel/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(plog.ComponentWorker)
	logger.Info("Starting painel-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	if !cfg.SheetsEnabled() {
		logger.Error("Google Sheets export is not configured, set GOOGLE_SPREADSHEET_ID and credentials")
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	gs, err := report.NewGoogleSheets(startCtx, cfg.GoogleSpreadsheetID, report.SheetsCredentials{
		ServiceAccountJSON: cfg.GoogleCredentialsJSON,
		ServiceAccountFile: cfg.GoogleCredentialsFile,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	exporter := report.NewSheetsExporter(gs, cfg.GoogleReportSheet)
	exporter.PerUser = cfg.ReportPerUserTab
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"tab", exporter.Tab,
		"per_user_tab", exporter.PerUser)

	res := cli.OpenBackend(startCtx, logger, cfg)
	loc := cfg.Location()
	core.SetDayZone(loc)
	sessions := services.NewSessionManager(res.Store, func() time.Time { return time.Now().In(loc) }, nil)
	w := worker.NewExportWorker(sessions, exporter, cfg.ReportUsers, func() time.Time { return time.Now().In(loc) })

	// the worker consumes notifications, so it needs its own connection
	// even when the backend opened one for publishing
	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic export only", "error", err)
			consumer = nil
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		sessions.Close()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	})

	if consumer != nil {
		go func() {
			if err := consumer.ConsumeChanges(ctx, w.HandleChangeMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption, no broker configured")
	}

	if len(cfg.ReportUsers) > 0 {
		go func() {
			if err := w.RunPeriodic(ctx, cfg.ExportInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Periodic export stopped", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping periodic export, REPORT_USERS is empty")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

package main

import (
	"context"
	"errors"
	"os"

	"khata/internal/amqp"
	"khata/internal/cli"
	"khata/internal/export/sheets"
	"khata/internal/log"
	"khata/internal/storage"
	"khata/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, os.Stdout)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer func() { _ = res.Close() }()
	docs := storage.NewDocuments(res.Backend)

	var appender worker.SheetsAppender
	if cfg.SheetsEnabled() {
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	exporter := worker.NewExportWorker(docs, cfg.ExportDir, appender, logger)
	if n, err := exporter.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err.Error())
	} else if n > 0 {
		logger.Info("Recovered missing workbooks", log.FieldCount, n)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	logger.Info("Starting khata worker", "queue", cfg.AMQPQueue, "export_dir", cfg.ExportDir)
	if err := client.Consume(ctx, exporter.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

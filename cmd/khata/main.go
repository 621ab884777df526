package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/sync/errgroup"

	"khata/internal/amqp"
	"khata/internal/cache"
	"khata/internal/cli"
	apphttp "khata/internal/http"
	"khata/internal/importer"
	"khata/internal/jobs"
	"khata/internal/log"
	"khata/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, os.Stdout)
	started := time.Now()

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	summaries := cache.NewLRUCache[services.SummaryView](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	opts := []services.Option{services.WithSummaryCache(summaries)}

	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		// Closed by the ledger service.
		opts = append(opts, services.WithPublisher(publisher))
		logger.Info("Publishing ledger changes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledger, err := cli.OpenLedger(ctx, logger, cfg, opts...)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err.Error())
		}
	}()

	caches := cache.NewManager(logger)
	caches.Register(summaries)

	loc, _ := cfg.Location()
	scheduler, err := jobs.NewScheduler(ledger, caches, jobs.Config{
		SnapshotSchedule: cfg.SnapshotSchedule,
		CleanupSchedule:  cfg.CleanupSchedule,
		Location:         loc,
	}, logger)
	if err != nil {
		logger.Error("Failed to create scheduler", log.FieldError, err.Error())
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, ledger.LedgerService, importer.New(importer.WithLogger(logger)), apphttp.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		logger.Info("Starting khata server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully",
		"uptime", durafmt.Parse(time.Since(started).Round(time.Second)).LimitFirstN(2).String())
}

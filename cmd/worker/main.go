package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lmntix/finledger/internal/app"
	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/reconcile"
	"github.com/lmntix/finledger/internal/platform/cache"
	"github.com/lmntix/finledger/internal/platform/db"
	"github.com/lmntix/finledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	flags := reconcile.NewFlagStore(redisClient)
	reconcileService := reconcile.NewService(
		reconcile.NewRepository(pool),
		product.NewRepository(pool),
		journal.NewRepository(pool),
		flags,
		logger,
	)
	reconcileJob := jobs.NewReconcileJob(reconcileService, logger, nil)

	scanTask, err := jobs.NewReconcileScanTask(jobs.ReconcileScanPayload{})
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReconcileScan, Handler: reconcileJob.HandleScan},
			{Type: jobs.TaskReconcileAccount, Handler: reconcileJob.HandleAccount},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconcileCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lmntix/finledger/internal/app"
	"github.com/lmntix/finledger/internal/audit"
	"github.com/lmntix/finledger/internal/ledger/coa"
	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/posting"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/reconcile"
	"github.com/lmntix/finledger/internal/observability"
	"github.com/lmntix/finledger/internal/platform/cache"
	"github.com/lmntix/finledger/internal/platform/db"
	"github.com/lmntix/finledger/internal/tenancy"
	"github.com/lmntix/finledger/jobs"
)

// reconcileFlagger flags a torn account and enqueues a targeted re-check.
type reconcileFlagger struct {
	flags  *reconcile.FlagStore
	client *jobs.Client
}

func (f reconcileFlagger) FlagAccount(ctx context.Context, tenantID uuid.UUID, ref product.Ref) error {
	if err := f.flags.FlagAccount(ctx, tenantID, ref); err != nil {
		return err
	}
	if f.client == nil {
		return nil
	}
	_, err := f.client.EnqueueReconcileAccount(ctx, jobs.ReconcileAccountPayload{
		TenantID:    tenantID.String(),
		ProductType: string(ref.Type),
		Number:      ref.Number,
	})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	metrics := observability.NewMetrics()
	auditor := audit.NewLogger(pool)
	tenants := tenancy.NewResolver(pool)

	registry := coa.NewService(coa.NewRepository(pool))
	products := product.NewRepository(pool)
	productService := product.NewService(products, registry, tenants)
	journalRepo := journal.NewRepository(pool)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	flags := reconcile.NewFlagStore(redisClient)

	engine := posting.NewEngine(posting.NewRepository(pool), products, journalRepo, logger).
		WithAudit(auditor).
		WithMetrics(metrics).
		WithReconcileFlagger(reconcileFlagger{flags: flags, client: jobsClient})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Metrics:        metrics,
		PostingHandler: posting.NewHandler(logger, engine, tenants),
		CoAHandler:     coa.NewHandler(logger, registry, tenants),
		ProductHandler: product.NewHandler(logger, productService, tenants),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("finledger listening", slog.String("addr", cfg.AppAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}

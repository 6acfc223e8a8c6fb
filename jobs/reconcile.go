package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/lmntix/finledger/internal/jobs"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/reconcile"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// ReconcileJob walks cached balances against the journal replay. It backs
// both the nightly integrity scan and the targeted re-check enqueued when
// the engine detects a torn commit.
type ReconcileJob struct {
	service *reconcile.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewReconcileJob constructs the job. A nil metrics falls back to the default
// registerer.
func NewReconcileJob(service *reconcile.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	if metrics == nil {
		metrics = jobmetrics.NewMetrics(nil)
	}
	return &ReconcileJob{service: service, logger: logger, metrics: metrics}
}

// HandleScan processes TaskReconcileScan tasks.
func (j *ReconcileJob) HandleScan(ctx context.Context, t *asynq.Task) error {
	var payload ReconcileScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("reconcile_scan")
	var (
		mismatches []reconcile.Result
		err        error
	)
	if payload.TenantID == "" {
		mismatches, err = j.service.ScanAll(ctx)
	} else {
		tenantID, parseErr := uuid.Parse(payload.TenantID)
		if parseErr != nil {
			return asynq.SkipRetry
		}
		mismatches, err = j.service.ScanTenant(ctx, tenantID)
	}
	if err != nil {
		return tracker.End(err)
	}
	if j.logger != nil {
		j.logger.Info("reconcile scan finished", slog.Int("mismatches", len(mismatches)))
	}
	return tracker.End(nil)
}

// HandleAccount processes TaskReconcileAccount tasks.
func (j *ReconcileJob) HandleAccount(ctx context.Context, t *asynq.Task) error {
	var payload ReconcileAccountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return asynq.SkipRetry
	}
	ref := product.Ref{Type: shared.ProductType(payload.ProductType), Number: payload.Number}
	if !ref.Type.Valid() {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("reconcile_account")
	result, err := j.service.CheckAccount(ctx, tenantID, ref)
	if err != nil {
		return tracker.End(err)
	}
	if result.Mismatch() && j.logger != nil {
		j.logger.Error("account remains out of balance",
			slog.String("tenant", payload.TenantID),
			slog.String("account", payload.Number),
			slog.String("cached", result.Cached.StringFixed(shared.MoneyScale)),
			slog.String("replayed", result.Replayed.StringFixed(shared.MoneyScale)))
	}
	return tracker.End(nil)
}

package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// scanConcurrency bounds parallel account replays during a tenant scan.
const scanConcurrency = 8

// Result is the outcome of reconciling one product account: the cached
// balance against the signed journal replay of its control account legs.
type Result struct {
	TenantID uuid.UUID
	Ref      product.Ref
	Cached   decimal.Decimal
	Replayed decimal.Decimal
}

// Mismatch reports whether the cache diverged from the journal.
func (r Result) Mismatch() bool {
	return !r.Cached.Equal(r.Replayed)
}

// Metrics receives reconciliation outcomes.
type Metrics interface {
	ReconcileMismatch(productType shared.ProductType)
}

// Service replays the journal against cached product balances. The journal
// is the source of truth; the product tables are a materialized cache, so a
// divergence always means the cache is wrong or a commit was torn.
type Service struct {
	repo     Repository
	products product.Repository
	journal  journal.Repository
	flags    *FlagStore
	metrics  Metrics
	logger   *slog.Logger
}

func NewService(repo Repository, products product.Repository, journalRepo journal.Repository, flags *FlagStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, products: products, journal: journalRepo, flags: flags, logger: logger}
}

// WithMetrics attaches reconciliation metrics.
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// CheckAccount reconciles one product account.
func (s *Service) CheckAccount(ctx context.Context, tenantID uuid.UUID, ref product.Ref) (Result, error) {
	account, err := s.products.GetByNumber(ctx, tenantID, ref)
	if err != nil {
		return Result{}, err
	}
	activity, err := s.journal.SumByProductAccount(ctx, tenantID, account.ControlAccountID, account.ID)
	if err != nil {
		return Result{}, err
	}
	replayed := signedReplay(account.Type, activity)
	result := Result{TenantID: tenantID, Ref: ref, Cached: account.Balance, Replayed: replayed}
	if result.Mismatch() {
		if s.metrics != nil {
			s.metrics.ReconcileMismatch(ref.Type)
		}
		if s.logger != nil {
			s.logger.Error("balance mismatch",
				slog.String("tenant", tenantID.String()),
				slog.String("account", ref.Number),
				slog.String("cached", result.Cached.StringFixed(shared.MoneyScale)),
				slog.String("replayed", result.Replayed.StringFixed(shared.MoneyScale)))
		}
		if s.flags != nil {
			_ = s.flags.FlagAccount(ctx, tenantID, ref)
		}
	}
	return result, nil
}

// ScanTenant reconciles every product account of a tenant and returns the
// mismatches. Accounts replay in parallel with bounded concurrency.
func (s *Service) ScanTenant(ctx context.Context, tenantID uuid.UUID) ([]Result, error) {
	refs, err := s.repo.ListAccountRefs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var (
		mu         sync.Mutex
		mismatches []Result
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			result, err := s.CheckAccount(ctx, tenantID, ref)
			if err != nil {
				return err
			}
			if result.Mismatch() {
				mu.Lock()
				mismatches = append(mismatches, result)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mismatches, nil
}

// ScanAll reconciles every active tenant.
func (s *Service) ScanAll(ctx context.Context) ([]Result, error) {
	tenants, err := s.repo.ListTenantIDs(ctx)
	if err != nil {
		return nil, err
	}
	var all []Result
	for _, tenantID := range tenants {
		mismatches, err := s.ScanTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		all = append(all, mismatches...)
	}
	return all, nil
}

// signedReplay turns raw debit/credit totals into the balance the cache
// should hold: asset-side products (loans) carry debit-normal balances,
// deposit products credit-normal ones.
func signedReplay(pt shared.ProductType, activity journal.Activity) decimal.Decimal {
	if pt == shared.ProductLoan {
		return activity.Net()
	}
	return activity.Net().Neg()
}

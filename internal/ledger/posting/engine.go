package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/audit"
	"github.com/lmntix/finledger/internal/ledger/coa"
	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// AuditPort records who posted what.
type AuditPort interface {
	Record(ctx context.Context, log audit.Log) error
}

// Metrics receives posting outcomes.
type Metrics interface {
	PostingCommitted(txType shared.TransactionType, productType shared.ProductType, duration time.Duration)
	PostingRejected(reason string)
}

// ReconcileFlagger marks an account for out-of-band reconciliation after an
// integrity failure.
type ReconcileFlagger interface {
	FlagAccount(ctx context.Context, tenantID uuid.UUID, ref product.Ref) error
}

// Engine is the posting engine: it derives the debit/credit legs for a
// business event, validates the balance change, and commits the journal
// append together with the product balance mutation as one unit. Steps
// before the commit never mutate state; the commit is all-or-nothing under
// a per-account row lock.
type Engine struct {
	repo     Repository
	products product.Repository
	journal  journal.Repository
	auditor  AuditPort
	metrics  Metrics
	flagger  ReconcileFlagger
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(repo Repository, products product.Repository, journalRepo journal.Repository, logger *slog.Logger) *Engine {
	return &Engine{
		repo:     repo,
		products: products,
		journal:  journalRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// WithAudit attaches the audit trail.
func (e *Engine) WithAudit(a AuditPort) *Engine {
	e.auditor = a
	return e
}

// WithMetrics attaches posting metrics.
func (e *Engine) WithMetrics(m Metrics) *Engine {
	e.metrics = m
	return e
}

// WithReconcileFlagger attaches the integrity-failure flagger.
func (e *Engine) WithReconcileFlagger(f ReconcileFlagger) *Engine {
	e.flagger = f
	return e
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Post applies one business event. Tenant mismatches and missing accounts
// are both ErrNotFound so existence never leaks across tenants. A replayed
// idempotency key returns the original posting unchanged.
func (e *Engine) Post(ctx context.Context, tenantID uuid.UUID, event Event) (journal.Posting, error) {
	if tenantID == uuid.Nil {
		return journal.Posting{}, errors.New("posting: tenant required")
	}
	if err := event.Validate(); err != nil {
		e.countRejection(err)
		return journal.Posting{}, err
	}

	if event.IdempotencyKey != "" {
		prior, err := e.repo.FindByIdempotencyKey(ctx, tenantID, event.IdempotencyKey)
		if err == nil {
			return prior, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return journal.Posting{}, err
		}
	}

	start := e.now()
	var (
		posting journal.Posting
		replay  bool
		prodTyp shared.ProductType
	)
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Re-check inside the transaction: a commit may have landed between
		// the fast-path lookup and here.
		if event.IdempotencyKey != "" {
			prior, err := tx.FindByIdempotencyKey(ctx, tenantID, event.IdempotencyKey)
			if err == nil {
				posting = prior
				replay = true
				return nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}

		account, err := tx.GetAccountForUpdate(ctx, tenantID, event.Account)
		if err != nil {
			return err
		}
		if account.Status != shared.StatusActive {
			return shared.ErrAccountNotActive
		}
		prodTyp = account.Type

		adapter, err := product.ForType(account.Type)
		if err != nil {
			return err
		}
		policy, err := PolicyFor(event.Type)
		if err != nil {
			return err
		}
		debit, err := e.resolveLeg(ctx, tx, tenantID, account, adapter, policy.Debit)
		if err != nil {
			return err
		}
		credit, err := e.resolveLeg(ctx, tx, tenantID, account, adapter, policy.Credit)
		if err != nil {
			return err
		}
		if debit.ID == credit.ID {
			return fmt.Errorf("posting: debit and credit legs resolve to the same account %s", debit.Code)
		}

		delta, err := adapter.ComputeDelta(account, event.Type, event.Amount)
		if err != nil {
			return err
		}

		committed, err := e.commit(ctx, tx, account, commitSpec{
			txType:  event.Type,
			debit:   debit.ID,
			credit:  credit.ID,
			amount:  event.Amount,
			delta:   delta,
			idemKey: event.IdempotencyKey,
		})
		if err != nil {
			return err
		}
		posting = committed
		return nil
	})
	if err != nil {
		return e.finishFailed(ctx, tenantID, event, err)
	}
	if !replay {
		e.finishCommitted(ctx, tenantID, posting, prodTyp, e.now().Sub(start))
	}
	return posting, nil
}

// Disburse pays out an approved loan: a one-time transition that initialises
// the outstanding balance from the approved principal and posts debit Loan
// Portfolio / credit Cash-Bank, the inverse polarity of deposit products.
func (e *Engine) Disburse(ctx context.Context, tenantID uuid.UUID, number string, amount decimal.Decimal, idempotencyKey string) (journal.Posting, error) {
	if tenantID == uuid.Nil {
		return journal.Posting{}, errors.New("posting: tenant required")
	}
	if !shared.ValidAmount(amount) {
		e.countRejection(shared.ErrInvalidAmount)
		return journal.Posting{}, shared.ErrInvalidAmount
	}
	ref := product.Ref{Type: shared.ProductLoan, Number: number}

	if idempotencyKey != "" {
		prior, err := e.repo.FindByIdempotencyKey(ctx, tenantID, idempotencyKey)
		if err == nil {
			return prior, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return journal.Posting{}, err
		}
	}

	start := e.now()
	var posting journal.Posting
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if idempotencyKey != "" {
			prior, err := tx.FindByIdempotencyKey(ctx, tenantID, idempotencyKey)
			if err == nil {
				posting = prior
				return nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}

		account, err := tx.GetAccountForUpdate(ctx, tenantID, ref)
		if err != nil {
			return err
		}
		if account.Status != shared.StatusActive {
			return shared.ErrAccountNotActive
		}
		if account.DisbursedAt != nil {
			return shared.ErrAlreadyDisbursed
		}
		if !amount.Equal(account.LoanAmount) {
			return shared.ErrInvalidAmount
		}

		adapter, err := product.ForType(shared.ProductLoan)
		if err != nil {
			return err
		}
		portfolio, err := e.resolveLeg(ctx, tx, tenantID, account, adapter, LegSpec{Product: true})
		if err != nil {
			return err
		}
		cash, err := tx.ResolveControlAccount(ctx, tenantID, coa.ClassAsset, coa.TagCashBank)
		if err != nil {
			return err
		}
		if portfolio.ID == cash.ID {
			return fmt.Errorf("posting: loan portfolio and cash legs resolve to the same account %s", cash.Code)
		}

		committed, err := e.commit(ctx, tx, account, commitSpec{
			txType:  shared.TxWithdrawal,
			debit:   portfolio.ID,
			credit:  cash.ID,
			amount:  amount,
			delta:   amount,
			idemKey: idempotencyKey,
		})
		if err != nil {
			return err
		}
		if err := tx.MarkDisbursed(ctx, tenantID, number, e.now()); err != nil {
			return err
		}
		posting = committed
		return nil
	})
	if err != nil {
		return e.finishFailed(ctx, tenantID, Event{Type: shared.TxWithdrawal, Account: ref, Amount: amount, IdempotencyKey: idempotencyKey}, err)
	}
	e.finishCommitted(ctx, tenantID, posting, shared.ProductLoan, e.now().Sub(start))
	return posting, nil
}

// GetBalance returns the cached balance of a product account.
func (e *Engine) GetBalance(ctx context.Context, tenantID uuid.UUID, ref product.Ref) (decimal.Decimal, error) {
	account, err := e.products.GetByNumber(ctx, tenantID, ref)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return account.Balance, nil
}

// GetStatement lists a product account's postings inside [from, to).
func (e *Engine) GetStatement(ctx context.Context, tenantID uuid.UUID, ref product.Ref, from, to time.Time) ([]journal.Posting, error) {
	account, err := e.products.GetByNumber(ctx, tenantID, ref)
	if err != nil {
		return nil, err
	}
	return e.journal.Statement(ctx, tenantID, account.ID, from, to)
}

type commitSpec struct {
	txType  shared.TransactionType
	debit   uuid.UUID
	credit  uuid.UUID
	amount  decimal.Decimal
	delta   decimal.Decimal
	idemKey string
}

// commit is step 6: journal append plus balance mutation, both on the same
// transaction while the account row stays locked.
func (e *Engine) commit(ctx context.Context, tx TxRepository, account product.Account, spec commitSpec) (journal.Posting, error) {
	productType := account.Type
	accountID := account.ID
	p := journal.Posting{
		ID:               uuid.New(),
		TenantID:         account.TenantID,
		Type:             spec.txType,
		DebitAccountID:   spec.debit,
		CreditAccountID:  spec.credit,
		Amount:           spec.amount,
		ProductType:      &productType,
		ProductAccountID: &accountID,
	}
	if spec.idemKey != "" {
		key := spec.idemKey
		p.IdempotencyKey = &key
	}
	inserted, err := tx.InsertPosting(ctx, p)
	if err != nil {
		return journal.Posting{}, err
	}
	newBalance, err := tx.ApplyBalanceDelta(ctx, account.TenantID, product.Ref{Type: account.Type, Number: account.Number}, spec.delta)
	if err != nil {
		return journal.Posting{}, err
	}
	if !newBalance.Equal(account.Balance.Add(spec.delta)) {
		return journal.Posting{}, shared.ErrCommitIntegrity
	}
	return inserted, nil
}

// resolveLeg turns a leg spec into a GL account: either the product's own
// control account, re-fetched under this tenant before the dereference, or
// the registry-designated account for the (classification, tag) pair.
func (e *Engine) resolveLeg(ctx context.Context, tx TxRepository, tenantID uuid.UUID, account product.Account, adapter product.Adapter, spec LegSpec) (coa.GLAccount, error) {
	if spec.Product {
		gl, err := tx.GetGLAccount(ctx, tenantID, adapter.ControlAccountID(account))
		if err != nil {
			return coa.GLAccount{}, err
		}
		if !gl.IsActive {
			return coa.GLAccount{}, shared.ErrNotFound
		}
		return gl, nil
	}
	return tx.ResolveControlAccount(ctx, tenantID, spec.Classification, spec.Tag)
}

func (e *Engine) finishCommitted(ctx context.Context, tenantID uuid.UUID, p journal.Posting, productType shared.ProductType, took time.Duration) {
	if e.metrics != nil {
		e.metrics.PostingCommitted(p.Type, productType, took)
	}
	if e.auditor != nil {
		_ = e.auditor.Record(ctx, audit.Log{
			TenantID: tenantID,
			Action:   "ledger.post",
			Entity:   "posting",
			EntityID: p.ID.String(),
			Meta: map[string]any{
				"type":   string(p.Type),
				"amount": p.Amount.StringFixed(shared.MoneyScale),
			},
			At: e.now(),
		})
	}
}

func (e *Engine) finishFailed(ctx context.Context, tenantID uuid.UUID, event Event, err error) (journal.Posting, error) {
	// Two concurrent commits raced on the same key: the other one won, so
	// its posting is the result. Not an error path.
	if errors.Is(err, ErrKeyConflict) && event.IdempotencyKey != "" {
		prior, findErr := e.repo.FindByIdempotencyKey(ctx, tenantID, event.IdempotencyKey)
		if findErr == nil {
			return prior, nil
		}
		err = fmt.Errorf("posting: key conflict but winner not found: %w", findErr)
	}
	if errors.Is(err, shared.ErrCommitIntegrity) {
		if e.logger != nil {
			e.logger.Error("commit integrity violation",
				slog.String("tenant", tenantID.String()),
				slog.String("account", event.Account.Number),
				slog.String("type", string(event.Type)))
		}
		if e.flagger != nil {
			_ = e.flagger.FlagAccount(ctx, tenantID, event.Account)
		}
	}
	e.countRejection(err)
	return journal.Posting{}, err
}

func (e *Engine) countRejection(err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.PostingRejected(rejectionReason(err))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrAccountNotActive):
		return "account_not_active"
	case errors.Is(err, shared.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, shared.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, shared.ErrAmbiguousMapping):
		return "ambiguous_mapping"
	case errors.Is(err, shared.ErrAlreadyDisbursed):
		return "already_disbursed"
	case errors.Is(err, shared.ErrCommitIntegrity):
		return "commit_integrity"
	default:
		return "other"
	}
}

package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/coa"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// CustomerDirectory is the slice of the tenant/customer system the ledger
// consumes: an existence check for already-onboarded customers.
type CustomerDirectory interface {
	CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error)
}

// OpenInput groups fields required to open a product account.
type OpenInput struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Number     string
	Type       shared.ProductType
	// LoanAmount is the approved principal; loans only.
	LoanAmount decimal.Decimal
}

// Validate ensures opening input meets minimum criteria.
func (in OpenInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return errors.New("product: tenant required")
	}
	if in.CustomerID == uuid.Nil {
		return errors.New("product: customer required")
	}
	if strings.TrimSpace(in.Number) == "" {
		return errors.New("product: account number required")
	}
	if !in.Type.Valid() {
		return errors.New("product: unknown product type")
	}
	if in.Type == shared.ProductLoan && !in.LoanAmount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	return nil
}

// Service manages product account lifecycle: opening with the immutable GL
// link, and monotonic status transitions. Balance mutation is the posting
// engine's job exclusively.
type Service struct {
	repo      Repository
	registry  *coa.Service
	customers CustomerDirectory
}

func NewService(repo Repository, registry *coa.Service, customers CustomerDirectory) *Service {
	return &Service{repo: repo, registry: registry, customers: customers}
}

// Open creates a product account with a zero balance, linking it to the
// tenant's control account for the product category. The link never changes
// after this point.
func (s *Service) Open(ctx context.Context, in OpenInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if s.customers != nil {
		exists, err := s.customers.CustomerExists(ctx, in.TenantID, in.CustomerID)
		if err != nil {
			return Account{}, err
		}
		if !exists {
			return Account{}, shared.ErrNotFound
		}
	}
	control, err := s.registry.ResolveControlAccount(ctx, in.TenantID, controlClass(in.Type), coa.TagForProduct(in.Type))
	if err != nil {
		return Account{}, err
	}
	account := Account{
		ID:               uuid.New(),
		TenantID:         in.TenantID,
		CustomerID:       in.CustomerID,
		Number:           strings.TrimSpace(in.Number),
		Type:             in.Type,
		Status:           shared.StatusActive,
		ControlAccountID: control.ID,
		Balance:          decimal.Zero,
		LoanAmount:       in.LoanAmount,
	}
	return s.repo.Open(ctx, account)
}

// Get fetches one product account scoped to a tenant.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, ref Ref) (Account, error) {
	return s.repo.GetByNumber(ctx, tenantID, ref)
}

// TransitionStatus moves an account along ACTIVE -> DORMANT -> CLOSED. Any
// other direction is rejected; CLOSED is terminal.
func (s *Service) TransitionStatus(ctx context.Context, tenantID uuid.UUID, ref Ref, to shared.AccountStatus) error {
	account, err := s.repo.GetByNumber(ctx, tenantID, ref)
	if err != nil {
		return err
	}
	if !shared.CanTransition(account.Status, to) {
		return shared.ErrInvalidStatus
	}
	return s.repo.TransitionStatus(ctx, tenantID, ref, account.Status, to)
}

// controlClass returns the GL classification of the product's control
// account: customer deposits are liabilities, loan receivables are assets.
func controlClass(pt shared.ProductType) coa.Classification {
	if pt == shared.ProductLoan {
		return coa.ClassAsset
	}
	return coa.ClassLiability
}

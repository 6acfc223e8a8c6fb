package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Account models one customer product account. The four variants share this
// shape; the meaning of Balance depends on the variant (savings balance,
// fixed deposit principal, loan outstanding balance, recurring deposit total
// deposited). ControlAccountID is the GL link fixed at opening and never
// changes afterwards.
type Account struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	CustomerID       uuid.UUID
	Number           string
	Type             shared.ProductType
	Status           shared.AccountStatus
	ControlAccountID uuid.UUID
	Balance          decimal.Decimal

	// Loan only: approved principal and the moment it was paid out.
	LoanAmount  decimal.Decimal
	DisbursedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref identifies a product account within a tenant.
type Ref struct {
	Type   shared.ProductType
	Number string
}

package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Posting is one committed double-entry record: exactly one debit leg and
// one equal credit leg within a single tenant. Postings are immutable;
// corrections are new offsetting postings, never edits.
type Posting struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Type            shared.TransactionType
	DebitAccountID  uuid.UUID
	CreditAccountID uuid.UUID
	Amount          decimal.Decimal

	// Back-reference to the originating product account, when there is one.
	ProductType      *shared.ProductType
	ProductAccountID *uuid.UUID

	IdempotencyKey *string
	CreatedAt      time.Time
}

// Activity is the replayed debit/credit totals of a GL account. The signed
// balance depends on the account's normal side: debits minus credits for
// assets and expenses, credits minus debits for the rest.
type Activity struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Net returns debits minus credits.
func (a Activity) Net() decimal.Decimal {
	return a.Debits.Sub(a.Credits)
}

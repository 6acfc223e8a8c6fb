package posting

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Event is one business event to be posted against a product account.
type Event struct {
	Type    shared.TransactionType
	Account product.Ref
	Amount  decimal.Decimal
	// IdempotencyKey, when supplied, makes the post at-most-once per tenant:
	// a replay returns the original posting unchanged.
	IdempotencyKey string
}

// Validate ensures the event meets minimum criteria. Validation never
// touches state.
func (e Event) Validate() error {
	if !e.Type.Valid() {
		return errors.New("posting: unknown transaction type")
	}
	if !e.Account.Type.Valid() {
		return errors.New("posting: unknown product type")
	}
	if strings.TrimSpace(e.Account.Number) == "" {
		return errors.New("posting: account number required")
	}
	if !shared.ValidAmount(e.Amount) {
		return shared.ErrInvalidAmount
	}
	return nil
}

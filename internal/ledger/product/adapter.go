package product

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Adapter is the per-variant ledger capability: it maps a business event to
// a signed balance delta and exposes the account's immutable GL link. Pure
// functions only; all mutation happens in the posting engine's commit.
type Adapter interface {
	Type() shared.ProductType
	// BalanceField names the balance-bearing field of the variant, for audit
	// trails and reconciliation reports.
	BalanceField() string
	// ComputeDelta returns the signed change ComputeDelta would apply to the
	// balance field, or ErrInsufficientFunds when the result would go negative.
	ComputeDelta(account Account, txType shared.TransactionType, amount decimal.Decimal) (decimal.Decimal, error)
	// ControlAccountID returns the GL control account captured at opening.
	ControlAccountID(account Account) uuid.UUID
}

// ForType returns the adapter for a product category.
func ForType(pt shared.ProductType) (Adapter, error) {
	switch pt {
	case shared.ProductSavings:
		return savingsAdapter{}, nil
	case shared.ProductFixedDeposit:
		return fixedDepositAdapter{}, nil
	case shared.ProductLoan:
		return loanAdapter{}, nil
	case shared.ProductRecurringDeposit:
		return recurringDepositAdapter{}, nil
	}
	return nil, fmt.Errorf("product: no adapter for type %q", pt)
}

// depositDelta holds the shared polarity of the three deposit-style variants:
// money held on behalf of the customer is a liability, so deposits and
// interest paid increase the balance while withdrawals and charges decrease
// it. None of them may go negative.
func depositDelta(account Account, txType shared.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	var delta decimal.Decimal
	switch txType {
	case shared.TxDeposit, shared.TxInterestCredit:
		delta = amount
	case shared.TxWithdrawal, shared.TxInterestDebit, shared.TxFee, shared.TxPenalty:
		delta = amount.Neg()
	default:
		return decimal.Decimal{}, fmt.Errorf("product: unsupported transaction type %q", txType)
	}
	if account.Balance.Add(delta).IsNegative() {
		return decimal.Decimal{}, shared.ErrInsufficientFunds
	}
	return delta, nil
}

type savingsAdapter struct{}

func (savingsAdapter) Type() shared.ProductType { return shared.ProductSavings }
func (savingsAdapter) BalanceField() string     { return "balance" }
func (savingsAdapter) ComputeDelta(account Account, txType shared.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	return depositDelta(account, txType, amount)
}
func (savingsAdapter) ControlAccountID(account Account) uuid.UUID { return account.ControlAccountID }

type fixedDepositAdapter struct{}

func (fixedDepositAdapter) Type() shared.ProductType { return shared.ProductFixedDeposit }
func (fixedDepositAdapter) BalanceField() string     { return "principal_amount" }
func (fixedDepositAdapter) ComputeDelta(account Account, txType shared.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	return depositDelta(account, txType, amount)
}
func (fixedDepositAdapter) ControlAccountID(account Account) uuid.UUID {
	return account.ControlAccountID
}

type recurringDepositAdapter struct{}

func (recurringDepositAdapter) Type() shared.ProductType { return shared.ProductRecurringDeposit }
func (recurringDepositAdapter) BalanceField() string     { return "total_deposited" }
func (recurringDepositAdapter) ComputeDelta(account Account, txType shared.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	return depositDelta(account, txType, amount)
}
func (recurringDepositAdapter) ControlAccountID(account Account) uuid.UUID {
	return account.ControlAccountID
}

// loanAdapter has inverse polarity: the outstanding balance is a receivable,
// so drawdowns and charges increase it while repayments decrease it. It may
// reach exactly zero but never go below.
type loanAdapter struct{}

func (loanAdapter) Type() shared.ProductType { return shared.ProductLoan }
func (loanAdapter) BalanceField() string     { return "outstanding_balance" }

func (loanAdapter) ComputeDelta(account Account, txType shared.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	var delta decimal.Decimal
	switch txType {
	case shared.TxWithdrawal, shared.TxInterestDebit, shared.TxFee, shared.TxPenalty:
		delta = amount
	case shared.TxDeposit, shared.TxInterestCredit:
		delta = amount.Neg()
	default:
		return decimal.Decimal{}, fmt.Errorf("product: unsupported transaction type %q", txType)
	}
	if account.Balance.Add(delta).IsNegative() {
		return decimal.Decimal{}, shared.ErrInsufficientFunds
	}
	return delta, nil
}

func (loanAdapter) ControlAccountID(account Account) uuid.UUID { return account.ControlAccountID }

package shared

// ProductType enumerates the customer product categories mirrored in the GL.
type ProductType string

const (
	ProductSavings          ProductType = "SAVINGS"
	ProductFixedDeposit     ProductType = "FIXED_DEPOSIT"
	ProductLoan             ProductType = "LOAN"
	ProductRecurringDeposit ProductType = "RECURRING_DEPOSIT"
)

// Valid reports whether the product type is one of the known categories.
func (p ProductType) Valid() bool {
	switch p {
	case ProductSavings, ProductFixedDeposit, ProductLoan, ProductRecurringDeposit:
		return true
	}
	return false
}

// TransactionType enumerates postable business events.
type TransactionType string

const (
	TxDeposit        TransactionType = "DEPOSIT"
	TxWithdrawal     TransactionType = "WITHDRAWAL"
	TxInterestCredit TransactionType = "INTEREST_CREDIT"
	TxInterestDebit  TransactionType = "INTEREST_DEBIT"
	TxFee            TransactionType = "FEE"
	TxPenalty        TransactionType = "PENALTY"
)

// Valid reports whether the transaction type is postable.
func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxInterestCredit, TxInterestDebit, TxFee, TxPenalty:
		return true
	}
	return false
}

// AccountStatus is the product account lifecycle. Transitions are monotonic:
// ACTIVE -> DORMANT -> CLOSED, with no way back once CLOSED.
type AccountStatus string

const (
	StatusActive  AccountStatus = "ACTIVE"
	StatusDormant AccountStatus = "DORMANT"
	StatusClosed  AccountStatus = "CLOSED"
)

var statusRank = map[AccountStatus]int{
	StatusActive:  0,
	StatusDormant: 1,
	StatusClosed:  2,
}

// CanTransition reports whether moving from one lifecycle status to the next
// respects the monotonic ordering.
func CanTransition(from, to AccountStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

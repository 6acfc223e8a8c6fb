package shared

import "errors"

var (
	// ErrNotFound indicates a missing entity or a tenant mismatch. Both causes
	// are deliberately indistinguishable so existence never leaks across tenants.
	ErrNotFound = errors.New("ledger: not found")
	// ErrDuplicateCode indicates a (tenant, code) collision in the chart of accounts.
	ErrDuplicateCode = errors.New("ledger: account code already registered")
	// ErrAmbiguousMapping indicates more than one active control account matched.
	ErrAmbiguousMapping = errors.New("ledger: ambiguous control account mapping")
	// ErrAccountNotActive indicates the product account is dormant or closed.
	ErrAccountNotActive = errors.New("ledger: account not active")
	// ErrInsufficientFunds indicates the delta would drive the balance negative.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrInvalidAmount indicates a non-positive or over-precise amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive with at most two decimals")
	// ErrInvalidStatus indicates a disallowed lifecycle transition.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrAlreadyDisbursed indicates a second disbursement attempt on a loan.
	ErrAlreadyDisbursed = errors.New("ledger: loan already disbursed")
	// ErrCommitIntegrity is fatal: a partially applied commit was detected.
	// Never retried; the account is flagged for reconciliation.
	ErrCommitIntegrity = errors.New("ledger: commit integrity violation")
)

package coa

import (
	"time"

	"github.com/google/uuid"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Classification enumerates GL account categories.
type Classification string

const (
	ClassAsset     Classification = "ASSET"
	ClassLiability Classification = "LIABILITY"
	ClassIncome    Classification = "INCOME"
	ClassExpense   Classification = "EXPENSE"
	ClassEquity    Classification = "EQUITY"
)

// Valid reports whether the classification is a known category.
func (c Classification) Valid() bool {
	switch c {
	case ClassAsset, ClassLiability, ClassIncome, ClassExpense, ClassEquity:
		return true
	}
	return false
}

// Tag marks a GL account as the designated account for a ledger role.
// Product tags mark control accounts mirroring one product category; role
// tags mark the fixed counter-leg accounts of the posting policy. Within a
// tenant at most one active account may carry a given (classification, tag)
// pair.
type Tag string

const (
	TagSavings          Tag = "SAVINGS"
	TagFixedDeposit     Tag = "FIXED_DEPOSIT"
	TagLoan             Tag = "LOAN"
	TagRecurringDeposit Tag = "RECURRING_DEPOSIT"

	TagCashBank        Tag = "CASH_BANK"
	TagInterestExpense Tag = "INTEREST_EXPENSE"
	TagInterestIncome  Tag = "INTEREST_INCOME"
	TagFeeIncome       Tag = "FEE_INCOME"
	TagPenaltyIncome   Tag = "PENALTY_INCOME"
)

// TagForProduct returns the control-account tag for a product category.
func TagForProduct(pt shared.ProductType) Tag {
	return Tag(pt)
}

// GLAccount models one chart of accounts node. Accounts are created during
// tenant setup and immutable afterwards except for deactivation.
type GLAccount struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Code           string
	Name           string
	Classification Classification
	Tag            *Tag
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

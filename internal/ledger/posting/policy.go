package posting

import (
	"fmt"

	"github.com/lmntix/finledger/internal/ledger/coa"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// LegSpec names the source of one posting leg: either the originating
// product's own control account, or a designated account resolved through
// the registry by (classification, tag).
type LegSpec struct {
	Product        bool
	Classification coa.Classification
	Tag            coa.Tag
}

// LegPolicy fixes the debit and credit assignment for one transaction type.
// The assignment is asymmetric because the cash counter-leg is always the
// tenant's designated cash/bank account. The same table serves deposit
// products and loans: GL legs are fixed per type while the balance delta
// sign comes from the product adapter.
type LegPolicy struct {
	Debit  LegSpec
	Credit LegSpec
}

var productLeg = LegSpec{Product: true}

var legPolicies = map[shared.TransactionType]LegPolicy{
	shared.TxDeposit: {
		Debit:  LegSpec{Classification: coa.ClassAsset, Tag: coa.TagCashBank},
		Credit: productLeg,
	},
	shared.TxWithdrawal: {
		Debit:  productLeg,
		Credit: LegSpec{Classification: coa.ClassAsset, Tag: coa.TagCashBank},
	},
	shared.TxInterestCredit: {
		Debit:  LegSpec{Classification: coa.ClassExpense, Tag: coa.TagInterestExpense},
		Credit: productLeg,
	},
	shared.TxInterestDebit: {
		Debit:  productLeg,
		Credit: LegSpec{Classification: coa.ClassIncome, Tag: coa.TagInterestIncome},
	},
	shared.TxFee: {
		Debit:  productLeg,
		Credit: LegSpec{Classification: coa.ClassIncome, Tag: coa.TagFeeIncome},
	},
	shared.TxPenalty: {
		Debit:  productLeg,
		Credit: LegSpec{Classification: coa.ClassIncome, Tag: coa.TagPenaltyIncome},
	},
}

// PolicyFor returns the fixed leg assignment for a transaction type.
func PolicyFor(txType shared.TransactionType) (LegPolicy, error) {
	policy, ok := legPolicies[txType]
	if !ok {
		return LegPolicy{}, fmt.Errorf("posting: no leg policy for type %q", txType)
	}
	return policy, nil
}

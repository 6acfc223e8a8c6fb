package product

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestForTypeCoversAllProducts(t *testing.T) {
	for _, pt := range []shared.ProductType{
		shared.ProductSavings, shared.ProductFixedDeposit, shared.ProductLoan, shared.ProductRecurringDeposit,
	} {
		adapter, err := ForType(pt)
		require.NoError(t, err)
		assert.Equal(t, pt, adapter.Type())
	}

	_, err := ForType("CURRENT")
	assert.Error(t, err)
}

func TestBalanceFieldPerVariant(t *testing.T) {
	fields := map[shared.ProductType]string{
		shared.ProductSavings:          "balance",
		shared.ProductFixedDeposit:     "principal_amount",
		shared.ProductLoan:             "outstanding_balance",
		shared.ProductRecurringDeposit: "total_deposited",
	}
	for pt, want := range fields {
		adapter, err := ForType(pt)
		require.NoError(t, err)
		assert.Equal(t, want, adapter.BalanceField())
	}
}

func TestDepositProductDeltas(t *testing.T) {
	account := Account{Balance: dec("500.00")}

	for _, pt := range []shared.ProductType{
		shared.ProductSavings, shared.ProductFixedDeposit, shared.ProductRecurringDeposit,
	} {
		adapter, err := ForType(pt)
		require.NoError(t, err)

		tests := []struct {
			txType shared.TransactionType
			want   string
		}{
			{shared.TxDeposit, "100.00"},
			{shared.TxInterestCredit, "100.00"},
			{shared.TxWithdrawal, "-100.00"},
			{shared.TxInterestDebit, "-100.00"},
			{shared.TxFee, "-100.00"},
			{shared.TxPenalty, "-100.00"},
		}
		for _, tc := range tests {
			delta, err := adapter.ComputeDelta(account, tc.txType, dec("100.00"))
			require.NoError(t, err, "%s %s", pt, tc.txType)
			assert.True(t, delta.Equal(dec(tc.want)), "%s %s: got %s", pt, tc.txType, delta)
		}
	}
}

func TestDepositProductsRejectNegativeBalance(t *testing.T) {
	account := Account{Balance: dec("50.00")}

	for _, pt := range []shared.ProductType{
		shared.ProductSavings, shared.ProductFixedDeposit, shared.ProductRecurringDeposit,
	} {
		adapter, err := ForType(pt)
		require.NoError(t, err)

		_, err = adapter.ComputeDelta(account, shared.TxWithdrawal, dec("50.01"))
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds, "%s", pt)

		delta, err := adapter.ComputeDelta(account, shared.TxWithdrawal, dec("50.00"))
		require.NoError(t, err, "%s: draining to exactly zero is allowed", pt)
		assert.True(t, account.Balance.Add(delta).IsZero())
	}
}

func TestLoanInversePolarity(t *testing.T) {
	adapter, err := ForType(shared.ProductLoan)
	require.NoError(t, err)
	account := Account{Balance: dec("1000.00")}

	tests := []struct {
		txType shared.TransactionType
		want   string
	}{
		{shared.TxWithdrawal, "100.00"},
		{shared.TxInterestDebit, "100.00"},
		{shared.TxFee, "100.00"},
		{shared.TxPenalty, "100.00"},
		{shared.TxDeposit, "-100.00"},
		{shared.TxInterestCredit, "-100.00"},
	}
	for _, tc := range tests {
		delta, err := adapter.ComputeDelta(account, tc.txType, dec("100.00"))
		require.NoError(t, err, "%s", tc.txType)
		assert.True(t, delta.Equal(dec(tc.want)), "%s: got %s", tc.txType, delta)
	}
}

func TestLoanRepaymentFloorsAtZero(t *testing.T) {
	adapter, err := ForType(shared.ProductLoan)
	require.NoError(t, err)
	account := Account{Balance: dec("100.00")}

	_, err = adapter.ComputeDelta(account, shared.TxDeposit, dec("100.01"))
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds, "overpayment would take outstanding below zero")

	delta, err := adapter.ComputeDelta(account, shared.TxDeposit, dec("100.00"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Add(delta).IsZero(), "full repayment settles at exactly zero")
}

func TestControlAccountIDPassthrough(t *testing.T) {
	controlID := uuid.New()
	account := Account{ControlAccountID: controlID}
	for _, pt := range []shared.ProductType{
		shared.ProductSavings, shared.ProductFixedDeposit, shared.ProductLoan, shared.ProductRecurringDeposit,
	} {
		adapter, err := ForType(pt)
		require.NoError(t, err)
		assert.Equal(t, controlID, adapter.ControlAccountID(account))
	}
}

func TestTableFor(t *testing.T) {
	table, col, err := TableFor(shared.ProductLoan)
	require.NoError(t, err)
	assert.Equal(t, "loan_accounts", table)
	assert.Equal(t, "outstanding_balance", col)

	_, _, err = TableFor("CURRENT")
	assert.Error(t, err)
}

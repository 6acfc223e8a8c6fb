package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockWorld struct {
	mu       sync.Mutex
	tenants  []uuid.UUID
	refs     map[uuid.UUID][]product.Ref
	accounts map[string]product.Account     // tenant|type|number
	activity map[uuid.UUID]journal.Activity // product account id
}

func newMockWorld() *mockWorld {
	return &mockWorld{
		refs:     make(map[uuid.UUID][]product.Ref),
		accounts: make(map[string]product.Account),
		activity: make(map[uuid.UUID]journal.Activity),
	}
}

func worldKey(tenantID uuid.UUID, ref product.Ref) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, ref.Type, ref.Number)
}

// addAccount stores an account whose journal replay nets out to replayed
// while the cached balance says cached.
func (m *mockWorld) addAccount(tenantID uuid.UUID, ref product.Ref, cached, replayed decimal.Decimal) {
	if _, ok := m.refs[tenantID]; !ok {
		m.tenants = append(m.tenants, tenantID)
	}
	account := product.Account{
		ID:               uuid.New(),
		TenantID:         tenantID,
		Number:           ref.Number,
		Type:             ref.Type,
		Status:           shared.StatusActive,
		ControlAccountID: uuid.New(),
		Balance:          cached,
	}
	m.accounts[worldKey(tenantID, ref)] = account
	m.refs[tenantID] = append(m.refs[tenantID], ref)

	// Deposit products hold credit-normal balances, loans debit-normal.
	if ref.Type == shared.ProductLoan {
		m.activity[account.ID] = journal.Activity{Debits: replayed}
	} else {
		m.activity[account.ID] = journal.Activity{Credits: replayed}
	}
}

func (m *mockWorld) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.tenants, nil
}

func (m *mockWorld) ListAccountRefs(ctx context.Context, tenantID uuid.UUID) ([]product.Ref, error) {
	return m.refs[tenantID], nil
}

func (m *mockWorld) Open(ctx context.Context, account product.Account) (product.Account, error) {
	return account, nil
}

func (m *mockWorld) GetByNumber(ctx context.Context, tenantID uuid.UUID, ref product.Ref) (product.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[worldKey(tenantID, ref)]
	if !ok {
		return product.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *mockWorld) TransitionStatus(ctx context.Context, tenantID uuid.UUID, ref product.Ref, from, to shared.AccountStatus) error {
	return shared.ErrInvalidStatus
}

func (m *mockWorld) SumByAccount(ctx context.Context, tenantID, glAccountID uuid.UUID) (journal.Activity, error) {
	return journal.Activity{}, nil
}

func (m *mockWorld) SumByProductAccount(ctx context.Context, tenantID, glAccountID, productAccountID uuid.UUID) (journal.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activity[productAccountID], nil
}

func (m *mockWorld) Statement(ctx context.Context, tenantID, productAccountID uuid.UUID, from, to time.Time) ([]journal.Posting, error) {
	return nil, nil
}

type mockMetrics struct {
	mu         sync.Mutex
	mismatches map[shared.ProductType]int
}

func (m *mockMetrics) ReconcileMismatch(productType shared.ProductType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mismatches == nil {
		m.mismatches = make(map[shared.ProductType]int)
	}
	m.mismatches[productType]++
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ============================================================================
// TESTS
// ============================================================================

func TestCheckAccountClean(t *testing.T) {
	world := newMockWorld()
	tenantID := uuid.New()
	ref := product.Ref{Type: shared.ProductSavings, Number: "SAV0001"}
	world.addAccount(tenantID, ref, dec("5000.00"), dec("5000.00"))

	service := NewService(world, world, world, nil, slog.Default())
	result, err := service.CheckAccount(context.Background(), tenantID, ref)
	require.NoError(t, err)
	assert.False(t, result.Mismatch())
	assert.True(t, result.Cached.Equal(result.Replayed))
}

func TestCheckAccountMismatchFlagsAndCounts(t *testing.T) {
	world := newMockWorld()
	tenantID := uuid.New()
	ref := product.Ref{Type: shared.ProductSavings, Number: "SAV0001"}
	world.addAccount(tenantID, ref, dec("5000.00"), dec("4900.00"))

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	flags := NewFlagStore(rdb)
	metrics := &mockMetrics{}

	service := NewService(world, world, world, flags, slog.Default()).WithMetrics(metrics)
	result, err := service.CheckAccount(context.Background(), tenantID, ref)
	require.NoError(t, err)
	assert.True(t, result.Mismatch())
	assert.Equal(t, 1, metrics.mismatches[shared.ProductSavings])

	flagged, err := flags.Flagged(context.Background())
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Contains(t, flagged[0], "SAV0001")
}

func TestCheckAccountLoanPolarity(t *testing.T) {
	world := newMockWorld()
	tenantID := uuid.New()
	ref := product.Ref{Type: shared.ProductLoan, Number: "LN0001"}
	// Debit-normal: debits on the portfolio account are the outstanding balance.
	world.addAccount(tenantID, ref, dec("100000.00"), dec("100000.00"))

	service := NewService(world, world, world, nil, slog.Default())
	result, err := service.CheckAccount(context.Background(), tenantID, ref)
	require.NoError(t, err)
	assert.False(t, result.Mismatch(), "cached %s vs replayed %s", result.Cached, result.Replayed)
}

func TestCheckAccountUnknown(t *testing.T) {
	world := newMockWorld()
	service := NewService(world, world, world, nil, slog.Default())

	_, err := service.CheckAccount(context.Background(), uuid.New(),
		product.Ref{Type: shared.ProductSavings, Number: "SAV9999"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestScanTenantCollectsMismatches(t *testing.T) {
	world := newMockWorld()
	tenantID := uuid.New()
	for i := 0; i < 20; i++ {
		ref := product.Ref{Type: shared.ProductSavings, Number: fmt.Sprintf("SAV%04d", i)}
		if i%5 == 0 {
			world.addAccount(tenantID, ref, dec("100.00"), dec("99.00"))
		} else {
			world.addAccount(tenantID, ref, dec("100.00"), dec("100.00"))
		}
	}

	service := NewService(world, world, world, nil, slog.Default())
	mismatches, err := service.ScanTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, mismatches, 4)
}

func TestScanAllWalksEveryTenant(t *testing.T) {
	world := newMockWorld()
	tenantA := uuid.New()
	tenantB := uuid.New()
	world.addAccount(tenantA, product.Ref{Type: shared.ProductSavings, Number: "SAV0001"}, dec("10.00"), dec("10.00"))
	world.addAccount(tenantB, product.Ref{Type: shared.ProductLoan, Number: "LN0001"}, dec("10.00"), dec("20.00"))

	service := NewService(world, world, world, nil, slog.Default())
	mismatches, err := service.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, tenantB, mismatches[0].TenantID)
}

func TestSignedReplay(t *testing.T) {
	activity := journal.Activity{Debits: dec("300.00"), Credits: dec("100.00")}

	assert.True(t, signedReplay(shared.ProductLoan, activity).Equal(dec("200.00")),
		"loans are debit-normal")
	assert.True(t, signedReplay(shared.ProductSavings, activity).Equal(dec("-200.00")),
		"deposit products are credit-normal")

	inverted := journal.Activity{Debits: dec("100.00"), Credits: dec("300.00")}
	assert.True(t, signedReplay(shared.ProductFixedDeposit, inverted).Equal(dec("200.00")))
}

func TestFlagStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	flags := NewFlagStore(rdb)
	ctx := context.Background()
	tenantID := uuid.New()
	ref := product.Ref{Type: shared.ProductSavings, Number: "SAV0001"}

	require.NoError(t, flags.FlagAccount(ctx, tenantID, ref))
	require.NoError(t, flags.FlagAccount(ctx, tenantID, ref), "flagging twice is a no-op")

	flagged, err := flags.Flagged(ctx)
	require.NoError(t, err)
	assert.Len(t, flagged, 1)

	require.NoError(t, flags.ClearFlag(ctx, tenantID, ref))
	flagged, err = flags.Flagged(ctx)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestFlagStoreNilSafe(t *testing.T) {
	var flags *FlagStore
	ctx := context.Background()
	assert.NoError(t, flags.FlagAccount(ctx, uuid.New(), product.Ref{}))
	flagged, err := flags.Flagged(ctx)
	assert.NoError(t, err)
	assert.Nil(t, flagged)
}

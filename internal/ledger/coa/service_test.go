package coa

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	accounts map[uuid.UUID]*GLAccount
	codes    map[string]uuid.UUID // tenant|code

	txError     error
	insertError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[uuid.UUID]*GLAccount),
		codes:    make(map[string]uuid.UUID),
	}
}

func codeKey(tenantID uuid.UUID, code string) string {
	return fmt.Sprintf("%s|%s", tenantID, code)
}

func (m *mockRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (GLAccount, error) {
	a, ok := m.accounts[id]
	if !ok || a.TenantID != tenantID {
		return GLAccount{}, shared.ErrNotFound
	}
	return *a, nil
}

func (m *mockRepository) List(ctx context.Context, tenantID uuid.UUID) ([]GLAccount, error) {
	var out []GLAccount
	for _, a := range m.accounts {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockRepository) FindActiveByTag(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) ([]GLAccount, error) {
	var out []GLAccount
	for _, a := range m.accounts {
		if a.TenantID == tenantID && a.Classification == class && a.IsActive && a.Tag != nil && *a.Tag == tag {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, &mockTxRepo{mock: m})
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) LockTenantAccounts(ctx context.Context, tenantID uuid.UUID) error {
	return nil
}

func (t *mockTxRepo) CountActiveByTag(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) (int, error) {
	matches, _ := t.mock.FindActiveByTag(ctx, tenantID, class, tag)
	return len(matches), nil
}

func (t *mockTxRepo) Insert(ctx context.Context, account GLAccount) (GLAccount, error) {
	if t.mock.insertError != nil {
		return GLAccount{}, t.mock.insertError
	}
	key := codeKey(account.TenantID, account.Code)
	if _, ok := t.mock.codes[key]; ok {
		return GLAccount{}, shared.ErrDuplicateCode
	}
	account.IsActive = true
	stored := account
	t.mock.accounts[account.ID] = &stored
	t.mock.codes[key] = account.ID
	return account, nil
}

func (t *mockTxRepo) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	a, ok := t.mock.accounts[id]
	if !ok || a.TenantID != tenantID {
		return shared.ErrNotFound
	}
	a.IsActive = false
	return nil
}

func tagPtr(t Tag) *Tag { return &t }

// ============================================================================
// TESTS
// ============================================================================

func TestRegisterAccount(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	tenantID := uuid.New()

	account, err := service.RegisterAccount(context.Background(), RegisterInput{
		TenantID:       tenantID,
		Code:           "coa-001",
		Name:           "Cash and Bank",
		Classification: ClassAsset,
		Tag:            tagPtr(TagCashBank),
	})
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.Equal(t, "coa-001", account.Code)
}

func TestRegisterAccountValidation(t *testing.T) {
	service := NewService(newMockRepository())
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := service.RegisterAccount(ctx, RegisterInput{Code: "coa-001", Name: "x", Classification: ClassAsset})
	assert.Error(t, err, "tenant required")

	_, err = service.RegisterAccount(ctx, RegisterInput{TenantID: tenantID, Name: "x", Classification: ClassAsset})
	assert.Error(t, err, "code required")

	_, err = service.RegisterAccount(ctx, RegisterInput{TenantID: tenantID, Code: "coa-001", Name: "x", Classification: "REVENUE"})
	assert.Error(t, err, "unknown classification")
}

func TestRegisterDuplicateCode(t *testing.T) {
	service := NewService(newMockRepository())
	ctx := context.Background()
	in := RegisterInput{
		TenantID:       uuid.New(),
		Code:           "coa-001",
		Name:           "Cash and Bank",
		Classification: ClassAsset,
	}

	_, err := service.RegisterAccount(ctx, in)
	require.NoError(t, err)
	_, err = service.RegisterAccount(ctx, in)
	assert.ErrorIs(t, err, shared.ErrDuplicateCode)
}

func TestRegisterSecondTaggedAccountRejected(t *testing.T) {
	service := NewService(newMockRepository())
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := service.RegisterAccount(ctx, RegisterInput{
		TenantID: tenantID, Code: "coa-003", Name: "Savings Control",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	require.NoError(t, err)

	_, err = service.RegisterAccount(ctx, RegisterInput{
		TenantID: tenantID, Code: "coa-003b", Name: "Second Savings Control",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	assert.ErrorIs(t, err, shared.ErrAmbiguousMapping, "one active control per (classification, tag)")
}

func TestRegisterSameTagDifferentTenants(t *testing.T) {
	service := NewService(newMockRepository())
	ctx := context.Background()

	_, err := service.RegisterAccount(ctx, RegisterInput{
		TenantID: uuid.New(), Code: "coa-003", Name: "Savings Control",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	require.NoError(t, err)

	_, err = service.RegisterAccount(ctx, RegisterInput{
		TenantID: uuid.New(), Code: "coa-003", Name: "Savings Control",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	assert.NoError(t, err, "the invariant is per tenant")
}

func TestRegisterUntaggedAccountsUnlimited(t *testing.T) {
	service := NewService(newMockRepository())
	ctx := context.Background()
	tenantID := uuid.New()

	for i, code := range []string{"coa-900", "coa-901", "coa-902"} {
		_, err := service.RegisterAccount(ctx, RegisterInput{
			TenantID: tenantID, Code: code, Name: "Operating Expense",
			Classification: ClassExpense,
		})
		require.NoError(t, err, "account %d", i)
	}
}

func TestResolveControlAccount(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	ctx := context.Background()
	tenantID := uuid.New()

	registered, err := service.RegisterAccount(ctx, RegisterInput{
		TenantID: tenantID, Code: "coa-003", Name: "Savings Control",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	require.NoError(t, err)

	resolved, err := service.ResolveControlAccount(ctx, tenantID, ClassLiability, TagSavings)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, resolved.ID)

	_, err = service.ResolveControlAccount(ctx, tenantID, ClassLiability, TagFixedDeposit)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = service.ResolveControlAccount(ctx, uuid.New(), ClassLiability, TagSavings)
	assert.ErrorIs(t, err, shared.ErrNotFound, "resolution is tenant-scoped")
}

func TestResolveControlAccountAmbiguous(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	ctx := context.Background()
	tenantID := uuid.New()

	// Bypass registration to plant the invariant violation directly.
	for _, code := range []string{"coa-003", "coa-003b"} {
		tag := TagSavings
		id := uuid.New()
		repo.accounts[id] = &GLAccount{
			ID: id, TenantID: tenantID, Code: code, Name: code,
			Classification: ClassLiability, Tag: &tag, IsActive: true,
		}
	}

	_, err := service.ResolveControlAccount(ctx, tenantID, ClassLiability, TagSavings)
	assert.ErrorIs(t, err, shared.ErrAmbiguousMapping)
}

func TestDeactivateAccount(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	ctx := context.Background()
	tenantID := uuid.New()

	account, err := service.RegisterAccount(ctx, RegisterInput{
		TenantID: tenantID, Code: "coa-003", Name: "Savings Control",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	require.NoError(t, err)

	require.NoError(t, service.DeactivateAccount(ctx, tenantID, account.ID))

	_, err = service.ResolveControlAccount(ctx, tenantID, ClassLiability, TagSavings)
	assert.ErrorIs(t, err, shared.ErrNotFound, "deactivated accounts stop resolving")

	// And the tag slot is free again.
	_, err = service.RegisterAccount(ctx, RegisterInput{
		TenantID: tenantID, Code: "coa-010", Name: "Savings Control v2",
		Classification: ClassLiability, Tag: tagPtr(TagSavings),
	})
	assert.NoError(t, err)
}

func TestDeactivateUnknownAccount(t *testing.T) {
	service := NewService(newMockRepository())
	err := service.DeactivateAccount(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTagForProduct(t *testing.T) {
	assert.Equal(t, TagSavings, TagForProduct(shared.ProductSavings))
	assert.Equal(t, TagLoan, TagForProduct(shared.ProductLoan))
	assert.Equal(t, TagFixedDeposit, TagForProduct(shared.ProductFixedDeposit))
	assert.Equal(t, TagRecurringDeposit, TagForProduct(shared.ProductRecurringDeposit))
}

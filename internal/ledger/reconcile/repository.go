package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Repository enumerates the accounts a reconciliation scan walks.
type Repository interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	ListAccountRefs(ctx context.Context, tenantID uuid.UUID) ([]product.Ref, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) ListAccountRefs(ctx context.Context, tenantID uuid.UUID) ([]product.Ref, error) {
	rows, err := r.db.Query(ctx, `
SELECT 'SAVINGS', account_number FROM savings_accounts WHERE tenant_id=$1
UNION ALL SELECT 'FIXED_DEPOSIT', account_number FROM fixed_deposit_accounts WHERE tenant_id=$1
UNION ALL SELECT 'LOAN', account_number FROM loan_accounts WHERE tenant_id=$1
UNION ALL SELECT 'RECURRING_DEPOSIT', account_number FROM recurring_deposit_accounts WHERE tenant_id=$1
ORDER BY 2`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []product.Ref
	for rows.Next() {
		var typ shared.ProductType
		var number string
		if err := rows.Scan(&typ, &number); err != nil {
			return nil, err
		}
		refs = append(refs, product.Ref{Type: typ, Number: number})
	}
	return refs, rows.Err()
}

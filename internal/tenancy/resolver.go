package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Resolver maps tenant codes to tenants and answers customer-existence
// checks. Tenant and customer management live in a separate system; the
// ledger consumes them as already-validated inputs.
type Resolver interface {
	ResolveCode(ctx context.Context, code string) (Tenant, error)
	CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error)
}

type resolver struct {
	db *pgxpool.Pool
}

func NewResolver(db *pgxpool.Pool) Resolver {
	return &resolver{db: db}
}

func (r *resolver) ResolveCode(ctx context.Context, code string) (Tenant, error) {
	if code == "" {
		return Tenant{}, errors.New("tenancy: code required")
	}
	var t Tenant
	err := r.db.QueryRow(ctx, `SELECT id, code, name, is_active, created_at, updated_at FROM tenants WHERE code=$1`, code).
		Scan(&t.ID, &t.Code, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, shared.ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

func (r *resolver) CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE tenant_id=$1 AND id=$2)`, tenantID, customerID).
		Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

package coa

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (GLAccount, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]GLAccount, error)
	FindActiveByTag(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) ([]GLAccount, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes registration operations inside a transaction so the
// single-active-control-account invariant holds under concurrent writes.
type TxRepository interface {
	LockTenantAccounts(ctx context.Context, tenantID uuid.UUID) error
	CountActiveByTag(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) (int, error)
	Insert(ctx context.Context, account GLAccount) (GLAccount, error)
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, tenant_id, code, name, classification, tag, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (GLAccount, error) {
	var a GLAccount
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Classification, &a.Tag, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (GLAccount, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM gl_accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GLAccount{}, shared.ErrNotFound
		}
		return GLAccount{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID) ([]GLAccount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM gl_accounts WHERE tenant_id=$1 ORDER BY code`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []GLAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) FindActiveByTag(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) ([]GLAccount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM gl_accounts
WHERE tenant_id=$1 AND classification=$2 AND tag=$3 AND is_active ORDER BY code`, tenantID, class, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []GLAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// LockTenantAccounts serialises registrations per tenant so a concurrent
// insert cannot slip past the CountActiveByTag check.
func (r *txRepository) LockTenantAccounts(ctx context.Context, tenantID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `SELECT id FROM tenants WHERE id=$1 FOR UPDATE`, tenantID)
	return err
}

func (r *txRepository) CountActiveByTag(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM gl_accounts WHERE tenant_id=$1 AND classification=$2 AND tag=$3 AND is_active`,
		tenantID, class, tag).Scan(&count)
	return count, err
}

func (r *txRepository) Insert(ctx context.Context, account GLAccount) (GLAccount, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO gl_accounts (id, tenant_id, code, name, classification, tag, is_active)
VALUES ($1,$2,$3,$4,$5,$6,true) RETURNING created_at, updated_at`,
		account.ID, account.TenantID, account.Code, account.Name, account.Classification, account.Tag)
	if err := row.Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return GLAccount{}, shared.ErrDuplicateCode
		}
		return GLAccount{}, err
	}
	account.IsActive = true
	return account, nil
}

func (r *txRepository) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx,
		`UPDATE gl_accounts SET is_active=false, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/coa"
	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
)

// ErrKeyConflict signals a concurrent commit with the same idempotency key.
// The engine resolves it by returning the posting that won.
var ErrKeyConflict = errors.New("posting: idempotency key already committed")

// Repository encapsulates DB operations for the posting engine.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	// FindByIdempotencyKey is the out-of-transaction lookup used after a key
	// conflict aborts a commit.
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (journal.Posting, error)
}

// TxRepository exposes the operations of the atomic commit unit. Product and
// GL lookups are duplicated from their home repositories because they must
// run on this transaction's connection to hold their locks.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, tenantID uuid.UUID, ref product.Ref) (product.Account, error)
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (journal.Posting, error)
	GetGLAccount(ctx context.Context, tenantID, id uuid.UUID) (coa.GLAccount, error)
	ResolveControlAccount(ctx context.Context, tenantID uuid.UUID, class coa.Classification, tag coa.Tag) (coa.GLAccount, error)
	InsertPosting(ctx context.Context, p journal.Posting) (journal.Posting, error)
	// ApplyBalanceDelta adds delta to the account's balance field and returns
	// the new balance.
	ApplyBalanceDelta(ctx context.Context, tenantID uuid.UUID, ref product.Ref, delta decimal.Decimal) (decimal.Decimal, error)
	MarkDisbursed(ctx context.Context, tenantID uuid.UUID, number string, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
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

const postingColumns = `id, tenant_id, type, debit_account_id, credit_account_id, amount, product_type, product_account_id, idempotency_key, created_at`

func (r *repository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (journal.Posting, error) {
	return findByKey(ctx, r.db, tenantID, key)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findByKey(ctx context.Context, q queryRower, tenantID uuid.UUID, key string) (journal.Posting, error) {
	p, err := journal.ScanPosting(q.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE tenant_id=$1 AND idempotency_key=$2`, tenantID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journal.Posting{}, shared.ErrNotFound
		}
		return journal.Posting{}, err
	}
	return p, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, tenantID uuid.UUID, ref product.Ref) (product.Account, error) {
	table, balanceCol, err := product.TableFor(ref.Type)
	if err != nil {
		return product.Account{}, err
	}
	account := product.Account{Type: ref.Type}
	if ref.Type == shared.ProductLoan {
		err = r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT id, tenant_id, customer_id, account_number, %s, loan_amount, disbursed_at, control_account_id, status, created_at, updated_at
FROM %s WHERE tenant_id=$1 AND account_number=$2 FOR UPDATE`, balanceCol, table), tenantID, ref.Number).
			Scan(&account.ID, &account.TenantID, &account.CustomerID, &account.Number, &account.Balance,
				&account.LoanAmount, &account.DisbursedAt, &account.ControlAccountID, &account.Status,
				&account.CreatedAt, &account.UpdatedAt)
	} else {
		err = r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT id, tenant_id, customer_id, account_number, %s, control_account_id, status, created_at, updated_at
FROM %s WHERE tenant_id=$1 AND account_number=$2 FOR UPDATE`, balanceCol, table), tenantID, ref.Number).
			Scan(&account.ID, &account.TenantID, &account.CustomerID, &account.Number, &account.Balance,
				&account.ControlAccountID, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Account{}, shared.ErrNotFound
		}
		return product.Account{}, err
	}
	return account, nil
}

func (r *txRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (journal.Posting, error) {
	return findByKey(ctx, r.tx, tenantID, key)
}

func (r *txRepository) GetGLAccount(ctx context.Context, tenantID, id uuid.UUID) (coa.GLAccount, error) {
	var a coa.GLAccount
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, code, name, classification, tag, is_active, created_at, updated_at
FROM gl_accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Classification, &a.Tag, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coa.GLAccount{}, shared.ErrNotFound
		}
		return coa.GLAccount{}, err
	}
	return a, nil
}

func (r *txRepository) ResolveControlAccount(ctx context.Context, tenantID uuid.UUID, class coa.Classification, tag coa.Tag) (coa.GLAccount, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, tenant_id, code, name, classification, tag, is_active, created_at, updated_at
FROM gl_accounts WHERE tenant_id=$1 AND classification=$2 AND tag=$3 AND is_active`, tenantID, class, tag)
	if err != nil {
		return coa.GLAccount{}, err
	}
	defer rows.Close()
	var matches []coa.GLAccount
	for rows.Next() {
		var a coa.GLAccount
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Classification, &a.Tag, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return coa.GLAccount{}, err
		}
		matches = append(matches, a)
	}
	if err := rows.Err(); err != nil {
		return coa.GLAccount{}, err
	}
	switch len(matches) {
	case 0:
		return coa.GLAccount{}, shared.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return coa.GLAccount{}, shared.ErrAmbiguousMapping
	}
}

func (r *txRepository) InsertPosting(ctx context.Context, p journal.Posting) (journal.Posting, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO postings (id, tenant_id, type, debit_account_id, credit_account_id, amount, product_type, product_account_id, idempotency_key)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING created_at`,
		p.ID, p.TenantID, p.Type, p.DebitAccountID, p.CreditAccountID, p.Amount, p.ProductType, p.ProductAccountID, p.IdempotencyKey)
	if err := row.Scan(&p.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return journal.Posting{}, ErrKeyConflict
		}
		return journal.Posting{}, err
	}
	return p, nil
}

func (r *txRepository) ApplyBalanceDelta(ctx context.Context, tenantID uuid.UUID, ref product.Ref, delta decimal.Decimal) (decimal.Decimal, error) {
	table, balanceCol, err := product.TableFor(ref.Type)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var balance decimal.Decimal
	err = r.tx.QueryRow(ctx, fmt.Sprintf(`UPDATE %s SET %s = %s + $3, updated_at=NOW()
WHERE tenant_id=$1 AND account_number=$2 RETURNING %s`, table, balanceCol, balanceCol, balanceCol),
		tenantID, ref.Number, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The row was locked in this transaction; losing it mid-commit
			// means the commit unit is broken.
			return decimal.Decimal{}, shared.ErrCommitIntegrity
		}
		return decimal.Decimal{}, err
	}
	return balance, nil
}

func (r *txRepository) MarkDisbursed(ctx context.Context, tenantID uuid.UUID, number string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE loan_accounts SET disbursed_at=$3, updated_at=NOW()
WHERE tenant_id=$1 AND account_number=$2 AND disbursed_at IS NULL`, tenantID, number, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrCommitIntegrity
	}
	return nil
}

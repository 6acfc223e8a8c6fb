package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// TableFor maps a product category to its table and balance column. Each
// variant keeps its own table per the persisted layout; the posting engine
// reuses this mapping for its in-transaction row locks.
func TableFor(pt shared.ProductType) (table string, balanceColumn string, err error) {
	switch pt {
	case shared.ProductSavings:
		return "savings_accounts", "balance", nil
	case shared.ProductFixedDeposit:
		return "fixed_deposit_accounts", "principal_amount", nil
	case shared.ProductLoan:
		return "loan_accounts", "outstanding_balance", nil
	case shared.ProductRecurringDeposit:
		return "recurring_deposit_accounts", "total_deposited", nil
	}
	return "", "", fmt.Errorf("product: unknown type %q", pt)
}

// Repository encapsulates DB operations for product accounts.
type Repository interface {
	Open(ctx context.Context, account Account) (Account, error)
	GetByNumber(ctx context.Context, tenantID uuid.UUID, ref Ref) (Account, error)
	// TransitionStatus applies from->to only when the row still holds from,
	// making concurrent transitions race-safe.
	TransitionStatus(ctx context.Context, tenantID uuid.UUID, ref Ref, from, to shared.AccountStatus) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Open(ctx context.Context, account Account) (Account, error) {
	table, balanceCol, err := TableFor(account.Type)
	if err != nil {
		return Account{}, err
	}
	var row pgx.Row
	if account.Type == shared.ProductLoan {
		row = r.db.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (id, tenant_id, customer_id, account_number, %s, loan_amount, control_account_id, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING created_at, updated_at`, table, balanceCol),
			account.ID, account.TenantID, account.CustomerID, account.Number, account.Balance, account.LoanAmount, account.ControlAccountID, account.Status)
	} else {
		row = r.db.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (id, tenant_id, customer_id, account_number, %s, control_account_id, status)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`, table, balanceCol),
			account.ID, account.TenantID, account.CustomerID, account.Number, account.Balance, account.ControlAccountID, account.Status)
	}
	if err := row.Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) GetByNumber(ctx context.Context, tenantID uuid.UUID, ref Ref) (Account, error) {
	table, balanceCol, err := TableFor(ref.Type)
	if err != nil {
		return Account{}, err
	}
	account := Account{Type: ref.Type}
	if ref.Type == shared.ProductLoan {
		err = r.db.QueryRow(ctx, fmt.Sprintf(`SELECT id, tenant_id, customer_id, account_number, %s, loan_amount, disbursed_at, control_account_id, status, created_at, updated_at
FROM %s WHERE tenant_id=$1 AND account_number=$2`, balanceCol, table), tenantID, ref.Number).
			Scan(&account.ID, &account.TenantID, &account.CustomerID, &account.Number, &account.Balance,
				&account.LoanAmount, &account.DisbursedAt, &account.ControlAccountID, &account.Status,
				&account.CreatedAt, &account.UpdatedAt)
	} else {
		err = r.db.QueryRow(ctx, fmt.Sprintf(`SELECT id, tenant_id, customer_id, account_number, %s, control_account_id, status, created_at, updated_at
FROM %s WHERE tenant_id=$1 AND account_number=$2`, balanceCol, table), tenantID, ref.Number).
			Scan(&account.ID, &account.TenantID, &account.CustomerID, &account.Number, &account.Balance,
				&account.ControlAccountID, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) TransitionStatus(ctx context.Context, tenantID uuid.UUID, ref Ref, from, to shared.AccountStatus) error {
	table, _, err := TableFor(ref.Type)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET status=$4, updated_at=NOW()
WHERE tenant_id=$1 AND account_number=$2 AND status=$3`, table), tenantID, ref.Number, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStatus
	}
	return nil
}

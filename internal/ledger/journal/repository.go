package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the read side of the append-only journal. The single write
// path lives inside the posting engine's transaction; nothing here updates
// or deletes.
type Repository interface {
	// SumByAccount replays every leg touching a GL account.
	SumByAccount(ctx context.Context, tenantID, glAccountID uuid.UUID) (Activity, error)
	// SumByProductAccount replays legs restricted to one originating product
	// account; the reconciliation check compares this with the cached balance.
	SumByProductAccount(ctx context.Context, tenantID, glAccountID, productAccountID uuid.UUID) (Activity, error)
	// Statement lists a product account's postings inside a date range,
	// oldest first.
	Statement(ctx context.Context, tenantID, productAccountID uuid.UUID, from, to time.Time) ([]Posting, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) SumByAccount(ctx context.Context, tenantID, glAccountID uuid.UUID) (Activity, error) {
	var activity Activity
	err := r.db.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE debit_account_id=$2), 0),
COALESCE(SUM(amount) FILTER (WHERE credit_account_id=$2), 0)
FROM postings WHERE tenant_id=$1 AND (debit_account_id=$2 OR credit_account_id=$2)`, tenantID, glAccountID).
		Scan(&activity.Debits, &activity.Credits)
	return activity, err
}

func (r *repository) SumByProductAccount(ctx context.Context, tenantID, glAccountID, productAccountID uuid.UUID) (Activity, error) {
	var activity Activity
	err := r.db.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE debit_account_id=$2), 0),
COALESCE(SUM(amount) FILTER (WHERE credit_account_id=$2), 0)
FROM postings WHERE tenant_id=$1 AND (debit_account_id=$2 OR credit_account_id=$2) AND product_account_id=$3`,
		tenantID, glAccountID, productAccountID).
		Scan(&activity.Debits, &activity.Credits)
	return activity, err
}

const postingColumns = `id, tenant_id, type, debit_account_id, credit_account_id, amount, product_type, product_account_id, idempotency_key, created_at`

// ScanPosting reads one posting row; shared with the engine's tx repository.
func ScanPosting(row pgx.Row) (Posting, error) {
	var p Posting
	err := row.Scan(&p.ID, &p.TenantID, &p.Type, &p.DebitAccountID, &p.CreditAccountID, &p.Amount,
		&p.ProductType, &p.ProductAccountID, &p.IdempotencyKey, &p.CreatedAt)
	return p, err
}

func (r *repository) Statement(ctx context.Context, tenantID, productAccountID uuid.UUID, from, to time.Time) ([]Posting, error) {
	rows, err := r.db.Query(ctx, `SELECT `+postingColumns+` FROM postings
WHERE tenant_id=$1 AND product_account_id=$2 AND created_at >= $3 AND created_at < $4
ORDER BY created_at ASC, id ASC`, tenantID, productAccountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var postings []Posting
	for rows.Next() {
		p, err := ScanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

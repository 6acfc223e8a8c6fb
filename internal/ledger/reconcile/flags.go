package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lmntix/finledger/internal/ledger/product"
)

const flagSetKey = "ledger:reconcile:flagged"

// FlagStore keeps the set of accounts awaiting operator reconciliation.
// Flags are operational state, not financial truth, so redis is acceptable
// storage: losing a flag only delays the next scheduled scan re-raising it.
type FlagStore struct {
	rdb *redis.Client
}

func NewFlagStore(rdb *redis.Client) *FlagStore {
	return &FlagStore{rdb: rdb}
}

func flagMember(tenantID uuid.UUID, ref product.Ref) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, ref.Type, ref.Number)
}

// FlagAccount marks an account for reconciliation.
func (s *FlagStore) FlagAccount(ctx context.Context, tenantID uuid.UUID, ref product.Ref) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.SAdd(ctx, flagSetKey, flagMember(tenantID, ref)).Err()
}

// Flagged lists every flagged account.
func (s *FlagStore) Flagged(ctx context.Context) ([]string, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	return s.rdb.SMembers(ctx, flagSetKey).Result()
}

// ClearFlag removes an account's flag once an operator has resolved it.
func (s *FlagStore) ClearFlag(ctx context.Context, tenantID uuid.UUID, ref product.Ref) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.SRem(ctx, flagSetKey, flagMember(tenantID, ref)).Err()
}

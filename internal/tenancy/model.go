package tenancy

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary. Every ledger entity carries a tenant
// reference and no read or write may cross it.
type Tenant struct {
	ID        uuid.UUID
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

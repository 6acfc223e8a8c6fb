package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcileScan replays the journal against every cached balance.
	TaskReconcileScan = "ledger:reconcile_scan"
	// TaskReconcileAccount reconciles a single flagged account.
	TaskReconcileAccount = "ledger:reconcile_account"
)

// ReconcileScanPayload scopes a full scan. An empty TenantID means all
// active tenants.
type ReconcileScanPayload struct {
	TenantID string `json:"tenant_id,omitempty"`
}

// ReconcileAccountPayload identifies one product account.
type ReconcileAccountPayload struct {
	TenantID    string `json:"tenant_id"`
	ProductType string `json:"product_type"`
	Number      string `json:"number"`
}

// NewReconcileScanTask constructs an Asynq task for a ledger-wide scan.
func NewReconcileScanTask(payload ReconcileScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileScan, data), nil
}

// NewReconcileAccountTask constructs an Asynq task for one account.
func NewReconcileAccountTask(payload ReconcileAccountPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileAccount, data), nil
}

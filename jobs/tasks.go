package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDrumsOverdueScan classifies every held drum and publishes the counts.
	TaskDrumsOverdueScan = "drums:overdue_scan"
)

// OverdueScanPayload narrows a scan to one company when CompanyTaxID is set.
type OverdueScanPayload struct {
	CompanyTaxID string `json:"company_tax_id,omitempty"`
}

// NewOverdueScanTask constructs an Asynq task.
func NewOverdueScanTask(companyTaxID string) (*asynq.Task, error) {
	data, err := json.Marshal(OverdueScanPayload{CompanyTaxID: companyTaxID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDrumsOverdueScan, data), nil
}

package entities

import "time"

// AuditEntry records one automated action (merge, enrichment, status change)
// for later inspection.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	AffairID  string         `json:"affair_id,omitempty"`
	FigureID  string         `json:"figure_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Audit action names written by the batch services.
const (
	AuditActionMerge        = "affair_merge"
	AuditActionEnrichment   = "affair_enrichment"
	AuditActionStatusChange = "figure_status_change"
	AuditActionReviewApply  = "review_apply"
)

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductionSnapshot is a versioned pointer from a scope to the ingestion log
// that is currently production truth. History rows are never deleted; rollback
// moves the is_active pointer between existing rows.
type ProductionSnapshot struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	Platform       string     `json:"platform"`
	Dataset        string     `json:"dataset"`
	IngestionLogID uuid.UUID  `json:"ingestion_log_id"`
	IsActive       bool       `json:"is_active"`
	PromotedAt     time.Time  `json:"promoted_at"`
	PromotedBy     uuid.UUID  `json:"promoted_by"`
	RolledBackAt   *time.Time `json:"rolled_back_at,omitempty"`
	RollbackReason *string    `json:"rollback_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Scope returns the (workspace, platform, dataset) triple the snapshot binds.
func (s ProductionSnapshot) Scope() Scope {
	return Scope{WorkspaceID: s.WorkspaceID, Platform: s.Platform, Dataset: s.Dataset}
}

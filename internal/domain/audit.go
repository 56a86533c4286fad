package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is one append-only record of a guard decision or mutating
// action. Entries are never updated or deleted by this system.
type AuditLogEntry struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	ActorID     uuid.UUID      `json:"actor_id"`
	ActorRole   Role           `json:"actor_role"`
	Action      Action         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Platform    string         `json:"platform,omitempty"`
	Dataset     string         `json:"dataset,omitempty"`
	ClientID    *uuid.UUID     `json:"client_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

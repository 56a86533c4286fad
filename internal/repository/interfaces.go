package repository

import (
	"context"
	"time"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

// IngestionLogRepository stores upload attempts and their validation output.
type IngestionLogRepository interface {
	Create(ctx context.Context, log domain.IngestionLog) (domain.IngestionLog, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.IngestionLog, error)
	List(ctx context.Context, workspaceID uuid.UUID, platform string, dataset string, limit int, offset int) ([]domain.IngestionLog, error)
	// MarkPromoted freezes the log and stamps promotion metadata in one atomic
	// update. It must fail when the log is already frozen.
	MarkPromoted(ctx context.Context, id uuid.UUID, promotedBy uuid.UUID, promotedAt time.Time) error
}

// SnapshotRepository owns the active-snapshot pointer per scope. Both writers
// run inside one transaction; the partial unique index on the scope columns
// where is_active is what makes the swap safe under concurrent callers.
type SnapshotRepository interface {
	// CreateActive deactivates any currently-active snapshot for the scope and
	// inserts the new snapshot as active, atomically.
	CreateActive(ctx context.Context, snap domain.ProductionSnapshot) (domain.ProductionSnapshot, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ProductionSnapshot, error)
	// GetActive returns the single active snapshot for a scope. It returns
	// *domain.NoActiveSnapshotError when none exists and
	// *domain.ProductionBindingError when more than one row is active.
	GetActive(ctx context.Context, scope domain.Scope) (domain.ProductionSnapshot, error)
	ListByScope(ctx context.Context, scope domain.Scope) ([]domain.ProductionSnapshot, error)
	// Reactivate stamps the currently-active snapshot for the target's scope
	// with rollback metadata and re-activates the target, atomically. No row
	// is ever deleted.
	Reactivate(ctx context.Context, target domain.ProductionSnapshot, reason string, at time.Time) error
}

// KillSwitchRepository stores the global and per-workspace gates.
type KillSwitchRepository interface {
	// GetGlobal returns nil when no global record exists.
	GetGlobal(ctx context.Context) (*domain.KillSwitchRecord, error)
	// GetWorkspace returns nil when no record exists for the workspace.
	GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.KillSwitchRecord, error)
	Upsert(ctx context.Context, record domain.KillSwitchRecord) error
}

// FailureInjectionRepository stores chaos configuration per (workspace, action).
type FailureInjectionRepository interface {
	// Get returns nil when no config exists for the pair.
	Get(ctx context.Context, workspaceID uuid.UUID, action domain.Action) (*domain.FailureInjectionConfig, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]domain.FailureInjectionConfig, error)
	Upsert(ctx context.Context, config domain.FailureInjectionConfig) error
}

// AuditLogRepository appends guard decisions and mutating actions. Entries are
// never updated or deleted.
type AuditLogRepository interface {
	Record(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.AuditLogEntry, error)
}

// MembershipRepository resolves workspace membership for actor resolution.
type MembershipRepository interface {
	// Get returns nil when the user has no membership in the workspace.
	Get(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (*domain.Membership, error)
}

package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/guard"
	"github.com/rpattn/datagov/internal/repository"

	"github.com/google/uuid"
)

// SnapshotManager owns the active-snapshot pointer per scope. Snapshot rows
// accumulate forever; only the pointer and rollback bookkeeping ever move.
type SnapshotManager struct {
	snapshots repository.SnapshotRepository
	now       func() time.Time
}

// NewSnapshotManager wires the snapshot manager.
func NewSnapshotManager(snapshots repository.SnapshotRepository) *SnapshotManager {
	return &SnapshotManager{snapshots: snapshots, now: time.Now}
}

// CreateFromPromotion re-validates the log's eligibility and swaps the active
// pointer to a new snapshot row in one transaction. Concurrent promotions on
// the same scope serialize on the store's partial unique constraint.
func (m *SnapshotManager) CreateFromPromotion(ctx context.Context, log domain.IngestionLog, actor domain.Actor) (domain.ProductionSnapshot, error) {
	if log.WorkspaceID != actor.WorkspaceID {
		return domain.ProductionSnapshot{}, domain.ErrPromoteWrongWorkspace
	}
	if log.Status == domain.IngestionStatusFail {
		return domain.ProductionSnapshot{}, domain.ErrSnapshotLogNotEligible
	}
	if !log.Promoted() {
		return domain.ProductionSnapshot{}, domain.ErrSnapshotLogNotPromoted
	}
	if !log.Frozen {
		return domain.ProductionSnapshot{}, domain.ErrSnapshotLogNotFrozen
	}

	snap := domain.ProductionSnapshot{
		WorkspaceID:    log.WorkspaceID,
		Platform:       log.Platform,
		Dataset:        log.Dataset,
		IngestionLogID: log.ID,
		PromotedAt:     *log.PromotedAt,
		PromotedBy:     actor.ID,
	}

	created, err := m.snapshots.CreateActive(ctx, snap)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to activate snapshot: %w", err)
	}

	return created, nil
}

// Rollback reactivates an inactive historical snapshot and stamps the current
// active one with rollback metadata. ROLLBACK is the most privileged action
// in the system; the permission is re-checked here even though every route
// into this method is already guarded.
func (m *SnapshotManager) Rollback(ctx context.Context, targetID uuid.UUID, reason string, actor domain.Actor) (domain.ProductionSnapshot, error) {
	if err := guard.AssertCan(actor, domain.ActionRollback); err != nil {
		return domain.ProductionSnapshot{}, err
	}

	target, err := m.snapshots.GetByID(ctx, targetID)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to load rollback target: %w", err)
	}

	if target.WorkspaceID != actor.WorkspaceID {
		return domain.ProductionSnapshot{}, domain.ErrRollbackWrongWorkspace
	}
	if target.IsActive {
		return domain.ProductionSnapshot{}, domain.ErrRollbackTargetActive
	}

	if err := m.snapshots.Reactivate(ctx, target, reason, m.now()); err != nil {
		return domain.ProductionSnapshot{}, err
	}

	return m.snapshots.GetByID(ctx, targetID)
}

// ResolveActive is the single read path for production truth. A scope with no
// active snapshot returns *domain.NoActiveSnapshotError; callers decide
// whether that degrades gracefully or hard-fails.
func (m *SnapshotManager) ResolveActive(ctx context.Context, scope domain.Scope) (domain.ProductionSnapshot, error) {
	return m.snapshots.GetActive(ctx, scope)
}

// History returns every snapshot row for a scope, oldest first.
func (m *SnapshotManager) History(ctx context.Context, scope domain.Scope) ([]domain.ProductionSnapshot, error) {
	return m.snapshots.ListByScope(ctx, scope)
}

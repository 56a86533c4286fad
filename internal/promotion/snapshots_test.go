package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

type stubSnapshotRepo struct {
	snapshots map[uuid.UUID]*domain.ProductionSnapshot
	order     []uuid.UUID
}

func newStubSnapshotRepo() *stubSnapshotRepo {
	return &stubSnapshotRepo{snapshots: map[uuid.UUID]*domain.ProductionSnapshot{}}
}

func (s *stubSnapshotRepo) CreateActive(ctx context.Context, snap domain.ProductionSnapshot) (domain.ProductionSnapshot, error) {
	for _, existing := range s.snapshots {
		if existing.IsActive && existing.Scope() == snap.Scope() {
			existing.IsActive = false
		}
	}
	snap.ID = uuid.New()
	snap.IsActive = true
	snap.CreatedAt = time.Now()
	s.snapshots[snap.ID] = &snap
	s.order = append(s.order, snap.ID)
	return snap, nil
}

func (s *stubSnapshotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ProductionSnapshot, error) {
	snap, ok := s.snapshots[id]
	if !ok {
		return domain.ProductionSnapshot{}, errors.New("not found")
	}
	return *snap, nil
}

func (s *stubSnapshotRepo) GetActive(ctx context.Context, scope domain.Scope) (domain.ProductionSnapshot, error) {
	var active []*domain.ProductionSnapshot
	for _, snap := range s.snapshots {
		if snap.IsActive && snap.Scope() == scope {
			active = append(active, snap)
		}
	}
	switch len(active) {
	case 0:
		return domain.ProductionSnapshot{}, &domain.NoActiveSnapshotError{Scope: scope}
	case 1:
		return *active[0], nil
	default:
		return domain.ProductionSnapshot{}, &domain.ProductionBindingError{Scope: scope, ActiveCount: len(active)}
	}
}

func (s *stubSnapshotRepo) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.ProductionSnapshot, error) {
	var out []domain.ProductionSnapshot
	for _, id := range s.order {
		if snap := s.snapshots[id]; snap.Scope() == scope {
			out = append(out, *snap)
		}
	}
	return out, nil
}

func (s *stubSnapshotRepo) Reactivate(ctx context.Context, target domain.ProductionSnapshot, reason string, at time.Time) error {
	stored, ok := s.snapshots[target.ID]
	if !ok {
		return errors.New("not found")
	}
	if stored.IsActive {
		return domain.ErrRollbackTargetActive
	}
	for _, snap := range s.snapshots {
		if snap.IsActive && snap.Scope() == target.Scope() {
			snap.IsActive = false
			snap.RolledBackAt = &at
			snap.RollbackReason = &reason
		}
	}
	stored.IsActive = true
	return nil
}

func frozenLog(workspaceID uuid.UUID) domain.IngestionLog {
	now := time.Now()
	promotedBy := uuid.New()
	return domain.IngestionLog{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Platform:    "google_ads",
		Dataset:     "daily_metrics",
		Status:      domain.IngestionStatusPass,
		ValidRows:   2,
		PromotedAt:  &now,
		PromotedBy:  &promotedBy,
		Frozen:      true,
	}
}

func ownerActor(workspaceID uuid.UUID) domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleOwner, WorkspaceID: workspaceID}
}

func TestCreateFromPromotionActivatesSnapshot(t *testing.T) {
	workspaceID := uuid.New()
	repo := newStubSnapshotRepo()
	manager := NewSnapshotManager(repo)

	log := frozenLog(workspaceID)
	actor := ownerActor(workspaceID)

	snap, err := manager.CreateFromPromotion(context.Background(), log, actor)
	if err != nil {
		t.Fatalf("snapshot creation failed: %v", err)
	}

	if !snap.IsActive {
		t.Fatalf("new snapshot must be active")
	}
	if snap.IngestionLogID != log.ID {
		t.Fatalf("snapshot must reference the promoted log")
	}
}

func TestCreateFromPromotionRejectsLogFromAnotherWorkspace(t *testing.T) {
	repo := newStubSnapshotRepo()
	manager := NewSnapshotManager(repo)

	log := frozenLog(uuid.New())
	actor := ownerActor(uuid.New())

	_, err := manager.CreateFromPromotion(context.Background(), log, actor)
	if !errors.Is(err, domain.ErrPromoteWrongWorkspace) {
		t.Fatalf("expected ErrPromoteWrongWorkspace, got %v", err)
	}
	if len(repo.snapshots) != 0 {
		t.Fatalf("no snapshot may be created in a foreign workspace")
	}
}

func TestCreateFromPromotionRejectsUnpromotedLog(t *testing.T) {
	workspaceID := uuid.New()
	manager := NewSnapshotManager(newStubSnapshotRepo())

	log := frozenLog(workspaceID)
	log.PromotedAt = nil

	_, err := manager.CreateFromPromotion(context.Background(), log, ownerActor(workspaceID))
	if !errors.Is(err, domain.ErrSnapshotLogNotPromoted) {
		t.Fatalf("expected ErrSnapshotLogNotPromoted, got %v", err)
	}
}

func TestCreateFromPromotionRejectsUnfrozenLog(t *testing.T) {
	workspaceID := uuid.New()
	manager := NewSnapshotManager(newStubSnapshotRepo())

	log := frozenLog(workspaceID)
	log.Frozen = false

	_, err := manager.CreateFromPromotion(context.Background(), log, ownerActor(workspaceID))
	if !errors.Is(err, domain.ErrSnapshotLogNotFrozen) {
		t.Fatalf("expected ErrSnapshotLogNotFrozen, got %v", err)
	}
}

func TestPromoteThenPromoteThenRollback(t *testing.T) {
	workspaceID := uuid.New()
	repo := newStubSnapshotRepo()
	manager := NewSnapshotManager(repo)
	actor := ownerActor(workspaceID)

	first, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), actor)
	if err != nil {
		t.Fatalf("first promotion failed: %v", err)
	}
	second, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), actor)
	if err != nil {
		t.Fatalf("second promotion failed: %v", err)
	}

	// The second promotion displaced the first.
	if repo.snapshots[first.ID].IsActive {
		t.Fatalf("first snapshot must be deactivated")
	}
	if !repo.snapshots[second.ID].IsActive {
		t.Fatalf("second snapshot must be active")
	}

	restored, err := manager.Rollback(context.Background(), first.ID, "bad metrics in v2", actor)
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	if restored.ID != first.ID || !restored.IsActive {
		t.Fatalf("rollback must reactivate the target: %+v", restored)
	}
	displaced := repo.snapshots[second.ID]
	if displaced.IsActive {
		t.Fatalf("displaced snapshot must be inactive")
	}
	if displaced.RolledBackAt == nil || displaced.RollbackReason == nil || *displaced.RollbackReason != "bad metrics in v2" {
		t.Fatalf("displaced snapshot must carry rollback metadata: %+v", displaced)
	}

	// No row was deleted: history still has both versions.
	history, err := manager.History(context.Background(), first.Scope())
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 snapshots in history, got %d", len(history))
	}
}

func TestRollbackToActiveSnapshotFails(t *testing.T) {
	workspaceID := uuid.New()
	manager := NewSnapshotManager(newStubSnapshotRepo())
	actor := ownerActor(workspaceID)

	snap, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), actor)
	if err != nil {
		t.Fatalf("promotion failed: %v", err)
	}

	_, err = manager.Rollback(context.Background(), snap.ID, "no-op", actor)
	if !errors.Is(err, domain.ErrRollbackTargetActive) {
		t.Fatalf("expected ErrRollbackTargetActive, got %v", err)
	}
}

func TestRollbackRejectsWrongWorkspace(t *testing.T) {
	workspaceID := uuid.New()
	repo := newStubSnapshotRepo()
	manager := NewSnapshotManager(repo)
	actor := ownerActor(workspaceID)

	first, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), actor)
	if err != nil {
		t.Fatalf("promotion failed: %v", err)
	}
	if _, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), actor); err != nil {
		t.Fatalf("promotion failed: %v", err)
	}

	outsider := ownerActor(uuid.New())
	_, err = manager.Rollback(context.Background(), first.ID, "cross-workspace", outsider)
	if !errors.Is(err, domain.ErrRollbackWrongWorkspace) {
		t.Fatalf("expected ErrRollbackWrongWorkspace, got %v", err)
	}
}

func TestRollbackRequiresOwnerRole(t *testing.T) {
	workspaceID := uuid.New()
	repo := newStubSnapshotRepo()
	manager := NewSnapshotManager(repo)
	owner := ownerActor(workspaceID)

	first, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), owner)
	if err != nil {
		t.Fatalf("promotion failed: %v", err)
	}
	if _, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), owner); err != nil {
		t.Fatalf("promotion failed: %v", err)
	}

	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin, WorkspaceID: workspaceID}
	_, err = manager.Rollback(context.Background(), first.ID, "attempt", admin)
	var denied *domain.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected PermissionDeniedError for admin rollback, got %v", err)
	}
}

func TestResolveActiveNoSnapshot(t *testing.T) {
	manager := NewSnapshotManager(newStubSnapshotRepo())

	scope := domain.Scope{WorkspaceID: uuid.New(), Platform: "google_ads", Dataset: "daily_metrics"}
	_, err := manager.ResolveActive(context.Background(), scope)

	var noActive *domain.NoActiveSnapshotError
	if !errors.As(err, &noActive) {
		t.Fatalf("expected NoActiveSnapshotError, got %v", err)
	}
}

func TestResolveActiveBindingViolation(t *testing.T) {
	repo := newStubSnapshotRepo()
	manager := NewSnapshotManager(repo)
	workspaceID := uuid.New()
	actor := ownerActor(workspaceID)

	snap, err := manager.CreateFromPromotion(context.Background(), frozenLog(workspaceID), actor)
	if err != nil {
		t.Fatalf("promotion failed: %v", err)
	}

	// Corrupt the store: force a second active row for the same scope.
	rogue := *repo.snapshots[snap.ID]
	rogue.ID = uuid.New()
	repo.snapshots[rogue.ID] = &rogue
	repo.order = append(repo.order, rogue.ID)

	_, err = manager.ResolveActive(context.Background(), snap.Scope())
	var binding *domain.ProductionBindingError
	if !errors.As(err, &binding) {
		t.Fatalf("expected ProductionBindingError, got %v", err)
	}
	if binding.ActiveCount != 2 {
		t.Fatalf("expected active count 2, got %d", binding.ActiveCount)
	}
}

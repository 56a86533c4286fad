package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

type stubLogRepo struct {
	logs map[uuid.UUID]*domain.IngestionLog
}

func newStubLogRepo(logs ...*domain.IngestionLog) *stubLogRepo {
	repo := &stubLogRepo{logs: map[uuid.UUID]*domain.IngestionLog{}}
	for _, log := range logs {
		repo.logs[log.ID] = log
	}
	return repo
}

func (s *stubLogRepo) Create(ctx context.Context, log domain.IngestionLog) (domain.IngestionLog, error) {
	log.ID = uuid.New()
	s.logs[log.ID] = &log
	return log, nil
}

func (s *stubLogRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.IngestionLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return domain.IngestionLog{}, errors.New("not found")
	}
	return *log, nil
}

func (s *stubLogRepo) List(ctx context.Context, workspaceID uuid.UUID, platform string, dataset string, limit int, offset int) ([]domain.IngestionLog, error) {
	return nil, nil
}

func (s *stubLogRepo) MarkPromoted(ctx context.Context, id uuid.UUID, promotedBy uuid.UUID, promotedAt time.Time) error {
	log, ok := s.logs[id]
	if !ok {
		return errors.New("not found")
	}
	if log.Frozen {
		return domain.ErrLogAlreadyPromoted
	}
	log.PromotedAt = &promotedAt
	log.PromotedBy = &promotedBy
	log.Frozen = true
	return nil
}

func eligibleLog(workspaceID uuid.UUID) *domain.IngestionLog {
	return &domain.IngestionLog{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Platform:    "google_ads",
		Dataset:     "daily_metrics",
		Status:      domain.IngestionStatusWarn,
		RowsParsed:  3,
		ValidRows:   2,
		ValidatedRows: []map[string]any{
			{"spend": 10.0},
			{"spend": 20.0},
		},
	}
}

func promoteActor(workspaceID uuid.UUID) domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin, WorkspaceID: workspaceID}
}

func TestPromoteFreezesEligibleLog(t *testing.T) {
	workspaceID := uuid.New()
	log := eligibleLog(workspaceID)
	repo := newStubLogRepo(log)
	promoter := NewPromoter(repo)

	actor := promoteActor(workspaceID)
	promoted, err := promoter.Promote(context.Background(), log.ID, actor)
	if err != nil {
		t.Fatalf("promote failed: %v", err)
	}

	if !promoted.Frozen || !promoted.Promoted() {
		t.Fatalf("expected frozen, promoted log: %+v", promoted)
	}
	if promoted.PromotedBy == nil || *promoted.PromotedBy != actor.ID {
		t.Fatalf("promotion must be attributed")
	}
	if stored := repo.logs[log.ID]; !stored.Frozen {
		t.Fatalf("freeze not persisted")
	}
}

func TestPromoteWarnStatusIsEligible(t *testing.T) {
	workspaceID := uuid.New()
	log := eligibleLog(workspaceID)
	log.Status = domain.IngestionStatusWarn
	repo := newStubLogRepo(log)

	if _, err := NewPromoter(repo).Promote(context.Background(), log.ID, promoteActor(workspaceID)); err != nil {
		t.Fatalf("warn logs with valid rows must be promotable: %v", err)
	}
}

func TestPromoteRejectsFailedLog(t *testing.T) {
	workspaceID := uuid.New()
	log := eligibleLog(workspaceID)
	log.Status = domain.IngestionStatusFail
	repo := newStubLogRepo(log)

	_, err := NewPromoter(repo).Promote(context.Background(), log.ID, promoteActor(workspaceID))
	if !errors.Is(err, domain.ErrLogStatusFailed) {
		t.Fatalf("expected ErrLogStatusFailed, got %v", err)
	}
}

func TestPromoteRejectsZeroValidRows(t *testing.T) {
	workspaceID := uuid.New()
	log := eligibleLog(workspaceID)
	log.ValidRows = 0
	repo := newStubLogRepo(log)

	_, err := NewPromoter(repo).Promote(context.Background(), log.ID, promoteActor(workspaceID))
	if !errors.Is(err, domain.ErrLogNoValidRows) {
		t.Fatalf("expected ErrLogNoValidRows, got %v", err)
	}
}

func TestPromoteRejectsEmptyPayload(t *testing.T) {
	workspaceID := uuid.New()
	log := eligibleLog(workspaceID)
	log.ValidatedRows = nil
	repo := newStubLogRepo(log)

	_, err := NewPromoter(repo).Promote(context.Background(), log.ID, promoteActor(workspaceID))
	if !errors.Is(err, domain.ErrLogEmptyPayload) {
		t.Fatalf("expected ErrLogEmptyPayload, got %v", err)
	}
}

func TestPromoteTwiceFails(t *testing.T) {
	workspaceID := uuid.New()
	log := eligibleLog(workspaceID)
	repo := newStubLogRepo(log)
	promoter := NewPromoter(repo)
	actor := promoteActor(workspaceID)

	if _, err := promoter.Promote(context.Background(), log.ID, actor); err != nil {
		t.Fatalf("first promote failed: %v", err)
	}

	_, err := promoter.Promote(context.Background(), log.ID, actor)
	if !errors.Is(err, domain.ErrLogAlreadyPromoted) {
		t.Fatalf("expected ErrLogAlreadyPromoted, got %v", err)
	}

	// The log stays frozen; a failed re-promotion never un-freezes it.
	if !repo.logs[log.ID].Frozen {
		t.Fatalf("log must remain frozen")
	}
}

func TestPromoteRejectsLogFromAnotherWorkspace(t *testing.T) {
	log := eligibleLog(uuid.New())
	repo := newStubLogRepo(log)
	promoter := NewPromoter(repo)

	// Admin of a different workspace holds the right role but not the
	// right workspace.
	actor := promoteActor(uuid.New())
	_, err := promoter.Promote(context.Background(), log.ID, actor)
	if !errors.Is(err, domain.ErrPromoteWrongWorkspace) {
		t.Fatalf("expected ErrPromoteWrongWorkspace, got %v", err)
	}
	if repo.logs[log.ID].Frozen {
		t.Fatalf("foreign log must not be frozen")
	}
}

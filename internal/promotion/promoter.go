// Package promotion owns the one-way transition of validated ingestion logs
// into production snapshots, and rollback between snapshot versions.
package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"

	"github.com/google/uuid"
)

// Promoter freezes eligible ingestion logs. Promotion is irreversible; there
// is no un-promote.
type Promoter struct {
	logs repository.IngestionLogRepository
	now  func() time.Time
}

// NewPromoter wires the promoter.
func NewPromoter(logs repository.IngestionLogRepository) *Promoter {
	return &Promoter{logs: logs, now: time.Now}
}

// Promote checks each precondition independently, then stamps promotion
// metadata and freezes the log in one atomic update. Each precondition error
// maps to a different operator remediation, so they are never collapsed.
func (p *Promoter) Promote(ctx context.Context, logID uuid.UUID, actor domain.Actor) (domain.IngestionLog, error) {
	log, err := p.logs.GetByID(ctx, logID)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to load ingestion log: %w", err)
	}

	// Roles are workspace-bound; the chain authorized the actor for their own
	// workspace only.
	if log.WorkspaceID != actor.WorkspaceID {
		return domain.IngestionLog{}, domain.ErrPromoteWrongWorkspace
	}
	if log.Status == domain.IngestionStatusFail {
		return domain.IngestionLog{}, domain.ErrLogStatusFailed
	}
	if log.ValidRows <= 0 {
		return domain.IngestionLog{}, domain.ErrLogNoValidRows
	}
	if log.Promoted() || log.Frozen {
		return domain.IngestionLog{}, domain.ErrLogAlreadyPromoted
	}
	if len(log.ValidatedRows) == 0 {
		return domain.IngestionLog{}, domain.ErrLogEmptyPayload
	}

	promotedAt := p.now()
	if err := p.logs.MarkPromoted(ctx, log.ID, actor.ID, promotedAt); err != nil {
		return domain.IngestionLog{}, err
	}

	log.PromotedAt = &promotedAt
	log.PromotedBy = &actor.ID
	log.Frozen = true

	return log, nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository wires a repository backed by pgxpool.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Record(ctx context.Context, entry domain.AuditLogEntry) error {
	if r.pool == nil {
		return fmt.Errorf("audit log repository not initialized")
	}

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO audit_logs (workspace_id, actor_id, actor_role, action, entity_type,
			entity_id, platform, dataset, client_id, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.WorkspaceID,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Platform,
		entry.Dataset,
		entry.ClientID,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit log entry: %w", err)
	}

	return nil
}

func (r *auditLogRepository) List(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.AuditLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("audit log repository not initialized")
	}

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, workspace_id, actor_id, actor_role, action, entity_type, entity_id,
			platform, dataset, client_id, metadata, created_at
		 FROM audit_logs
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		workspaceID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditLogEntry{}
	for rows.Next() {
		var (
			entry     domain.AuditLogEntry
			metadata  []byte
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.WorkspaceID,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Platform,
			&entry.Dataset,
			&entry.ClientID,
			&metadata,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", scanErr)
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}

		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate audit log entries: %w", rowsErr)
	}

	return entries, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type killSwitchRepository struct {
	pool *pgxpool.Pool
}

// NewKillSwitchRepository wires a repository backed by pgxpool.
func NewKillSwitchRepository(pool *pgxpool.Pool) KillSwitchRepository {
	return &killSwitchRepository{pool: pool}
}

const killSwitchColumns = `scope, workspace_id, enabled, reason, activated_by, activated_at, updated_at`

func (r *killSwitchRepository) GetGlobal(ctx context.Context) (*domain.KillSwitchRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("kill switch repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT `+killSwitchColumns+` FROM kill_switches WHERE scope = 'global'`,
	)
	return scanKillSwitch(row)
}

func (r *killSwitchRepository) GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.KillSwitchRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("kill switch repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT `+killSwitchColumns+` FROM kill_switches WHERE scope = 'workspace' AND workspace_id = $1`,
		workspaceID,
	)
	return scanKillSwitch(row)
}

func (r *killSwitchRepository) Upsert(ctx context.Context, record domain.KillSwitchRecord) error {
	if r.pool == nil {
		return fmt.Errorf("kill switch repository not initialized")
	}

	var err error
	if record.Scope == domain.KillSwitchScopeGlobal {
		_, err = r.pool.Exec(
			ctx,
			`INSERT INTO kill_switches (scope, workspace_id, enabled, reason, activated_by, activated_at)
			 VALUES ('global', NULL, $1, $2, $3, $4)
			 ON CONFLICT (scope) WHERE scope = 'global'
			 DO UPDATE SET enabled = $1, reason = $2, activated_by = $3, activated_at = $4, updated_at = now()`,
			record.Enabled,
			record.Reason,
			record.ActivatedBy,
			record.ActivatedAt,
		)
	} else {
		_, err = r.pool.Exec(
			ctx,
			`INSERT INTO kill_switches (scope, workspace_id, enabled, reason, activated_by, activated_at)
			 VALUES ('workspace', $1, $2, $3, $4, $5)
			 ON CONFLICT (workspace_id) WHERE scope = 'workspace'
			 DO UPDATE SET enabled = $2, reason = $3, activated_by = $4, activated_at = $5, updated_at = now()`,
			record.WorkspaceID,
			record.Enabled,
			record.Reason,
			record.ActivatedBy,
			record.ActivatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert kill switch: %w", err)
	}

	return nil
}

func scanKillSwitch(row pgx.Row) (*domain.KillSwitchRecord, error) {
	var (
		record      domain.KillSwitchRecord
		activatedAt pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	if err := row.Scan(
		&record.Scope,
		&record.WorkspaceID,
		&record.Enabled,
		&record.Reason,
		&record.ActivatedBy,
		&activatedAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan kill switch: %w", err)
	}

	if activatedAt.Valid {
		t := activatedAt.Time
		record.ActivatedAt = &t
	}
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time
	}

	return &record, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository wires a repository backed by pgxpool.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

const snapshotColumns = `id, workspace_id, platform, dataset, ingestion_log_id, is_active,
	promoted_at, promoted_by, rolled_back_at, rollback_reason, created_at`

func (r *snapshotRepository) CreateActive(ctx context.Context, snap domain.ProductionSnapshot) (domain.ProductionSnapshot, error) {
	if r.pool == nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("snapshot repository not initialized")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Deactivate the current pointer first; the partial unique index rejects a
	// second active row per scope, so racing promotions serialize here.
	_, err = tx.Exec(
		ctx,
		`UPDATE production_snapshots
		 SET is_active = FALSE
		 WHERE workspace_id = $1 AND platform = $2 AND dataset = $3 AND is_active`,
		snap.WorkspaceID,
		snap.Platform,
		snap.Dataset,
	)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to deactivate current snapshot: %w", err)
	}

	row := tx.QueryRow(
		ctx,
		`INSERT INTO production_snapshots (workspace_id, platform, dataset, ingestion_log_id,
			is_active, promoted_at, promoted_by)
		 VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		 RETURNING `+snapshotColumns,
		snap.WorkspaceID,
		snap.Platform,
		snap.Dataset,
		snap.IngestionLogID,
		snap.PromotedAt,
		snap.PromotedBy,
	)

	created, err := scanSnapshot(row)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	return created, nil
}

func (r *snapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ProductionSnapshot, error) {
	if r.pool == nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("snapshot repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT `+snapshotColumns+` FROM production_snapshots WHERE id = $1`,
		id,
	)

	snap, err := scanSnapshot(row)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepository) GetActive(ctx context.Context, scope domain.Scope) (domain.ProductionSnapshot, error) {
	if r.pool == nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("snapshot repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+snapshotColumns+`
		 FROM production_snapshots
		 WHERE workspace_id = $1 AND platform = $2 AND dataset = $3 AND is_active`,
		scope.WorkspaceID,
		scope.Platform,
		scope.Dataset,
	)
	if err != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to query active snapshot: %w", err)
	}
	defer rows.Close()

	active := []domain.ProductionSnapshot{}
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return domain.ProductionSnapshot{}, fmt.Errorf("failed to scan snapshot: %w", scanErr)
		}
		active = append(active, snap)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return domain.ProductionSnapshot{}, fmt.Errorf("failed to iterate snapshots: %w", rowsErr)
	}

	switch len(active) {
	case 0:
		return domain.ProductionSnapshot{}, &domain.NoActiveSnapshotError{Scope: scope}
	case 1:
		return active[0], nil
	default:
		return domain.ProductionSnapshot{}, &domain.ProductionBindingError{Scope: scope, ActiveCount: len(active)}
	}
}

func (r *snapshotRepository) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.ProductionSnapshot, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("snapshot repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+snapshotColumns+`
		 FROM production_snapshots
		 WHERE workspace_id = $1 AND platform = $2 AND dataset = $3
		 ORDER BY created_at ASC`,
		scope.WorkspaceID,
		scope.Platform,
		scope.Dataset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []domain.ProductionSnapshot{}
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", scanErr)
		}
		snapshots = append(snapshots, snap)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", rowsErr)
	}

	return snapshots, nil
}

func (r *snapshotRepository) Reactivate(ctx context.Context, target domain.ProductionSnapshot, reason string, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("snapshot repository not initialized")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rollback transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Stamp and deactivate the current pointer. Data is never deleted; only
	// is_active and the rollback bookkeeping fields move.
	_, err = tx.Exec(
		ctx,
		`UPDATE production_snapshots
		 SET is_active = FALSE, rolled_back_at = $4, rollback_reason = $5
		 WHERE workspace_id = $1 AND platform = $2 AND dataset = $3 AND is_active`,
		target.WorkspaceID,
		target.Platform,
		target.Dataset,
		at,
		reason,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate current snapshot: %w", err)
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE production_snapshots SET is_active = TRUE WHERE id = $1 AND NOT is_active`,
		target.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to reactivate snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRollbackTargetActive
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rollback transaction: %w", err)
	}

	return nil
}

func scanSnapshot(row pgx.Row) (domain.ProductionSnapshot, error) {
	var (
		snap           domain.ProductionSnapshot
		promotedAt     pgtype.Timestamptz
		rolledBackAt   pgtype.Timestamptz
		rollbackReason pgtype.Text
		createdAt      pgtype.Timestamptz
	)

	if err := row.Scan(
		&snap.ID,
		&snap.WorkspaceID,
		&snap.Platform,
		&snap.Dataset,
		&snap.IngestionLogID,
		&snap.IsActive,
		&promotedAt,
		&snap.PromotedBy,
		&rolledBackAt,
		&rollbackReason,
		&createdAt,
	); err != nil {
		return domain.ProductionSnapshot{}, err
	}

	if promotedAt.Valid {
		snap.PromotedAt = promotedAt.Time
	}
	if rolledBackAt.Valid {
		t := rolledBackAt.Time
		snap.RolledBackAt = &t
	}
	if rollbackReason.Valid {
		reason := rollbackReason.String
		snap.RollbackReason = &reason
	}
	if createdAt.Valid {
		snap.CreatedAt = createdAt.Time
	}

	return snap, nil
}

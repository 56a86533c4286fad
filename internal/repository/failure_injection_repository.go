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

type failureInjectionRepository struct {
	pool *pgxpool.Pool
}

// NewFailureInjectionRepository wires a repository backed by pgxpool.
func NewFailureInjectionRepository(pool *pgxpool.Pool) FailureInjectionRepository {
	return &failureInjectionRepository{pool: pool}
}

func (r *failureInjectionRepository) Get(ctx context.Context, workspaceID uuid.UUID, action domain.Action) (*domain.FailureInjectionConfig, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("failure injection repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT workspace_id, action, failure_type, probability, enabled, updated_at
		 FROM failure_injections
		 WHERE workspace_id = $1 AND action = $2`,
		workspaceID,
		action,
	)

	config, err := scanFailureInjection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failure injection config: %w", err)
	}
	return config, nil
}

func (r *failureInjectionRepository) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.FailureInjectionConfig, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("failure injection repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT workspace_id, action, failure_type, probability, enabled, updated_at
		 FROM failure_injections
		 WHERE workspace_id = $1
		 ORDER BY action`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list failure injection configs: %w", err)
	}
	defer rows.Close()

	configs := []domain.FailureInjectionConfig{}
	for rows.Next() {
		config, scanErr := scanFailureInjection(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan failure injection config: %w", scanErr)
		}
		configs = append(configs, *config)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate failure injection configs: %w", rowsErr)
	}

	return configs, nil
}

func (r *failureInjectionRepository) Upsert(ctx context.Context, config domain.FailureInjectionConfig) error {
	if r.pool == nil {
		return fmt.Errorf("failure injection repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO failure_injections (workspace_id, action, failure_type, probability, enabled)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (workspace_id, action)
		 DO UPDATE SET failure_type = $3, probability = $4, enabled = $5, updated_at = now()`,
		config.WorkspaceID,
		config.Action,
		config.FailureType,
		config.Probability,
		config.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert failure injection config: %w", err)
	}

	return nil
}

func scanFailureInjection(row pgx.Row) (*domain.FailureInjectionConfig, error) {
	var (
		config    domain.FailureInjectionConfig
		updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(
		&config.WorkspaceID,
		&config.Action,
		&config.FailureType,
		&config.Probability,
		&config.Enabled,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		config.UpdatedAt = updatedAt.Time
	}

	return &config, nil
}

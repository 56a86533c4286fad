package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ingestionLogRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionLogRepository wires a repository backed by pgxpool.
func NewIngestionLogRepository(pool *pgxpool.Pool) IngestionLogRepository {
	return &ingestionLogRepository{pool: pool}
}

const ingestionLogColumns = `id, workspace_id, client_id, platform, dataset, file_name,
	rows_parsed, valid_rows, status, preview, errors, error_count, warnings,
	validated_rows, missing_columns, extra_columns, promoted_at, promoted_by, frozen, created_at`

func (r *ingestionLogRepository) Create(ctx context.Context, log domain.IngestionLog) (domain.IngestionLog, error) {
	if r.pool == nil {
		return domain.IngestionLog{}, fmt.Errorf("ingestion log repository not initialized")
	}

	preview, err := json.Marshal(log.Preview)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to marshal preview: %w", err)
	}
	rowErrors, err := json.Marshal(log.Errors)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to marshal errors: %w", err)
	}
	warnings, err := json.Marshal(log.Warnings)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to marshal warnings: %w", err)
	}
	validatedRows, err := json.Marshal(log.ValidatedRows)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to marshal validated rows: %w", err)
	}
	missingColumns, err := json.Marshal(log.MissingColumns)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to marshal missing columns: %w", err)
	}
	extraColumns, err := json.Marshal(log.ExtraColumns)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to marshal extra columns: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO ingestion_logs (workspace_id, client_id, platform, dataset, file_name,
			rows_parsed, valid_rows, status, preview, errors, error_count, warnings,
			validated_rows, missing_columns, extra_columns)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+ingestionLogColumns,
		log.WorkspaceID,
		log.ClientID,
		log.Platform,
		log.Dataset,
		log.FileName,
		log.RowsParsed,
		log.ValidRows,
		log.Status,
		preview,
		rowErrors,
		log.ErrorCount,
		warnings,
		validatedRows,
		missingColumns,
		extraColumns,
	)

	created, err := scanIngestionLog(row)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to create ingestion log: %w", err)
	}
	return created, nil
}

func (r *ingestionLogRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.IngestionLog, error) {
	if r.pool == nil {
		return domain.IngestionLog{}, fmt.Errorf("ingestion log repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT `+ingestionLogColumns+` FROM ingestion_logs WHERE id = $1`,
		id,
	)

	log, err := scanIngestionLog(row)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to get ingestion log: %w", err)
	}
	return log, nil
}

func (r *ingestionLogRepository) List(ctx context.Context, workspaceID uuid.UUID, platform string, dataset string, limit int, offset int) ([]domain.IngestionLog, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("ingestion log repository not initialized")
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+ingestionLogColumns+`
		 FROM ingestion_logs
		 WHERE workspace_id = $1
		   AND ($2 = '' OR platform = $2)
		   AND ($3 = '' OR dataset = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		workspaceID,
		platform,
		dataset,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.IngestionLog{}
	for rows.Next() {
		log, scanErr := scanIngestionLog(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan ingestion log: %w", scanErr)
		}
		logs = append(logs, log)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate ingestion logs: %w", rowsErr)
	}

	return logs, nil
}

func (r *ingestionLogRepository) MarkPromoted(ctx context.Context, id uuid.UUID, promotedBy uuid.UUID, promotedAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("ingestion log repository not initialized")
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE ingestion_logs
		 SET promoted_at = $2, promoted_by = $3, frozen = TRUE
		 WHERE id = $1 AND frozen = FALSE`,
		id,
		promotedAt,
		promotedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to mark ingestion log promoted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLogAlreadyPromoted
	}

	return nil
}

func scanIngestionLog(row pgx.Row) (domain.IngestionLog, error) {
	var (
		log            domain.IngestionLog
		preview        []byte
		rowErrors      []byte
		warnings       []byte
		validatedRows  []byte
		missingColumns []byte
		extraColumns   []byte
		promotedAt     pgtype.Timestamptz
		createdAt      pgtype.Timestamptz
	)

	if err := row.Scan(
		&log.ID,
		&log.WorkspaceID,
		&log.ClientID,
		&log.Platform,
		&log.Dataset,
		&log.FileName,
		&log.RowsParsed,
		&log.ValidRows,
		&log.Status,
		&preview,
		&rowErrors,
		&log.ErrorCount,
		&warnings,
		&validatedRows,
		&missingColumns,
		&extraColumns,
		&promotedAt,
		&log.PromotedBy,
		&log.Frozen,
		&createdAt,
	); err != nil {
		return domain.IngestionLog{}, err
	}

	if err := unmarshalInto(preview, &log.Preview); err != nil {
		return domain.IngestionLog{}, err
	}
	if err := unmarshalInto(rowErrors, &log.Errors); err != nil {
		return domain.IngestionLog{}, err
	}
	if err := unmarshalInto(warnings, &log.Warnings); err != nil {
		return domain.IngestionLog{}, err
	}
	if err := unmarshalInto(validatedRows, &log.ValidatedRows); err != nil {
		return domain.IngestionLog{}, err
	}
	if err := unmarshalInto(missingColumns, &log.MissingColumns); err != nil {
		return domain.IngestionLog{}, err
	}
	if err := unmarshalInto(extraColumns, &log.ExtraColumns); err != nil {
		return domain.IngestionLog{}, err
	}

	if promotedAt.Valid {
		t := promotedAt.Time
		log.PromotedAt = &t
	}
	if createdAt.Valid {
		log.CreatedAt = createdAt.Time
	}

	return log, nil
}

func unmarshalInto(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to unmarshal ingestion log payload: %w", err)
	}
	return nil
}

// IsNotFound reports whether an error from this package wraps a missing-row
// lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

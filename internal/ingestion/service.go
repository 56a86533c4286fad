// Package ingestion validates uploaded dataset exports and records each
// attempt as an ingestion log.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"
	"github.com/rpattn/datagov/internal/schema"

	"github.com/google/uuid"
)

// Service runs uploads through the validator and persists the outcome. It
// never touches production snapshots; promotion is a separate, guarded step.
type Service struct {
	logs    repository.IngestionLogRepository
	catalog *schema.Catalog
	opts    ValidateOptions
}

// NewService creates a new ingestion service.
func NewService(logs repository.IngestionLogRepository, catalog *schema.Catalog) *Service {
	return &Service{logs: logs, catalog: catalog}
}

// Request describes one upload.
type Request struct {
	WorkspaceID uuid.UUID
	ClientID    *uuid.UUID
	Platform    string
	Dataset     string
	FileName    string
	Data        io.Reader
}

// IngestUpload validates the upload and records an ingestion log, whatever
// the validation outcome. A failed validation is still a recorded attempt.
func (s *Service) IngestUpload(ctx context.Context, req Request) (domain.IngestionLog, error) {
	if req.WorkspaceID == uuid.Nil {
		return domain.IngestionLog{}, errors.New("workspace id is required")
	}
	if strings.TrimSpace(req.Platform) == "" {
		return domain.IngestionLog{}, errors.New("platform is required")
	}
	if strings.TrimSpace(req.Dataset) == "" {
		return domain.IngestionLog{}, errors.New("dataset is required")
	}
	if req.Data == nil {
		return domain.IngestionLog{}, errors.New("data reader is required")
	}

	ds, ok := s.catalog.Get(req.Dataset)
	if !ok {
		return domain.IngestionLog{}, fmt.Errorf("unknown dataset %q", req.Dataset)
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return domain.IngestionLog{}, fmt.Errorf("failed to read upload: %w", err)
	}

	result, err := Validate(req.FileName, payload, ds, s.opts)
	if err != nil {
		return domain.IngestionLog{}, err
	}

	log := domain.IngestionLog{
		WorkspaceID:    req.WorkspaceID,
		ClientID:       req.ClientID,
		Platform:       req.Platform,
		Dataset:        req.Dataset,
		FileName:       req.FileName,
		RowsParsed:     result.RowsParsed,
		ValidRows:      result.ValidRows,
		Status:         result.Status,
		Preview:        result.Preview,
		Errors:         result.Errors,
		ErrorCount:     result.ErrorCount,
		Warnings:       result.Warnings,
		ValidatedRows:  result.ValidatedRows,
		MissingColumns: result.MissingColumns,
		ExtraColumns:   result.ExtraColumns,
	}

	created, err := s.logs.Create(ctx, log)
	if err != nil {
		return domain.IngestionLog{}, err
	}

	return created, nil
}

// List returns recent ingestion logs for a workspace, optionally filtered by
// platform and dataset.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, platform string, dataset string, limit int, offset int) ([]domain.IngestionLog, error) {
	return s.logs.List(ctx, workspaceID, platform, dataset, limit, offset)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionStatus is the outcome of validating one upload.
type IngestionStatus string

const (
	IngestionStatusPass IngestionStatus = "pass"
	IngestionStatusWarn IngestionStatus = "warn"
	IngestionStatusFail IngestionStatus = "fail"
)

// RowError describes a single row-level validation failure. Row numbers are
// 1-based spreadsheet rows, so they account for the header offset.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// IngestionLog records one upload attempt against a dataset schema. It is
// created by the validator, mutated exactly once when promoted, and referenced
// (never mutated again) by production snapshots.
type IngestionLog struct {
	ID             uuid.UUID           `json:"id"`
	WorkspaceID    uuid.UUID           `json:"workspace_id"`
	ClientID       *uuid.UUID          `json:"client_id,omitempty"`
	Platform       string              `json:"platform"`
	Dataset        string              `json:"dataset"`
	FileName       string              `json:"file_name"`
	RowsParsed     int                 `json:"rows_parsed"`
	ValidRows      int                 `json:"valid_rows"`
	Status         IngestionStatus     `json:"status"`
	Preview        []map[string]string `json:"preview"`
	Errors         []RowError          `json:"errors"`
	ErrorCount     int                 `json:"error_count"`
	Warnings       []string            `json:"warnings"`
	ValidatedRows  []map[string]any    `json:"validated_rows"`
	MissingColumns []string            `json:"missing_columns"`
	ExtraColumns   []string            `json:"extra_columns"`
	PromotedAt     *time.Time          `json:"promoted_at,omitempty"`
	PromotedBy     *uuid.UUID          `json:"promoted_by,omitempty"`
	Frozen         bool                `json:"frozen"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Promoted reports whether the log has gone through promotion.
func (l IngestionLog) Promoted() bool {
	return l.PromotedAt != nil
}

// Scope returns the snapshot scope this log belongs to.
func (l IngestionLog) Scope() Scope {
	return Scope{WorkspaceID: l.WorkspaceID, Platform: l.Platform, Dataset: l.Dataset}
}

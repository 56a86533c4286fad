package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/datagov/internal/auth"
	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/guard"

	"github.com/google/uuid"
)

const maxUploadBytes = 50 << 20 // 50MB

// Handler exposes ingestion uploads and log listing over HTTP.
type Handler struct {
	chain   *guard.Chain
	service *Service
}

// NewHandler wires the ingestion endpoints.
func NewHandler(chain *guard.Chain, service *Service) *Handler {
	return &Handler{chain: chain, service: service}
}

// HandleUpload serves POST /api/ingestions. The upload is a multipart form
// with a "file" part plus platform and dataset fields.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	workspaceID, err := workspaceFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("failed to parse upload: %v", err), http.StatusBadRequest)
		return
	}

	platform := strings.TrimSpace(r.FormValue("platform"))
	dataset := strings.TrimSpace(r.FormValue("dataset"))
	if platform == "" || dataset == "" {
		http.Error(w, "platform and dataset are required", http.StatusBadRequest)
		return
	}

	var clientID *uuid.UUID
	if raw := strings.TrimSpace(r.FormValue("clientId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid client id: %v", err), http.StatusBadRequest)
			return
		}
		clientID = &id
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	guardReq := guard.Request{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Action:      domain.ActionIngest,
		EntityType:  "ingestion_log",
		Platform:    platform,
		Dataset:     dataset,
		ClientID:    clientID,
		AuditDenied: true,
	}
	actor, err := h.chain.Guard(r.Context(), guardReq)
	if err != nil {
		guard.WriteGuardError(w, err)
		return
	}

	log, err := h.service.IngestUpload(r.Context(), Request{
		WorkspaceID: workspaceID,
		ClientID:    clientID,
		Platform:    platform,
		Dataset:     dataset,
		FileName:    header.Filename,
		Data:        file,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	guardReq.EntityID = log.ID.String()
	h.chain.Audited(r.Context(), actor, guardReq, map[string]any{
		"status":      string(log.Status),
		"rows_parsed": log.RowsParsed,
		"valid_rows":  log.ValidRows,
		"error_count": log.ErrorCount,
	})

	writeJSON(w, http.StatusCreated, log)
}

// HandleList serves GET /api/ingestions.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	workspaceID, err := workspaceFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// An injected stale_data failure degrades the read instead of failing it:
	// the response is served but flagged stale.
	stale := false
	if _, err := h.chain.Guard(r.Context(), guard.Request{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Action:      domain.ActionReadAnalytics,
		EntityType:  "ingestion_log",
	}); err != nil {
		var injected *domain.InjectedFailureError
		if !errors.As(err, &injected) || injected.Type != domain.FailureTypeStaleData {
			guard.WriteGuardError(w, err)
			return
		}
		stale = true
	}

	query := r.URL.Query()
	platform := strings.TrimSpace(query.Get("platform"))
	dataset := strings.TrimSpace(query.Get("dataset"))
	limit := intFromQuery(query.Get("limit"), 50)
	offset := intFromQuery(query.Get("offset"), 0)

	logs, err := h.service.List(r.Context(), workspaceID, platform, dataset, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	payload := map[string]any{"logs": logs}
	if stale {
		payload["stale"] = true
	}
	writeJSON(w, http.StatusOK, payload)
}

func intFromQuery(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func workspaceFromQuery(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("workspaceId"))
	if raw == "" {
		return uuid.Nil, fmt.Errorf("workspaceId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid workspace id: %v", err)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

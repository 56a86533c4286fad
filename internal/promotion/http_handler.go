package promotion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rpattn/datagov/internal/auth"
	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/guard"

	"github.com/google/uuid"
)

// Handler exposes promotion, rollback, and snapshot reads over HTTP.
type Handler struct {
	chain     *guard.Chain
	promoter  *Promoter
	snapshots *SnapshotManager
}

// NewHandler wires the promotion endpoints.
func NewHandler(chain *guard.Chain, promoter *Promoter, snapshots *SnapshotManager) *Handler {
	return &Handler{chain: chain, promoter: promoter, snapshots: snapshots}
}

type promoteRequest struct {
	LogID string `json:"log_id"`
}

type promoteResponse struct {
	Log      domain.IngestionLog        `json:"log"`
	Snapshot *domain.ProductionSnapshot `json:"snapshot,omitempty"`
	// SnapshotError is set when the log froze but the snapshot swap failed.
	// The caller must re-check the active snapshot before assuming production
	// state changed.
	SnapshotError string `json:"snapshot_error,omitempty"`
}

// HandlePromote serves POST /api/promotions.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	logID, err := uuid.Parse(strings.TrimSpace(req.LogID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid log id: %v", err), http.StatusBadRequest)
		return
	}

	workspaceID, err := workspaceFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	guardReq := guard.Request{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Action:      domain.ActionPromote,
		EntityType:  "ingestion_log",
		EntityID:    logID.String(),
		AuditDenied: true,
	}
	actor, err := h.chain.Guard(r.Context(), guardReq)
	if err != nil {
		guard.WriteGuardError(w, err)
		return
	}

	log, err := h.promoter.Promote(r.Context(), logID, actor)
	if err != nil {
		writePromotionError(w, err)
		return
	}

	guardReq.Platform = log.Platform
	guardReq.Dataset = log.Dataset
	guardReq.ClientID = log.ClientID

	resp := promoteResponse{Log: log}

	// Promotion and snapshot activation are separate transactions. A frozen
	// log with a failed activation is a possible outcome the caller must
	// handle by re-checking the active snapshot.
	snap, err := h.snapshots.CreateFromPromotion(r.Context(), log, actor)
	if err != nil {
		resp.SnapshotError = err.Error()
		h.chain.Audited(r.Context(), actor, guardReq, map[string]any{
			"promoted":       true,
			"snapshot_error": err.Error(),
		})
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Snapshot = &snap
	h.chain.Audited(r.Context(), actor, guardReq, map[string]any{
		"promoted":    true,
		"snapshot_id": snap.ID.String(),
	})

	writeJSON(w, http.StatusOK, resp)
}

type rollbackRequest struct {
	SnapshotID string `json:"snapshot_id"`
	Reason     string `json:"reason"`
}

// HandleRollback serves POST /api/rollbacks.
func (h *Handler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	snapshotID, err := uuid.Parse(strings.TrimSpace(req.SnapshotID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid snapshot id: %v", err), http.StatusBadRequest)
		return
	}

	workspaceID, err := workspaceFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	guardReq := guard.Request{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Action:      domain.ActionRollback,
		EntityType:  "production_snapshot",
		EntityID:    snapshotID.String(),
		AuditDenied: true,
	}
	actor, err := h.chain.Guard(r.Context(), guardReq)
	if err != nil {
		guard.WriteGuardError(w, err)
		return
	}

	snap, err := h.snapshots.Rollback(r.Context(), snapshotID, req.Reason, actor)
	if err != nil {
		writePromotionError(w, err)
		return
	}

	guardReq.Platform = snap.Platform
	guardReq.Dataset = snap.Dataset
	h.chain.Audited(r.Context(), actor, guardReq, map[string]any{
		"rolled_back": true,
		"reason":      req.Reason,
	})

	writeJSON(w, http.StatusOK, snap)
}

// HandleActive serves GET /api/snapshots/active. Absence of an active
// snapshot is reported as a first-class outcome, not an error status.
func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scope, err := scopeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.snapshots.ResolveActive(r.Context(), scope)
	if err != nil {
		var noActive *domain.NoActiveSnapshotError
		if errors.As(err, &noActive) {
			writeJSON(w, http.StatusOK, map[string]any{"active": nil})
			return
		}
		var binding *domain.ProductionBindingError
		if errors.As(err, &binding) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"active": snap})
}

// HandleHistory serves GET /api/snapshots/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	scope, err := scopeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// An injected stale_data failure degrades the read instead of failing it.
	stale := false
	if _, err := h.chain.Guard(r.Context(), guard.Request{
		UserID:      userID,
		WorkspaceID: scope.WorkspaceID,
		Action:      domain.ActionReadAnalytics,
		EntityType:  "production_snapshot",
		Platform:    scope.Platform,
		Dataset:     scope.Dataset,
	}); err != nil {
		var injected *domain.InjectedFailureError
		if !errors.As(err, &injected) || injected.Type != domain.FailureTypeStaleData {
			guard.WriteGuardError(w, err)
			return
		}
		stale = true
	}

	history, err := h.snapshots.History(r.Context(), scope)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	payload := map[string]any{"snapshots": history}
	if stale {
		payload["stale"] = true
	}
	writeJSON(w, http.StatusOK, payload)
}

func writePromotionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrLogStatusFailed),
		errors.Is(err, domain.ErrLogNoValidRows),
		errors.Is(err, domain.ErrLogAlreadyPromoted),
		errors.Is(err, domain.ErrLogEmptyPayload),
		errors.Is(err, domain.ErrRollbackTargetActive),
		errors.Is(err, domain.ErrSnapshotLogNotEligible),
		errors.Is(err, domain.ErrSnapshotLogNotPromoted),
		errors.Is(err, domain.ErrSnapshotLogNotFrozen):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrRollbackWrongWorkspace),
		errors.Is(err, domain.ErrPromoteWrongWorkspace):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		guard.WriteGuardError(w, err)
	}
}

func scopeFromQuery(r *http.Request) (domain.Scope, error) {
	workspaceID, err := workspaceFromQuery(r)
	if err != nil {
		return domain.Scope{}, err
	}

	platform := strings.TrimSpace(r.URL.Query().Get("platform"))
	if platform == "" {
		return domain.Scope{}, fmt.Errorf("platform is required")
	}
	dataset := strings.TrimSpace(r.URL.Query().Get("dataset"))
	if dataset == "" {
		return domain.Scope{}, fmt.Errorf("dataset is required")
	}

	return domain.Scope{WorkspaceID: workspaceID, Platform: platform, Dataset: dataset}, nil
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

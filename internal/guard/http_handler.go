package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rpattn/datagov/internal/auth"
	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

// AdminHandler exposes kill-switch and chaos administration over HTTP.
type AdminHandler struct {
	chain *Chain
	admin *Admin
}

// NewAdminHandler wires the admin endpoints.
func NewAdminHandler(chain *Chain, admin *Admin) *AdminHandler {
	return &AdminHandler{chain: chain, admin: admin}
}

type killSwitchRequest struct {
	Scope       string `json:"scope"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Enabled     bool   `json:"enabled"`
	Reason      string `json:"reason"`
}

// HandleKillSwitch serves POST /api/admin/killswitch.
func (h *AdminHandler) HandleKillSwitch(w http.ResponseWriter, r *http.Request) {
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

	var req killSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	actor, err := h.chain.Guard(r.Context(), Request{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Action:      domain.ActionKillSwitchManage,
		EntityType:  "kill_switch",
		EntityID:    req.Scope,
		AuditDenied: true,
	})
	if err != nil {
		writeGuardError(w, err)
		return
	}

	scope := domain.KillSwitchScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	var targetWorkspace *uuid.UUID
	if req.WorkspaceID != "" {
		id, parseErr := uuid.Parse(req.WorkspaceID)
		if parseErr != nil {
			http.Error(w, fmt.Sprintf("invalid workspace id: %v", parseErr), http.StatusBadRequest)
			return
		}
		targetWorkspace = &id
	}

	record, err := h.admin.SetKillSwitch(r.Context(), actor, scope, targetWorkspace, req.Enabled, req.Reason)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// HandleChaos serves POST /api/admin/chaos.
func (h *AdminHandler) HandleChaos(w http.ResponseWriter, r *http.Request) {
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

	actor, err := h.chain.Guard(r.Context(), Request{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Action:      domain.ActionChaosManage,
		EntityType:  "failure_injection",
		EntityID:    "chaos_plan",
		AuditDenied: true,
	})
	if err != nil {
		writeGuardError(w, err)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}

	applied, err := h.admin.ApplyChaosPlan(r.Context(), actor, raw)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configs_applied": applied})
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

// writeAdminError maps admin-surface errors. Scoping refusals are forbidden,
// not malformed input.
func writeAdminError(w http.ResponseWriter, err error) {
	var denied *domain.PermissionDeniedError
	switch {
	case errors.Is(err, domain.ErrKillSwitchWrongWorkspace),
		errors.Is(err, domain.ErrChaosPlanWrongWorkspace),
		errors.As(err, &denied):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// WriteGuardError maps guard errors to HTTP statuses. Kill-switch blocks and
// injected failures are surfaced distinctly so callers can tell a policy stop
// from a chaos simulation.
func writeGuardError(w http.ResponseWriter, err error) {
	var (
		denied     *domain.PermissionDeniedError
		invalid    *domain.InvalidRoleError
		killSwitch *domain.KillSwitchActiveError
		injected   *domain.InjectedFailureError
	)

	switch {
	case errors.Is(err, domain.ErrMissingActor):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &denied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &killSwitch):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &injected):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteGuardError is the exported form used by handler packages that guard
// their own routes.
func WriteGuardError(w http.ResponseWriter, err error) {
	writeGuardError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

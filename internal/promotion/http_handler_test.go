package promotion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpattn/datagov/internal/auth"
	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/guard"

	"github.com/google/uuid"
)

type openSwitchRepo struct{}

func (openSwitchRepo) GetGlobal(ctx context.Context) (*domain.KillSwitchRecord, error) {
	return nil, nil
}

func (openSwitchRepo) GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.KillSwitchRecord, error) {
	return nil, nil
}

func (openSwitchRepo) Upsert(ctx context.Context, record domain.KillSwitchRecord) error {
	return nil
}

type readInjectionRepo struct {
	config *domain.FailureInjectionConfig
}

func (s *readInjectionRepo) Get(ctx context.Context, workspaceID uuid.UUID, action domain.Action) (*domain.FailureInjectionConfig, error) {
	if s.config != nil && s.config.Action == action {
		return s.config, nil
	}
	return nil, nil
}

func (s *readInjectionRepo) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.FailureInjectionConfig, error) {
	return nil, nil
}

func (s *readInjectionRepo) Upsert(ctx context.Context, config domain.FailureInjectionConfig) error {
	return nil
}

type captureAuditRepo struct {
	entries []domain.AuditLogEntry
}

func (r *captureAuditRepo) Record(ctx context.Context, entry domain.AuditLogEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *captureAuditRepo) List(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.AuditLogEntry, error) {
	return r.entries, nil
}

type historyFixture struct {
	handler     *Handler
	snapshots   *stubSnapshotRepo
	injections  *readInjectionRepo
	userID      uuid.UUID
	workspaceID uuid.UUID
}

func newHistoryFixture(role domain.Role) *historyFixture {
	userID := uuid.New()
	workspaceID := uuid.New()

	injections := &readInjectionRepo{}
	logger := guard.NewAuditLogger(&captureAuditRepo{})
	chain := guard.NewChain(
		guard.NewDevFallbackResolver(domain.Actor{ID: userID, Role: role, WorkspaceID: workspaceID}),
		guard.NewKillSwitch(openSwitchRepo{}, logger, time.Minute),
		guard.NewInjector(injections, logger, nil),
		logger,
	)

	snapshots := newStubSnapshotRepo()
	logs := newStubLogRepo()
	return &historyFixture{
		handler:     NewHandler(chain, NewPromoter(logs), NewSnapshotManager(snapshots)),
		snapshots:   snapshots,
		injections:  injections,
		userID:      userID,
		workspaceID: workspaceID,
	}
}

func (f *historyFixture) historyRequest() *http.Request {
	url := "/api/snapshots/history?workspaceId=" + f.workspaceID.String() +
		"&platform=google_ads&dataset=daily_metrics"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	return req.WithContext(auth.ContextWithUserID(req.Context(), f.userID))
}

func TestHandleHistoryReturnsScopeSnapshots(t *testing.T) {
	f := newHistoryFixture(domain.RoleViewer)

	manager := NewSnapshotManager(f.snapshots)
	if _, err := manager.CreateFromPromotion(context.Background(), frozenLog(f.workspaceID), ownerActor(f.workspaceID)); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.HandleHistory(rec, f.historyRequest())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Snapshots []domain.ProductionSnapshot `json:"snapshots"`
		Stale     bool                        `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(payload.Snapshots))
	}
	if payload.Stale {
		t.Fatalf("healthy read must not be flagged stale")
	}
}

func TestHandleHistoryDegradesOnStaleDataInjection(t *testing.T) {
	f := newHistoryFixture(domain.RoleViewer)
	f.injections.config = &domain.FailureInjectionConfig{
		WorkspaceID: f.workspaceID,
		Action:      domain.ActionReadAnalytics,
		FailureType: domain.FailureTypeStaleData,
		Probability: 100,
		Enabled:     true,
	}

	rec := httptest.NewRecorder()
	f.handler.HandleHistory(rec, f.historyRequest())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected degraded 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Stale bool `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Stale {
		t.Fatalf("response must be flagged stale")
	}
}

func TestHandleHistoryStillFailsOnOtherInjections(t *testing.T) {
	f := newHistoryFixture(domain.RoleViewer)
	f.injections.config = &domain.FailureInjectionConfig{
		WorkspaceID: f.workspaceID,
		Action:      domain.ActionReadAnalytics,
		FailureType: domain.FailureTypeThrow,
		Probability: 100,
		Enabled:     true,
	}

	rec := httptest.NewRecorder()
	f.handler.HandleHistory(rec, f.historyRequest())

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for throw injection, got %d", rec.Code)
	}
}

package guard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

func TestParseChaosPlanValid(t *testing.T) {
	workspaceID := uuid.New()
	raw := fmt.Sprintf(`{
		"injections": [
			{"workspace_id": %q, "action": "PROMOTE", "failure_type": "timeout", "probability": 30, "enabled": true},
			{"workspace_id": %q, "action": "INGEST", "failure_type": "partial", "probability": 5}
		]
	}`, workspaceID, workspaceID)

	configs, err := ParseChaosPlan([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	if configs[0].Action != domain.ActionPromote || configs[0].FailureType != domain.FailureTypeTimeout {
		t.Fatalf("unexpected first config: %+v", configs[0])
	}
	if configs[0].Probability != 30 || !configs[0].Enabled {
		t.Fatalf("unexpected first config: %+v", configs[0])
	}
	if configs[1].Enabled {
		t.Fatalf("enabled must default to false")
	}
}

func TestParseChaosPlanRejectsUnknownAction(t *testing.T) {
	raw := fmt.Sprintf(`{"injections": [{"workspace_id": %q, "action": "DROP_TABLES", "failure_type": "throw", "probability": 10}]}`, uuid.New())

	if _, err := ParseChaosPlan([]byte(raw)); err == nil {
		t.Fatalf("expected schema validation failure for unknown action")
	}
}

func TestParseChaosPlanRejectsProbabilityOutOfRange(t *testing.T) {
	raw := fmt.Sprintf(`{"injections": [{"workspace_id": %q, "action": "PROMOTE", "failure_type": "throw", "probability": 101}]}`, uuid.New())

	if _, err := ParseChaosPlan([]byte(raw)); err == nil {
		t.Fatalf("expected schema validation failure for probability > 100")
	}
}

func TestParseChaosPlanRejectsUnknownFields(t *testing.T) {
	raw := fmt.Sprintf(`{"injections": [{"workspace_id": %q, "action": "PROMOTE", "failure_type": "throw", "probability": 10, "blast_radius": "all"}]}`, uuid.New())

	if _, err := ParseChaosPlan([]byte(raw)); err == nil {
		t.Fatalf("expected schema validation failure for unknown field")
	}
}

func TestParseChaosPlanRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseChaosPlan([]byte(`{"injections": [`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestAdminApplyChaosPlanUpserts(t *testing.T) {
	repo := &stubInjectionRepo{}
	admin := NewAdmin(&stubKillSwitchRepo{}, repo, NewAuditLogger(&stubAuditRepo{}))

	actor := testActor(domain.RoleAdmin)
	raw := fmt.Sprintf(`{"injections": [
		{"workspace_id": %q, "action": "PROMOTE", "failure_type": "throw", "probability": 50, "enabled": true},
		{"workspace_id": %q, "action": "ROLLBACK", "failure_type": "stale_data", "probability": 10, "enabled": true}
	]}`, actor.WorkspaceID, actor.WorkspaceID)

	applied, err := admin.ApplyChaosPlan(context.Background(), actor, []byte(raw))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied, got %d", applied)
	}
	if len(repo.configs) != 2 {
		t.Fatalf("expected 2 stored configs, got %d", len(repo.configs))
	}
}

func TestAdminApplyChaosPlanRejectsForeignWorkspace(t *testing.T) {
	repo := &stubInjectionRepo{}
	admin := NewAdmin(&stubKillSwitchRepo{}, repo, NewAuditLogger(&stubAuditRepo{}))

	actor := testActor(domain.RoleAdmin)
	raw := fmt.Sprintf(`{"injections": [
		{"workspace_id": %q, "action": "PROMOTE", "failure_type": "throw", "probability": 50, "enabled": true},
		{"workspace_id": %q, "action": "ROLLBACK", "failure_type": "timeout", "probability": 10, "enabled": true}
	]}`, actor.WorkspaceID, uuid.New())

	_, err := admin.ApplyChaosPlan(context.Background(), actor, []byte(raw))
	if !errors.Is(err, domain.ErrChaosPlanWrongWorkspace) {
		t.Fatalf("expected ErrChaosPlanWrongWorkspace, got %v", err)
	}
	// The plan is rejected whole: not even the in-workspace entry lands.
	if len(repo.configs) != 0 {
		t.Fatalf("expected no stored configs, got %d", len(repo.configs))
	}
}

func TestAdminSetKillSwitchAudited(t *testing.T) {
	switches := &stubKillSwitchRepo{}
	audit := &stubAuditRepo{}
	admin := NewAdmin(switches, &stubInjectionRepo{}, NewAuditLogger(audit))

	actor := testActor(domain.RoleOwner)
	record, err := admin.SetKillSwitch(context.Background(), actor, domain.KillSwitchScopeGlobal, nil, true, "load test gone wrong")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if !record.Enabled || record.Scope != domain.KillSwitchScopeGlobal {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.ActivatedBy == nil || *record.ActivatedBy != actor.ID {
		t.Fatalf("activation must be attributed")
	}
	if switches.global == nil || !switches.global.Enabled {
		t.Fatalf("record not persisted")
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionKillSwitchManage {
		t.Fatalf("expected KILLSWITCH_MANAGE audit entry, got %+v", audit.entries)
	}
}

func TestAdminDisableKillSwitchClearsActivation(t *testing.T) {
	switches := &stubKillSwitchRepo{}
	admin := NewAdmin(switches, &stubInjectionRepo{}, NewAuditLogger(&stubAuditRepo{}))

	actor := testActor(domain.RoleAdmin)
	record, err := admin.SetKillSwitch(context.Background(), actor, domain.KillSwitchScopeWorkspace, nil, false, "resolved")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if record.Enabled {
		t.Fatalf("expected disabled record")
	}
	if record.ActivatedBy != nil || record.ActivatedAt != nil {
		t.Fatalf("disabled record must not carry activation metadata")
	}
	if record.WorkspaceID == nil || *record.WorkspaceID != actor.WorkspaceID {
		t.Fatalf("workspace scope must default to the actor's workspace")
	}
}

func TestAdminSetKillSwitchGlobalRequiresOwner(t *testing.T) {
	switches := &stubKillSwitchRepo{}
	admin := NewAdmin(switches, &stubInjectionRepo{}, NewAuditLogger(&stubAuditRepo{}))

	actor := testActor(domain.RoleAdmin)
	_, err := admin.SetKillSwitch(context.Background(), actor, domain.KillSwitchScopeGlobal, nil, true, "incident")

	var denied *domain.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected PermissionDeniedError, got %v", err)
	}
	if len(denied.RequiredRoles) != 1 || denied.RequiredRoles[0] != domain.RoleOwner {
		t.Fatalf("expected required roles [owner], got %v", denied.RequiredRoles)
	}
	if switches.global != nil {
		t.Fatalf("global switch must not be persisted")
	}
}

func TestAdminSetKillSwitchRejectsForeignWorkspace(t *testing.T) {
	switches := &stubKillSwitchRepo{}
	admin := NewAdmin(switches, &stubInjectionRepo{}, NewAuditLogger(&stubAuditRepo{}))

	actor := testActor(domain.RoleAdmin)
	other := uuid.New()
	_, err := admin.SetKillSwitch(context.Background(), actor, domain.KillSwitchScopeWorkspace, &other, true, "incident")
	if !errors.Is(err, domain.ErrKillSwitchWrongWorkspace) {
		t.Fatalf("expected ErrKillSwitchWrongWorkspace, got %v", err)
	}
}

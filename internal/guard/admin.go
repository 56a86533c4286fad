package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"

	"github.com/google/uuid"
)

// Admin exposes the kill-switch and chaos configuration surface. Every
// activation and deactivation is audited.
type Admin struct {
	switches   repository.KillSwitchRepository
	injections repository.FailureInjectionRepository
	audit      *AuditLogger
	now        func() time.Time
}

// NewAdmin wires the admin service.
func NewAdmin(switches repository.KillSwitchRepository, injections repository.FailureInjectionRepository, audit *AuditLogger) *Admin {
	return &Admin{
		switches:   switches,
		injections: injections,
		audit:      audit,
		now:        time.Now,
	}
}

// SetKillSwitch enables or disables a switch for the given scope.
func (a *Admin) SetKillSwitch(ctx context.Context, actor domain.Actor, scope domain.KillSwitchScope, workspaceID *uuid.UUID, enabled bool, reason string) (domain.KillSwitchRecord, error) {
	switch scope {
	case domain.KillSwitchScopeGlobal:
		// The global switch affects every workspace, so a workspace-bound
		// admin role is not enough to toggle it.
		if actor.Role != domain.RoleOwner {
			return domain.KillSwitchRecord{}, &domain.PermissionDeniedError{
				Role:          actor.Role,
				Action:        domain.ActionKillSwitchManage,
				RequiredRoles: []domain.Role{domain.RoleOwner},
			}
		}
		workspaceID = nil
	case domain.KillSwitchScopeWorkspace:
		if workspaceID == nil {
			id := actor.WorkspaceID
			workspaceID = &id
		}
		if *workspaceID != actor.WorkspaceID {
			return domain.KillSwitchRecord{}, domain.ErrKillSwitchWrongWorkspace
		}
	default:
		return domain.KillSwitchRecord{}, fmt.Errorf("unknown kill switch scope %q", scope)
	}

	record := domain.KillSwitchRecord{
		Scope:       scope,
		WorkspaceID: workspaceID,
		Enabled:     enabled,
		Reason:      reason,
	}
	if enabled {
		now := a.now()
		record.ActivatedBy = &actor.ID
		record.ActivatedAt = &now
	}

	if err := a.switches.Upsert(ctx, record); err != nil {
		return domain.KillSwitchRecord{}, err
	}

	a.audit.Record(ctx, domain.AuditLogEntry{
		WorkspaceID: actor.WorkspaceID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Action:      domain.ActionKillSwitchManage,
		EntityType:  "kill_switch",
		EntityID:    string(scope),
		Metadata: map[string]any{
			"enabled": enabled,
			"reason":  reason,
		},
	})

	return record, nil
}

// ApplyChaosPlan validates a chaos plan document and stores every config it
// declares. Every entry must target the acting admin's own workspace.
func (a *Admin) ApplyChaosPlan(ctx context.Context, actor domain.Actor, raw []byte) (int, error) {
	configs, err := ParseChaosPlan(raw)
	if err != nil {
		return 0, err
	}
	for idx, config := range configs {
		if config.WorkspaceID != actor.WorkspaceID {
			return 0, fmt.Errorf("injection %d: %w", idx, domain.ErrChaosPlanWrongWorkspace)
		}
	}

	for _, config := range configs {
		if err := a.injections.Upsert(ctx, config); err != nil {
			return 0, err
		}
	}
	applied := len(configs)

	a.audit.Record(ctx, domain.AuditLogEntry{
		WorkspaceID: actor.WorkspaceID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Action:      domain.ActionChaosManage,
		EntityType:  "failure_injection",
		EntityID:    "chaos_plan",
		Metadata: map[string]any{
			"configs_applied": applied,
		},
	})

	return applied, nil
}

package guard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"

	"github.com/google/uuid"
)

// CheckOutcome distinguishes a blocked action from a failed check. The
// fail-open policy (CheckFailed treated as NotBlocked) is applied in exactly
// one place, AssertOpen, so the decision stays auditable.
type CheckOutcome int

const (
	OutcomeNotBlocked CheckOutcome = iota
	OutcomeBlocked
	OutcomeCheckFailed
)

// Status is the result of a kill-switch lookup for one workspace.
type Status struct {
	Outcome CheckOutcome
	Scope   domain.KillSwitchScope
	Reason  string
}

// blockableActions is the fixed set of actions a kill-switch can gate.
// Read-only actions are never blocked.
var blockableActions = map[domain.Action]bool{
	domain.ActionPromote:            true,
	domain.ActionRollback:           true,
	domain.ActionSnapshotActivate:   true,
	domain.ActionSnapshotDeactivate: true,
	domain.ActionIngest:             true,
}

// DefaultCacheTTL bounds how stale a cached kill-switch status may be.
const DefaultCacheTTL = 15 * time.Second

type cachedStatus struct {
	status  Status
	expires time.Time
}

// KillSwitch evaluates the global and per-workspace gates. Lookups are cached
// for a bounded window; infrastructure failure fails open with a warning so an
// observability outage cannot become a production outage.
type KillSwitch struct {
	repo  repository.KillSwitchRepository
	audit *AuditLogger
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[uuid.UUID]cachedStatus
}

// NewKillSwitch wires the kill-switch guard. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewKillSwitch(repo repository.KillSwitchRepository, audit *AuditLogger, ttl time.Duration) *KillSwitch {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &KillSwitch{
		repo:  repo,
		audit: audit,
		ttl:   ttl,
		now:   time.Now,
		cache: map[uuid.UUID]cachedStatus{},
	}
}

// CheckStatus resolves the effective kill-switch status for a workspace. The
// global record takes precedence over the workspace record.
func (k *KillSwitch) CheckStatus(ctx context.Context, workspaceID uuid.UUID) Status {
	k.mu.Lock()
	if cached, ok := k.cache[workspaceID]; ok && k.now().Before(cached.expires) {
		k.mu.Unlock()
		return cached.status
	}
	k.mu.Unlock()

	status := k.lookup(ctx, workspaceID)
	if status.Outcome != OutcomeCheckFailed {
		k.mu.Lock()
		k.cache[workspaceID] = cachedStatus{status: status, expires: k.now().Add(k.ttl)}
		k.mu.Unlock()
	}

	return status
}

func (k *KillSwitch) lookup(ctx context.Context, workspaceID uuid.UUID) Status {
	global, err := k.repo.GetGlobal(ctx)
	if err != nil {
		log.Printf("WARN: kill switch global lookup failed, failing open: %v", err)
		return Status{Outcome: OutcomeCheckFailed}
	}
	if global != nil && global.Enabled {
		return Status{Outcome: OutcomeBlocked, Scope: domain.KillSwitchScopeGlobal, Reason: global.Reason}
	}

	workspace, err := k.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		log.Printf("WARN: kill switch workspace lookup failed, failing open: %v", err)
		return Status{Outcome: OutcomeCheckFailed}
	}
	if workspace != nil && workspace.Enabled {
		return Status{Outcome: OutcomeBlocked, Scope: domain.KillSwitchScopeWorkspace, Reason: workspace.Reason}
	}

	return Status{Outcome: OutcomeNotBlocked}
}

// AssertOpen blocks the action when the relevant switch is enabled. No role,
// including owner, bypasses an enabled switch. The audit entry is written
// before the error is returned.
func (k *KillSwitch) AssertOpen(ctx context.Context, actor domain.Actor, action domain.Action) error {
	if !blockableActions[action] {
		return nil
	}

	status := k.CheckStatus(ctx, actor.WorkspaceID)
	switch status.Outcome {
	case OutcomeCheckFailed:
		// Fail open: a broken check must not block legitimate traffic.
		return nil
	case OutcomeNotBlocked:
		return nil
	}

	k.audit.Record(ctx, domain.AuditLogEntry{
		WorkspaceID: actor.WorkspaceID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Action:      action,
		EntityType:  "kill_switch",
		EntityID:    string(status.Scope),
		Metadata: map[string]any{
			"decision": "blocked",
			"guard":    "kill_switch",
			"reason":   status.Reason,
		},
	})

	return &domain.KillSwitchActiveError{Scope: status.Scope, Reason: status.Reason}
}

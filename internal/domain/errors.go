package domain

import (
	"errors"
	"fmt"
)

// Promotion precondition errors. Each maps to a different operator
// remediation, so they are reported independently and never collapsed.
var (
	ErrLogStatusFailed       = errors.New("ingestion log failed validation and cannot be promoted")
	ErrLogNoValidRows        = errors.New("ingestion log has no valid rows")
	ErrLogAlreadyPromoted    = errors.New("ingestion log is already promoted")
	ErrLogEmptyPayload       = errors.New("ingestion log has no validated row payload")
	ErrPromoteWrongWorkspace = errors.New("ingestion log belongs to a different workspace")
)

// Rollback validity errors.
var (
	ErrRollbackTargetActive   = errors.New("rollback target is already the active snapshot")
	ErrRollbackWrongWorkspace = errors.New("rollback target belongs to a different workspace")
	ErrSnapshotLogNotEligible = errors.New("ingestion log is not eligible for snapshot creation")
	ErrSnapshotLogNotPromoted = errors.New("ingestion log has not been promoted")
	ErrSnapshotLogNotFrozen   = errors.New("ingestion log is not frozen")
)

// Admin scoping errors. Roles are workspace-bound, so admin surfaces refuse
// targets outside the actor's workspace.
var (
	ErrKillSwitchWrongWorkspace = errors.New("kill switch target belongs to a different workspace")
	ErrChaosPlanWrongWorkspace  = errors.New("chaos plan targets a different workspace")
)

// ErrMissingActor reports a caller that arrived without a resolvable identity.
var ErrMissingActor = errors.New("actor could not be resolved")

// InvalidRoleError reports membership data that does not map to a known,
// active role. Remediation is fixing the data, not the caller.
type InvalidRoleError struct {
	Role string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid or inactive role %q", e.Role)
}

// PermissionDeniedError reports a role that is not on the allow-list for an
// action. It carries the required roles for caller-facing messaging.
type PermissionDeniedError struct {
	Role          Role
	Action        Action
	RequiredRoles []Role
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %s is not allowed to perform %s (requires one of %v)", e.Role, e.Action, e.RequiredRoles)
}

// KillSwitchActiveError is returned when a kill-switch blocks an action. It is
// non-retryable and cannot be overridden by any role.
type KillSwitchActiveError struct {
	Scope  KillSwitchScope
	Reason string
}

func (e *KillSwitchActiveError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("kill switch active (%s scope): %s", e.Scope, e.Reason)
	}
	return fmt.Sprintf("kill switch active (%s scope)", e.Scope)
}

// InjectedFailureError is a simulated failure produced by the chaos injector
// before any real mutation. StepsCompleted/StepsTotal are only set for the
// partial failure type and describe steps that never actually ran.
type InjectedFailureError struct {
	Type           FailureType
	Action         Action
	StepsCompleted int
	StepsTotal     int
}

func (e *InjectedFailureError) Error() string {
	switch e.Type {
	case FailureTypePartial:
		return fmt.Sprintf("injected partial failure on %s: %d of %d steps completed", e.Action, e.StepsCompleted, e.StepsTotal)
	case FailureTypeTimeout:
		return fmt.Sprintf("injected timeout on %s", e.Action)
	case FailureTypeStaleData:
		return fmt.Sprintf("injected stale data signal on %s: read the prior snapshot", e.Action)
	default:
		return fmt.Sprintf("injected failure on %s", e.Action)
	}
}

// NoActiveSnapshotError means a scope has no production truth yet. This is an
// expected, first-class outcome; callers decide whether to degrade or fail.
type NoActiveSnapshotError struct {
	Scope Scope
}

func (e *NoActiveSnapshotError) Error() string {
	return fmt.Sprintf("no active snapshot for scope %s", e.Scope)
}

// ProductionBindingError means the resolved scope state is internally
// inconsistent (more than one active snapshot). This indicates a bug and
// should alert.
type ProductionBindingError struct {
	Scope       Scope
	ActiveCount int
}

func (e *ProductionBindingError) Error() string {
	return fmt.Sprintf("scope %s has %d active snapshots, expected at most 1", e.Scope, e.ActiveCount)
}

// Package guard implements the ordered safety checks every mutating
// operation passes through: actor resolution, kill-switch, failure injection,
// permission, and audit.
package guard

import (
	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

// permissionMatrix is the fixed action allow-list. An action absent from the
// matrix is denied for every role. Permission decisions always use this
// matrix, never the role privilege ordering.
var permissionMatrix = map[domain.Action][]domain.Role{
	domain.ActionPromote:            {domain.RoleOwner, domain.RoleAdmin},
	domain.ActionRollback:           {domain.RoleOwner},
	domain.ActionSnapshotActivate:   {domain.RoleOwner, domain.RoleAdmin},
	domain.ActionSnapshotDeactivate: {domain.RoleOwner, domain.RoleAdmin},
	domain.ActionValidate:           {domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator},
	domain.ActionIngest:             {domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator},
	domain.ActionReadAnalytics:      {domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator, domain.RoleViewer},
	// Admin actions are deliberately outside the kill-switch blockable set: an
	// enabled switch must always remain disableable.
	domain.ActionKillSwitchManage: {domain.RoleOwner, domain.RoleAdmin},
	domain.ActionChaosManage:      {domain.RoleOwner, domain.RoleAdmin},
}

// IsAllowed reports whether the role is on the allow-list for the action.
func IsAllowed(role domain.Role, action domain.Action) bool {
	for _, allowed := range permissionMatrix[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// RequiredRoles returns the allow-list for an action, for caller-facing
// messaging. The returned slice is a copy.
func RequiredRoles(action domain.Action) []domain.Role {
	roles := permissionMatrix[action]
	return append([]domain.Role(nil), roles...)
}

// AssertCan validates the actor is well-formed, then checks the matrix. A
// malformed actor is a distinct error from denial because the remediation
// differs.
func AssertCan(actor domain.Actor, action domain.Action) error {
	if actor.ID == uuid.Nil || actor.WorkspaceID == uuid.Nil {
		return domain.ErrMissingActor
	}
	if !actor.Role.Valid() {
		return &domain.InvalidRoleError{Role: string(actor.Role)}
	}
	if !IsAllowed(actor.Role, action) {
		return &domain.PermissionDeniedError{
			Role:          actor.Role,
			Action:        action,
			RequiredRoles: RequiredRoles(action),
		}
	}
	return nil
}

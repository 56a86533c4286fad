package domain

import "github.com/google/uuid"

// Role identifies an actor's privilege level within a workspace.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
	RoleOwner:    4,
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the role's position in the privilege ordering. Higher is more
// privileged. Permission decisions never use this; it exists for display and
// convenience comparisons only.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Action names a governed operation. The set is fixed.
type Action string

const (
	ActionPromote            Action = "PROMOTE"
	ActionRollback           Action = "ROLLBACK"
	ActionSnapshotActivate   Action = "SNAPSHOT_ACTIVATE"
	ActionSnapshotDeactivate Action = "SNAPSHOT_DEACTIVATE"
	ActionValidate           Action = "VALIDATE"
	ActionIngest             Action = "INGEST"
	ActionReadAnalytics      Action = "READ_ANALYTICS"
	ActionKillSwitchManage   Action = "KILLSWITCH_MANAGE"
	ActionChaosManage        Action = "CHAOS_MANAGE"
)

// Actor is a resolved caller identity. The role always comes from membership
// state, never from a caller-supplied claim.
type Actor struct {
	ID          uuid.UUID `json:"id"`
	Role        Role      `json:"role"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

// Membership is the workspace-membership record an actor resolves from.
type Membership struct {
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Role        Role      `json:"role"`
	Active      bool      `json:"active"`
}

// Scope is the unit of snapshot and analytics binding.
type Scope struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Platform    string    `json:"platform"`
	Dataset     string    `json:"dataset"`
}

func (s Scope) String() string {
	return s.WorkspaceID.String() + "/" + s.Platform + "/" + s.Dataset
}

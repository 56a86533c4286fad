package domain

import (
	"time"

	"github.com/google/uuid"
)

// KillSwitchScope identifies how wide a switch applies.
type KillSwitchScope string

const (
	KillSwitchScopeGlobal    KillSwitchScope = "global"
	KillSwitchScopeWorkspace KillSwitchScope = "workspace"
)

// KillSwitchRecord is a blunt, role-independent gate over dangerous actions.
// At most one effective record exists per scope; global overrides workspace.
type KillSwitchRecord struct {
	Scope       KillSwitchScope `json:"scope"`
	WorkspaceID *uuid.UUID      `json:"workspace_id,omitempty"`
	Enabled     bool            `json:"enabled"`
	Reason      string          `json:"reason"`
	ActivatedBy *uuid.UUID      `json:"activated_by,omitempty"`
	ActivatedAt *time.Time      `json:"activated_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

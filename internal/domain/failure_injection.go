package domain

import (
	"time"

	"github.com/google/uuid"
)

// FailureType selects how an injected failure presents to the caller.
type FailureType string

const (
	FailureTypeTimeout   FailureType = "timeout"
	FailureTypeThrow     FailureType = "throw"
	FailureTypePartial   FailureType = "partial"
	FailureTypeStaleData FailureType = "stale_data"
)

// Valid reports whether the failure type is one of the known types.
func (t FailureType) Valid() bool {
	switch t {
	case FailureTypeTimeout, FailureTypeThrow, FailureTypePartial, FailureTypeStaleData:
		return true
	}
	return false
}

// FailureInjectionConfig configures simulated failures for one (workspace,
// action) pair. Purely advisory; the injector never performs a real write.
type FailureInjectionConfig struct {
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	Action      Action      `json:"action"`
	FailureType FailureType `json:"failure_type"`
	Probability int         `json:"probability"`
	Enabled     bool        `json:"enabled"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

package guard

import (
	"context"
	"errors"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

var errRepoDown = errors.New("repository unavailable")

type stubKillSwitchRepo struct {
	global    *domain.KillSwitchRecord
	workspace map[uuid.UUID]*domain.KillSwitchRecord
	fail      bool
	calls     int
}

func (s *stubKillSwitchRepo) GetGlobal(ctx context.Context) (*domain.KillSwitchRecord, error) {
	s.calls++
	if s.fail {
		return nil, errRepoDown
	}
	return s.global, nil
}

func (s *stubKillSwitchRepo) GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.KillSwitchRecord, error) {
	if s.fail {
		return nil, errRepoDown
	}
	return s.workspace[workspaceID], nil
}

func (s *stubKillSwitchRepo) Upsert(ctx context.Context, record domain.KillSwitchRecord) error {
	if s.fail {
		return errRepoDown
	}
	if record.Scope == domain.KillSwitchScopeGlobal {
		s.global = &record
		return nil
	}
	if s.workspace == nil {
		s.workspace = map[uuid.UUID]*domain.KillSwitchRecord{}
	}
	s.workspace[*record.WorkspaceID] = &record
	return nil
}

type stubInjectionRepo struct {
	configs map[domain.Action]*domain.FailureInjectionConfig
	fail    bool
}

func (s *stubInjectionRepo) Get(ctx context.Context, workspaceID uuid.UUID, action domain.Action) (*domain.FailureInjectionConfig, error) {
	if s.fail {
		return nil, errRepoDown
	}
	return s.configs[action], nil
}

func (s *stubInjectionRepo) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.FailureInjectionConfig, error) {
	if s.fail {
		return nil, errRepoDown
	}
	var out []domain.FailureInjectionConfig
	for _, config := range s.configs {
		out = append(out, *config)
	}
	return out, nil
}

func (s *stubInjectionRepo) Upsert(ctx context.Context, config domain.FailureInjectionConfig) error {
	if s.fail {
		return errRepoDown
	}
	if s.configs == nil {
		s.configs = map[domain.Action]*domain.FailureInjectionConfig{}
	}
	s.configs[config.Action] = &config
	return nil
}

type stubAuditRepo struct {
	entries []domain.AuditLogEntry
	fail    bool
}

func (s *stubAuditRepo) Record(ctx context.Context, entry domain.AuditLogEntry) error {
	if s.fail {
		return errRepoDown
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAuditRepo) List(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.AuditLogEntry, error) {
	return s.entries, nil
}

type stubMembershipRepo struct {
	memberships map[uuid.UUID]*domain.Membership
	fail        bool
}

func (s *stubMembershipRepo) Get(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (*domain.Membership, error) {
	if s.fail {
		return nil, errRepoDown
	}
	membership := s.memberships[userID]
	if membership != nil && membership.WorkspaceID != workspaceID {
		return nil, nil
	}
	return membership, nil
}

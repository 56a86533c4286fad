package guard

import (
	"context"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"

	"github.com/google/uuid"
)

// ActorResolver turns a session identity plus workspace into an Actor. The
// role always comes from membership state; caller-supplied role claims are
// never trusted.
type ActorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (domain.Actor, error)
}

type membershipResolver struct {
	memberships repository.MembershipRepository
}

// NewActorResolver returns the production resolver backed by workspace
// membership state.
func NewActorResolver(memberships repository.MembershipRepository) ActorResolver {
	return &membershipResolver{memberships: memberships}
}

func (r *membershipResolver) Resolve(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (domain.Actor, error) {
	if userID == uuid.Nil || workspaceID == uuid.Nil {
		return domain.Actor{}, domain.ErrMissingActor
	}

	membership, err := r.memberships.Get(ctx, userID, workspaceID)
	if err != nil {
		return domain.Actor{}, err
	}
	if membership == nil {
		return domain.Actor{}, domain.ErrMissingActor
	}
	if !membership.Active || !membership.Role.Valid() {
		return domain.Actor{}, &domain.InvalidRoleError{Role: string(membership.Role)}
	}

	return domain.Actor{
		ID:          membership.UserID,
		Role:        membership.Role,
		WorkspaceID: membership.WorkspaceID,
	}, nil
}

type devFallbackResolver struct {
	actor domain.Actor
}

// NewDevFallbackResolver returns a resolver that always yields the configured
// actor. It exists for local development only and is selected once at
// startup; production wiring never constructs it.
func NewDevFallbackResolver(actor domain.Actor) ActorResolver {
	return &devFallbackResolver{actor: actor}
}

func (r *devFallbackResolver) Resolve(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (domain.Actor, error) {
	actor := r.actor
	if workspaceID != uuid.Nil {
		actor.WorkspaceID = workspaceID
	}
	return actor, nil
}

package guard

import (
	"context"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
)

// Request describes one guarded call. EntityType/EntityID give audit entries
// something concrete to point at.
type Request struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	Action      domain.Action
	EntityType  string
	EntityID    string
	Platform    string
	Dataset     string
	ClientID    *uuid.UUID
	AuditDenied bool
}

// Chain composes the guards in their fixed order: actor resolution, then
// kill-switch, then failure injection, then permission. Kill-switch runs
// first among the guards because it is the cheapest, most absolute check and
// must short-circuit even chaos testing; injection runs before permission so
// an injected failure never needs a permission decision; permission runs last
// so a denial is audited with full actor and action context.
type Chain struct {
	resolver ActorResolver
	switches *KillSwitch
	injector *Injector
	audit    *AuditLogger
}

// NewChain wires the orchestrator. This is the single entry point mutating
// code paths call; nothing below it mutates state before the chain clears.
func NewChain(resolver ActorResolver, switches *KillSwitch, injector *Injector, audit *AuditLogger) *Chain {
	return &Chain{
		resolver: resolver,
		switches: switches,
		injector: injector,
		audit:    audit,
	}
}

// Guard runs the full chain for one request. Any stage's error short-circuits
// the remaining stages and the protected business logic. On success it
// returns the resolved actor for the business logic to use.
func (c *Chain) Guard(ctx context.Context, req Request) (domain.Actor, error) {
	actor, err := c.resolver.Resolve(ctx, req.UserID, req.WorkspaceID)
	if err != nil {
		return domain.Actor{}, err
	}

	if err := c.switches.AssertOpen(ctx, actor, req.Action); err != nil {
		return domain.Actor{}, err
	}

	if err := c.injector.AssertNoInjectedFailure(ctx, actor, req.Action); err != nil {
		return domain.Actor{}, err
	}

	scope := domain.Scope{WorkspaceID: actor.WorkspaceID, Platform: req.Platform, Dataset: req.Dataset}
	opts := AuditOptions{EntityType: req.EntityType, EntityID: req.EntityID, AuditDenied: req.AuditDenied}
	if err := RequirePermission(ctx, c.audit, actor, req.Action, scope, opts); err != nil {
		return domain.Actor{}, err
	}

	return actor, nil
}

// Audited writes the post-action audit entry for a guarded call that ran its
// business logic. Write failures never surface.
func (c *Chain) Audited(ctx context.Context, actor domain.Actor, req Request, metadata map[string]any) {
	c.audit.Record(ctx, domain.AuditLogEntry{
		WorkspaceID: actor.WorkspaceID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Action:      req.Action,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Platform:    req.Platform,
		Dataset:     req.Dataset,
		ClientID:    req.ClientID,
		Metadata:    metadata,
	})
}

package guard

import (
	"context"
	"errors"
	"log"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"
)

// AuditLogger appends guard decisions and mutating actions. A failed write is
// logged locally and never surfaces to the caller: audit must not block or
// mask the guarded action's own outcome.
type AuditLogger struct {
	repo repository.AuditLogRepository
}

// NewAuditLogger wires the audit logger over its repository.
func NewAuditLogger(repo repository.AuditLogRepository) *AuditLogger {
	return &AuditLogger{repo: repo}
}

// Record appends one entry, swallowing write failures.
func (a *AuditLogger) Record(ctx context.Context, entry domain.AuditLogEntry) {
	if a == nil || a.repo == nil {
		return
	}
	if err := a.repo.Record(ctx, entry); err != nil {
		log.Printf("WARN: audit write failed for action %s on %s: %v", entry.Action, entry.EntityID, err)
	}
}

// AuditOptions carries the entity context attached to audit entries written
// for a guarded call, and whether denials should be audited.
type AuditOptions struct {
	EntityType  string
	EntityID    string
	AuditDenied bool
}

// RequirePermission delegates to the matrix and, when the caller opted in,
// audits permission denials before returning them. The original denial is
// always returned unchanged.
func RequirePermission(ctx context.Context, audit *AuditLogger, actor domain.Actor, action domain.Action, scope domain.Scope, opts AuditOptions) error {
	err := AssertCan(actor, action)
	if err == nil {
		return nil
	}

	var denied *domain.PermissionDeniedError
	if opts.AuditDenied && errors.As(err, &denied) {
		audit.Record(ctx, domain.AuditLogEntry{
			WorkspaceID: actor.WorkspaceID,
			ActorID:     actor.ID,
			ActorRole:   actor.Role,
			Action:      action,
			EntityType:  opts.EntityType,
			EntityID:    opts.EntityID,
			Platform:    scope.Platform,
			Dataset:     scope.Dataset,
			Metadata: map[string]any{
				"decision":       "denied",
				"guard":          "permission",
				"required_roles": denied.RequiredRoles,
			},
		})
	}

	return err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository wires a repository backed by pgxpool.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

func (r *membershipRepository) Get(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (*domain.Membership, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("membership repository not initialized")
	}

	var membership domain.Membership
	err := r.pool.QueryRow(
		ctx,
		`SELECT user_id, workspace_id, role, active
		 FROM workspace_members
		 WHERE user_id = $1 AND workspace_id = $2`,
		userID,
		workspaceID,
	).Scan(
		&membership.UserID,
		&membership.WorkspaceID,
		&membership.Role,
		&membership.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workspace membership: %w", err)
	}

	return &membership, nil
}

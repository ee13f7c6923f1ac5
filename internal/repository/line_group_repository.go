package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studio-ops/studio-erp/internal/domain"
)

// LineGroupRepository records LINE groups seen by the webhook.
type LineGroupRepository interface {
	Touch(ctx context.Context, groupID string) (*domain.LineGroup, error)
	List(ctx context.Context) ([]domain.LineGroup, error)
}

type lineGroupRepository struct {
	pool *pgxpool.Pool
}

// NewLineGroupRepository constructs the repository.
func NewLineGroupRepository(pool *pgxpool.Pool) LineGroupRepository {
	return &lineGroupRepository{pool: pool}
}

// Touch inserts the group or bumps its last_seen_at.
func (r *lineGroupRepository) Touch(ctx context.Context, groupID string) (*domain.LineGroup, error) {
	const query = `
        INSERT INTO line_groups (group_id) VALUES ($1)
        ON CONFLICT (group_id) DO UPDATE SET last_seen_at = NOW()
        RETURNING group_id, first_seen_at, last_seen_at`
	var g domain.LineGroup
	if err := r.pool.QueryRow(ctx, query, groupID).Scan(&g.GroupID, &g.FirstSeenAt, &g.LastSeenAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *lineGroupRepository) List(ctx context.Context) ([]domain.LineGroup, error) {
	const query = `
        SELECT group_id, first_seen_at, last_seen_at
        FROM line_groups
        ORDER BY last_seen_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.LineGroup
	for rows.Next() {
		var g domain.LineGroup
		if err := rows.Scan(&g.GroupID, &g.FirstSeenAt, &g.LastSeenAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

package discounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the discount policy
// singleton.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the singleton policy, lazily creating it with defaults when
// the table is empty.
func (r *Repository) Get(ctx context.Context) (Policy, error) {
	policy, err := r.fetch(ctx)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Policy{}, err
	}

	query := `
		INSERT INTO discount_policies (deadline, percent, active, updated_at)
		VALUES (NULL, $1, FALSE, NOW())
		ON CONFLICT DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, int64(DefaultPercent)); err != nil {
		return Policy{}, err
	}
	return r.fetch(ctx)
}

// Update replaces the singleton configuration.
func (r *Repository) Update(ctx context.Context, input PolicyInput) (Policy, error) {
	// Ensure the row exists before updating it.
	if _, err := r.Get(ctx); err != nil {
		return Policy{}, err
	}

	query := `
		UPDATE discount_policies
		SET deadline = $1, percent = $2, active = $3, updated_at = NOW()
		WHERE id = (SELECT id FROM discount_policies ORDER BY id LIMIT 1)`

	var deadline pgtype.Timestamptz
	if input.Deadline != nil {
		deadline = pgtype.Timestamptz{Time: *input.Deadline, Valid: true}
	}
	if _, err := r.pool.Exec(ctx, query, deadline, input.Percent, input.Active); err != nil {
		return Policy{}, err
	}
	return r.fetch(ctx)
}

func (r *Repository) fetch(ctx context.Context) (Policy, error) {
	query := `
		SELECT id, deadline, percent, active, updated_at
		FROM discount_policies
		ORDER BY id
		LIMIT 1`

	var p Policy
	var deadline pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, query).Scan(&p.ID, &deadline, &p.Percent, &p.Active, &p.UpdatedAt)
	if err != nil {
		return Policy{}, err
	}
	if deadline.Valid {
		p.Deadline = &deadline.Time
	}
	return p, nil
}

package scholarships

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scolaria/scolaria/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the scholarship
// registry.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// --- Offer Operations ---

// CreateOffer inserts an offer.
func (r *Repository) CreateOffer(ctx context.Context, input OfferInput) (*Offer, error) {
	query := `
		INSERT INTO scholarship_offers (class_id, tranche_id, name, amount, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	var o Offer
	err := r.pool.QueryRow(ctx, query,
		input.ClassID, input.TrancheID, input.Name, input.Amount, input.Active,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.ClassID = input.ClassID
	o.TrancheID = input.TrancheID
	o.Name = input.Name
	o.Amount = input.Amount
	o.Active = input.Active
	return &o, nil
}

// UpdateOffer edits an offer in place.
func (r *Repository) UpdateOffer(ctx context.Context, id int64, input OfferInput) error {
	query := `
		UPDATE scholarship_offers
		SET class_id = $2, tranche_id = $3, name = $4, amount = $5, active = $6, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, input.ClassID, input.TrancheID, input.Name, input.Amount, input.Active)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetOffer retrieves an offer by ID.
func (r *Repository) GetOffer(ctx context.Context, id int64) (*Offer, error) {
	query := `
		SELECT id, class_id, tranche_id, name, amount, active, created_at, updated_at
		FROM scholarship_offers
		WHERE id = $1`

	var o Offer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.ClassID, &o.TrancheID, &o.Name, &o.Amount, &o.Active, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOffersByClass returns the offers of a class.
func (r *Repository) ListOffersByClass(ctx context.Context, classID int64) ([]Offer, error) {
	query := `
		SELECT id, class_id, tranche_id, name, amount, active, created_at, updated_at
		FROM scholarship_offers
		WHERE class_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		var o Offer
		err := rows.Scan(&o.ID, &o.ClassID, &o.TrancheID, &o.Name, &o.Amount, &o.Active, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// CountGrantsByOffer counts grants referencing an offer.
func (r *Repository) CountGrantsByOffer(ctx context.Context, offerID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scholarship_grants WHERE offer_id = $1`, offerID).Scan(&count)
	return count, err
}

// DeleteOffer removes an offer.
func (r *Repository) DeleteOffer(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM scholarship_offers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateActiveOffers flips every active offer off, returning the number
// of offers touched. The sweep job runs it after the enrolment deadline.
func (r *Repository) DeactivateActiveOffers(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `UPDATE scholarship_offers SET active = FALSE, updated_at = NOW() WHERE active`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// --- Grant Operations ---

// CreateGrant awards an offer to a student.
func (r *Repository) CreateGrant(ctx context.Context, input GrantInput) (*Grant, error) {
	query := `
		INSERT INTO scholarship_grants (offer_id, student_id, used, used_amount, created_at)
		VALUES ($1, $2, FALSE, 0, NOW())
		RETURNING id, created_at`

	var g Grant
	err := r.pool.QueryRow(ctx, query, input.OfferID, input.StudentID).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.OfferID = input.OfferID
	g.StudentID = input.StudentID
	return &g, nil
}

// ListGrantsByStudent returns a student's grants joined with offer facts.
func (r *Repository) ListGrantsByStudent(ctx context.Context, studentID int64) ([]GrantWithOffer, error) {
	query := `
		SELECT g.id, g.offer_id, g.student_id, g.used, g.used_amount, g.used_at, g.created_at,
			o.name, o.amount, o.tranche_id
		FROM scholarship_grants g
		JOIN scholarship_offers o ON o.id = g.offer_id
		WHERE g.student_id = $1
		ORDER BY g.id`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []GrantWithOffer
	for rows.Next() {
		g, err := scanGrantWithOffer(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	return grants, rows.Err()
}

// OldestUnusedGrant returns the lowest-id unused grant of the student on an
// active offer bound to the tranche. The explicit ordering keeps grant
// selection deterministic when a student somehow holds several.
func (r *Repository) OldestUnusedGrant(ctx context.Context, studentID, trancheID int64) (*GrantWithOffer, error) {
	query := `
		SELECT g.id, g.offer_id, g.student_id, g.used, g.used_amount, g.used_at, g.created_at,
			o.name, o.amount, o.tranche_id
		FROM scholarship_grants g
		JOIN scholarship_offers o ON o.id = g.offer_id
		WHERE g.student_id = $1 AND o.tranche_id = $2 AND g.used = FALSE AND o.active
		ORDER BY g.id
		LIMIT 1`

	row := r.pool.QueryRow(ctx, query, studentID, trancheID)
	g, err := scanGrantWithOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// HasAnyGrant reports whether any grant, used or unused, binds the student
// to the tranche.
func (r *Repository) HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM scholarship_grants g
			JOIN scholarship_offers o ON o.id = g.offer_id
			WHERE g.student_id = $1 AND o.tranche_id = $2
		)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, studentID, trancheID).Scan(&exists)
	return exists, err
}

// ConsumeGrant marks the grant used with a guarded update. The used = FALSE
// predicate makes consumption a compare-and-set: a concurrent or repeated
// call finds zero rows and reports updated = false.
func (r *Repository) ConsumeGrant(ctx context.Context, grantID, amount int64) (bool, error) {
	query := `
		UPDATE scholarship_grants
		SET used = TRUE, used_amount = $2, used_at = NOW()
		WHERE id = $1 AND used = FALSE`

	result, err := r.pool.Exec(ctx, query, grantID, amount)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// GetGrant retrieves a grant by ID.
func (r *Repository) GetGrant(ctx context.Context, grantID int64) (*Grant, error) {
	query := `
		SELECT id, offer_id, student_id, used, used_amount, used_at, created_at
		FROM scholarship_grants
		WHERE id = $1`

	var g Grant
	var usedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, query, grantID).Scan(
		&g.ID, &g.OfferID, &g.StudentID, &g.Used, &g.UsedAmount, &usedAt, &g.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		g.UsedAt = &usedAt.Time
	}
	return &g, nil
}

func scanGrantWithOffer(row pgx.Row) (*GrantWithOffer, error) {
	var g GrantWithOffer
	var usedAt pgtype.Timestamptz
	err := row.Scan(
		&g.ID, &g.OfferID, &g.StudentID, &g.Used, &g.UsedAmount, &usedAt, &g.CreatedAt,
		&g.OfferName, &g.OfferAmount, &g.TrancheID,
	)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		g.UsedAt = &usedAt.Time
	}
	return &g, nil
}

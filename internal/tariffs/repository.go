package tariffs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scolaria/scolaria/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the tariff catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTranche inserts a tranche.
func (r *Repository) CreateTranche(ctx context.Context, input TrancheInput) (*Tranche, error) {
	query := `
		INSERT INTO tranches (name, uses_default_amount, default_amount, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	var t Tranche
	err := r.pool.QueryRow(ctx, query,
		input.Name,
		input.UsesDefaultAmount,
		input.DefaultAmount,
		input.Position,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Name = input.Name
	t.UsesDefaultAmount = input.UsesDefaultAmount
	t.DefaultAmount = input.DefaultAmount
	t.Position = input.Position
	return &t, nil
}

// UpdateTranche edits a tranche in place.
func (r *Repository) UpdateTranche(ctx context.Context, id int64, input TrancheInput) error {
	query := `
		UPDATE tranches
		SET name = $2, uses_default_amount = $3, default_amount = $4, position = $5, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, input.Name, input.UsesDefaultAmount, input.DefaultAmount, input.Position)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetTranche retrieves a tranche by ID.
func (r *Repository) GetTranche(ctx context.Context, id int64) (*Tranche, error) {
	query := `
		SELECT id, name, uses_default_amount, default_amount, position, created_at, updated_at
		FROM tranches
		WHERE id = $1`

	var t Tranche
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.UsesDefaultAmount, &t.DefaultAmount, &t.Position, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTranches returns all tranches in schedule order.
func (r *Repository) ListTranches(ctx context.Context) ([]Tranche, error) {
	query := `
		SELECT id, name, uses_default_amount, default_amount, position, created_at, updated_at
		FROM tranches
		ORDER BY position, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tranches []Tranche
	for rows.Next() {
		var t Tranche
		err := rows.Scan(&t.ID, &t.Name, &t.UsesDefaultAmount, &t.DefaultAmount, &t.Position, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		tranches = append(tranches, t)
	}
	return tranches, rows.Err()
}

// UpsertTariff creates or replaces the tariff for a (class, tranche) pair.
// The unique index on (class_id, tranche_id) keeps at most one entry alive.
func (r *Repository) UpsertTariff(ctx context.Context, input TariffInput) (*TariffEntry, error) {
	query := `
		INSERT INTO tariffs (class_id, tranche_id, new_student_amount, returning_student_amount, required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (class_id, tranche_id) DO UPDATE
		SET new_student_amount = EXCLUDED.new_student_amount,
			returning_student_amount = EXCLUDED.returning_student_amount,
			required = EXCLUDED.required,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	var e TariffEntry
	err := r.pool.QueryRow(ctx, query,
		input.ClassID,
		input.TrancheID,
		input.NewStudentAmount,
		input.ReturningStudentAmount,
		input.Required,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.ClassID = input.ClassID
	e.TrancheID = input.TrancheID
	e.NewStudentAmount = input.NewStudentAmount
	e.ReturningStudentAmount = input.ReturningStudentAmount
	e.Required = input.Required
	return &e, nil
}

// FindTariff looks up the tariff for a (class, tranche) pair.
func (r *Repository) FindTariff(ctx context.Context, classID, trancheID int64) (*TariffEntry, error) {
	query := `
		SELECT id, class_id, tranche_id, new_student_amount, returning_student_amount, required, created_at, updated_at
		FROM tariffs
		WHERE class_id = $1 AND tranche_id = $2`

	var e TariffEntry
	err := r.pool.QueryRow(ctx, query, classID, trancheID).Scan(
		&e.ID, &e.ClassID, &e.TrancheID, &e.NewStudentAmount, &e.ReturningStudentAmount, &e.Required, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListTariffsByClass returns configured tariffs for a class.
func (r *Repository) ListTariffsByClass(ctx context.Context, classID int64) ([]TariffEntry, error) {
	query := `
		SELECT t.id, t.class_id, t.tranche_id, t.new_student_amount, t.returning_student_amount, t.required, t.created_at, t.updated_at
		FROM tariffs t
		JOIN tranches tr ON tr.id = t.tranche_id
		WHERE t.class_id = $1
		ORDER BY tr.position, t.id`

	rows, err := r.pool.Query(ctx, query, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TariffEntry
	for rows.Next() {
		var e TariffEntry
		err := rows.Scan(&e.ID, &e.ClassID, &e.TrancheID, &e.NewStudentAmount, &e.ReturningStudentAmount, &e.Required, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteTariff removes a tariff entry.
func (r *Repository) DeleteTariff(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tariffs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

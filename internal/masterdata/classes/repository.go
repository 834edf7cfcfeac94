package classes

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scolaria/scolaria/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Class, int, error)
	Get(ctx context.Context, id int64) (Class, error)
	Create(ctx context.Context, class Class) (Class, error)
	Update(ctx context.Context, id int64, class Class) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Class, int, error) {
	query := `SELECT id, name, level, active FROM classes WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR level ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		query += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	countQuery := `SELECT COUNT(*) FROM classes WHERE 1=1`
	countArgs := []interface{}{}
	countCount := 0
	if filters.Search != "" {
		countCount++
		countQuery += ` AND (name ILIKE $` + strconv.Itoa(countCount) + ` OR level ILIKE $` + strconv.Itoa(countCount) + `)`
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		countCount++
		countQuery += ` AND active = $` + strconv.Itoa(countCount)
		countArgs = append(countArgs, *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Level, &c.Active); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Class, error) {
	var c Class
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, level, active FROM classes WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Level, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Class{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, class Class) (Class, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO classes (name, level, active) VALUES ($1, $2, $3) RETURNING id`,
		class.Name, class.Level, class.Active,
	).Scan(&class.ID)
	return class, err
}

func (r *repository) Update(ctx context.Context, id int64, class Class) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE classes SET name = $2, level = $3, active = $4 WHERE id = $1`,
		id, class.Name, class.Level, class.Active,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "level":
		return "level " + dir
	case "name":
		return "name " + dir
	default:
		return "name " + dir
	}
}

package students

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scolaria/scolaria/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Student, int, error)
	Get(ctx context.Context, id int64) (Student, error)
	Create(ctx context.Context, student Student) (Student, error)
	Update(ctx context.Context, id int64, student Student) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Student, int, error) {
	query := `SELECT id, matricule, first_name, last_name, class_id, is_new, active FROM students WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM students WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	appendFilter := func(clause string, value interface{}) {
		argCount++
		placeholder := "$" + strconv.Itoa(argCount)
		query += ` AND ` + clause + placeholder
		countQuery += ` AND ` + clause + placeholder
		args = append(args, value)
	}

	if filters.Search != "" {
		argCount++
		placeholder := "$" + strconv.Itoa(argCount)
		clause := ` AND (matricule ILIKE ` + placeholder + ` OR first_name ILIKE ` + placeholder + ` OR last_name ILIKE ` + placeholder + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.ClassID != nil {
		appendFilter("class_id = ", *filters.ClassID)
	}
	if filters.IsNew != nil {
		appendFilter("is_new = ", *filters.IsNew)
	}
	if filters.IsActive != nil {
		appendFilter("active = ", *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
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

	var out []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Matricule, &s.FirstName, &s.LastName, &s.ClassID, &s.IsNew, &s.Active); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Student, error) {
	var s Student
	err := r.pool.QueryRow(ctx,
		`SELECT id, matricule, first_name, last_name, class_id, is_new, active FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Matricule, &s.FirstName, &s.LastName, &s.ClassID, &s.IsNew, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, student Student) (Student, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (matricule, first_name, last_name, class_id, is_new, active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		student.Matricule, student.FirstName, student.LastName, student.ClassID, student.IsNew, student.Active,
	).Scan(&student.ID)
	return student, err
}

func (r *repository) Update(ctx context.Context, id int64, student Student) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE students SET matricule = $2, first_name = $3, last_name = $4, class_id = $5, is_new = $6, active = $7 WHERE id = $1`,
		id, student.Matricule, student.FirstName, student.LastName, student.ClassID, student.IsNew, student.Active,
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
	result, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
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
	case "matricule":
		return "matricule " + dir
	case "first_name":
		return "first_name " + dir
	case "last_name":
		return "last_name " + dir
	default:
		return "last_name " + dir
	}
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scolaria/scolaria/internal/platform/db"
	"github.com/scolaria/scolaria/internal/shared"
)

// ErrNumberCollision is returned when two payments race onto the same
// receipt number within the same microsecond. It wraps shared.ErrConflict
// so the HTTP layer answers 409.
var ErrNumberCollision = fmt.Errorf("payments: receipt number already used: %w", shared.ErrConflict)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreatePayment inserts the payment, its allocations and marks the consumed
// grants in a single repeatable-read transaction. Grant consumption is a
// guarded update: a grant already burned by a concurrent payment aborts the
// whole transaction so the caller can re-price.
func (r *Repository) CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentWithAllocations, error) {
	var out PaymentWithAllocations
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO payments (number, reference, student_id, school_year, total, method, note, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, number, reference, student_id, school_year, total, method, note, paid_at, created_at, updated_at`,
			in.Number, in.Reference, in.StudentID, in.SchoolYear, in.Total, in.Method, in.Note, in.PaidAt,
		)
		if err := scanPayment(row, &out.Payment); err != nil {
			return translateInsertError(err)
		}

		for _, a := range in.Allocations {
			var alloc Allocation
			err := tx.QueryRow(ctx, `
				INSERT INTO payment_allocations (payment_id, tranche_id, amount, required_at_time, rule, grant_id)
				VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0))
				RETURNING id, payment_id, tranche_id, amount, required_at_time, rule, COALESCE(grant_id, 0), created_at`,
				out.ID, a.TrancheID, a.Amount, a.RequiredAtTime, string(a.Rule), a.GrantID,
			).Scan(&alloc.ID, &alloc.PaymentID, &alloc.TrancheID, &alloc.Amount, &alloc.RequiredAtTime, &alloc.Rule, &alloc.GrantID, &alloc.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert allocation tranche %d: %w", a.TrancheID, err)
			}
			out.Allocations = append(out.Allocations, alloc)

			if a.GrantID > 0 {
				tag, err := tx.Exec(ctx, `
					UPDATE scholarship_grants
					SET used = TRUE, used_amount = $2, used_at = $3
					WHERE id = $1 AND used = FALSE`,
					a.GrantID, a.GrantDeduction, in.PaidAt,
				)
				if err != nil {
					return fmt.Errorf("consume grant %d: %w", a.GrantID, err)
				}
				if tag.RowsAffected() == 0 {
					return fmt.Errorf("grant %d: %w", a.GrantID, shared.ErrConflict)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repository) GetPayment(ctx context.Context, id int64) (*PaymentWithAllocations, error) {
	var out PaymentWithAllocations
	row := r.pool.QueryRow(ctx, `
		SELECT id, number, reference, student_id, school_year, total, method, note, paid_at, created_at, updated_at
		FROM payments WHERE id = $1`, id)
	if err := scanPayment(row, &out.Payment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	allocs, err := r.listAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	out.Allocations = allocs
	return &out, nil
}

func (r *Repository) ListByStudent(ctx context.Context, studentID int64, schoolYear string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, number, reference, student_id, school_year, total, method, note, paid_at, created_at, updated_at
		FROM payments
		WHERE student_id = $1 AND school_year = $2
		ORDER BY paid_at DESC, id DESC`, studentID, schoolYear)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumPaidByTranche returns, per tranche, what a student already paid in a
// school year. Used for outstanding balance reporting.
func (r *Repository) SumPaidByTranche(ctx context.Context, studentID int64, schoolYear string) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pa.tranche_id, COALESCE(SUM(pa.amount), 0)
		FROM payment_allocations pa
		JOIN payments p ON p.id = pa.payment_id
		WHERE p.student_id = $1 AND p.school_year = $2
		GROUP BY pa.tranche_id`, studentID, schoolYear)
	if err != nil {
		return nil, fmt.Errorf("sum paid: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var trancheID, paid int64
		if err := rows.Scan(&trancheID, &paid); err != nil {
			return nil, fmt.Errorf("scan paid sum: %w", err)
		}
		out[trancheID] = paid
	}
	return out, rows.Err()
}

func (r *Repository) listAllocations(ctx context.Context, paymentID int64) ([]Allocation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, payment_id, tranche_id, amount, required_at_time, rule, COALESCE(grant_id, 0), created_at
		FROM payment_allocations
		WHERE payment_id = $1
		ORDER BY id`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var out []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.TrancheID, &a.Amount, &a.RequiredAtTime, &a.Rule, &a.GrantID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// translateInsertError recognizes a unique violation on the receipt number
// index and converts it to ErrNumberCollision. Anything else is a plain
// insert failure.
func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "payments_number_key" {
		return ErrNumberCollision
	}
	return fmt.Errorf("insert payment: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner, p *Payment) error {
	var paidAt, createdAt, updatedAt time.Time
	err := row.Scan(&p.ID, &p.Number, &p.Reference, &p.StudentID, &p.SchoolYear, &p.Total, &p.Method, &p.Note, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		return err
	}
	p.PaidAt = paidAt
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return nil
}

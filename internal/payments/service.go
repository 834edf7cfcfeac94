package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scolaria/scolaria/internal/discounts"
	"github.com/scolaria/scolaria/internal/masterdata/students"
	"github.com/scolaria/scolaria/internal/pricing"
	"github.com/scolaria/scolaria/internal/receipts"
	"github.com/scolaria/scolaria/internal/scholarships"
	"github.com/scolaria/scolaria/internal/shared"
	"github.com/scolaria/scolaria/internal/tariffs"
)

// RepositoryPort abstracts payment persistence.
type RepositoryPort interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentWithAllocations, error)
	GetPayment(ctx context.Context, id int64) (*PaymentWithAllocations, error)
	ListByStudent(ctx context.Context, studentID int64, schoolYear string) ([]Payment, error)
	SumPaidByTranche(ctx context.Context, studentID int64, schoolYear string) (map[int64]int64, error)
}

// StudentSource resolves the paying student.
type StudentSource interface {
	Get(ctx context.Context, id int64) (students.Student, error)
}

// PolicyProvider returns the current discount policy.
type PolicyProvider interface {
	Current(ctx context.Context) (discounts.Policy, error)
}

// GrantRegistry exposes the scholarship lookups the resolver needs.
type GrantRegistry interface {
	FindApplicableGrant(ctx context.Context, studentID, trancheID int64, asOf time.Time, deadline *time.Time) (*scholarships.GrantWithOffer, error)
	HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error)
}

// TrancheCatalog is the tariff surface used for pricing and balances.
type TrancheCatalog interface {
	BaseAmount(ctx context.Context, classID, trancheID int64, isNew bool) (int64, error)
	ListTranches(ctx context.Context) ([]tariffs.Tranche, error)
}

// IdempotencyGuard wraps the replay-protection store.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyScope = "payments"

// Service orchestrates payment recording. Pricing is delegated to the
// resolver; persistence and grant consumption happen atomically in the
// repository.
type Service struct {
	repo     RepositoryPort
	students StudentSource
	policies PolicyProvider
	grants   GrantRegistry
	catalog  TrancheCatalog
	numbers  *receipts.Generator
	idem     IdempotencyGuard
	logger   *slog.Logger
}

func NewService(
	repo RepositoryPort,
	studentSource StudentSource,
	policies PolicyProvider,
	grants GrantRegistry,
	catalog TrancheCatalog,
	numbers *receipts.Generator,
	idem IdempotencyGuard,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		students: studentSource,
		policies: policies,
		grants:   grants,
		catalog:  catalog,
		numbers:  numbers,
		idem:     idem,
		logger:   logger,
	}
}

// grantAdapter narrows the scholarship service to the resolver's view. The
// eligibility window for scholarships is the policy deadline, captured once
// per request so every tranche in a payment is judged consistently.
type grantAdapter struct {
	grants   GrantRegistry
	deadline *time.Time
}

func (g grantAdapter) FindApplicableGrant(ctx context.Context, studentID, trancheID int64, asOf time.Time) (*pricing.Grant, error) {
	grant, err := g.grants.FindApplicableGrant(ctx, studentID, trancheID, asOf, g.deadline)
	if err != nil || grant == nil {
		return nil, err
	}
	return &pricing.Grant{ID: grant.ID, OfferID: grant.OfferID, OfferAmount: grant.OfferAmount}, nil
}

func (g grantAdapter) HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error) {
	return g.grants.HasAnyGrant(ctx, studentID, trancheID)
}

// price resolves every requested tranche against the current policy.
func (s *Service) price(ctx context.Context, studentID int64, trancheIDs []int64, flags pricing.Flags, asOf time.Time) ([]AllocationInput, error) {
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("student %d: %w", studentID, err)
	}
	policy, err := s.policies.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("discount policy: %w", err)
	}

	subject := pricing.Student{ID: st.ID, ClassID: st.ClassID, IsNew: st.IsNew}
	enginePolicy := pricing.Policy{
		Deadline: policy.Deadline,
		Percent:  policy.EffectivePercent(),
		Active:   policy.Active,
	}
	engine := pricing.NewEngine(s.catalog, grantAdapter{grants: s.grants, deadline: policy.Deadline})

	allocs := make([]AllocationInput, 0, len(trancheIDs))
	for _, trancheID := range trancheIDs {
		res, err := engine.Resolve(ctx, subject, trancheID, flags, enginePolicy, asOf)
		if err != nil {
			return nil, fmt.Errorf("tranche %d: %w", trancheID, err)
		}
		allocs = append(allocs, AllocationInput{
			TrancheID:      trancheID,
			Amount:         res.Amount,
			RequiredAtTime: res.Base,
			Rule:           res.Rule,
			GrantID:        res.GrantID,
			GrantDeduction: res.Deduction,
		})
	}
	return allocs, nil
}

// Preview prices the requested tranches without recording anything. Grants
// stay unburned, so previewing twice is harmless.
func (s *Service) Preview(ctx context.Context, studentID int64, trancheIDs []int64, flags pricing.Flags, asOf time.Time) ([]Quote, error) {
	if len(trancheIDs) == 0 {
		return nil, errors.New("at least one tranche required")
	}
	allocs, err := s.price(ctx, studentID, trancheIDs, flags, asOf)
	if err != nil {
		return nil, err
	}
	quotes := make([]Quote, 0, len(allocs))
	for _, a := range allocs {
		quotes = append(quotes, Quote{TrancheID: a.TrancheID, Amount: a.Amount, Required: a.RequiredAtTime, Rule: a.Rule})
	}
	return quotes, nil
}

// RecordPayment prices the tranches, stamps a receipt number and persists the
// payment. If the client supplied an idempotency key, a replay returns
// ErrIdempotencyConflict without touching any grant. A persistence failure
// releases the key so the client may retry.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentWithAllocations, error) {
	if err := shared.ValidateSchoolYear(in.SchoolYear); err != nil {
		return nil, err
	}
	if len(in.TrancheIDs) == 0 {
		return nil, errors.New("at least one tranche required")
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	if in.IdempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, in.IdempotencyKey, idempotencyScope); err != nil {
			return nil, err
		}
	}

	allocs, err := s.price(ctx, in.StudentID, in.TrancheIDs, in.Flags, paidAt)
	if err != nil {
		s.releaseKey(ctx, in.IdempotencyKey)
		return nil, err
	}

	var total int64
	for _, a := range allocs {
		total += a.Amount
	}

	payment, err := s.repo.CreatePayment(ctx, CreatePaymentInput{
		Number:      s.numbers.Generate(in.SchoolYear, paidAt, receipts.KindPayment),
		Reference:   uuid.NewString(),
		StudentID:   in.StudentID,
		SchoolYear:  in.SchoolYear,
		Total:       total,
		Method:      in.Method,
		Note:        in.Note,
		PaidAt:      paidAt,
		Allocations: allocs,
	})
	if err != nil {
		s.releaseKey(ctx, in.IdempotencyKey)
		return nil, err
	}

	s.logger.Info("payment recorded",
		"payment_id", payment.ID,
		"number", payment.Number,
		"student_id", payment.StudentID,
		"total", payment.Total,
	)
	return payment, nil
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", "key", key, "error", err)
	}
}

// GetPayment loads one payment with its allocations.
func (s *Service) GetPayment(ctx context.Context, id int64) (*PaymentWithAllocations, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.GetPayment(ctx, id)
}

// ListByStudent returns a student's payments for a school year, newest first.
func (s *Service) ListByStudent(ctx context.Context, studentID int64, schoolYear string) ([]Payment, error) {
	if err := shared.ValidateSchoolYear(schoolYear); err != nil {
		return nil, err
	}
	return s.repo.ListByStudent(ctx, studentID, schoolYear)
}

// ReceiptLines assembles the printable lines of a payment receipt, one per
// allocation.
func (s *Service) ReceiptLines(ctx context.Context, paymentID int64) ([]receipts.Line, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	st, err := s.students.Get(ctx, payment.StudentID)
	if err != nil {
		return nil, fmt.Errorf("student %d: %w", payment.StudentID, err)
	}
	tranches, err := s.catalog.ListTranches(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(tranches))
	for _, tr := range tranches {
		names[tr.ID] = tr.Name
	}

	lines := make([]receipts.Line, 0, len(payment.Allocations))
	for _, a := range payment.Allocations {
		lines = append(lines, receipts.Line{
			Number:      payment.Number,
			StudentName: st.FirstName + " " + st.LastName,
			TrancheName: names[a.TrancheID],
			Amount:      a.Amount,
			PaidAt:      payment.PaidAt,
		})
	}
	return lines, nil
}

// Outstanding reports, per tranche, what the student still owes. Required
// amounts reflect the current catalog; balances never go negative.
func (s *Service) Outstanding(ctx context.Context, studentID int64, schoolYear string) ([]TrancheDue, error) {
	if err := shared.ValidateSchoolYear(schoolYear); err != nil {
		return nil, err
	}
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("student %d: %w", studentID, err)
	}

	var (
		tranches []tariffs.Tranche
		paid     map[int64]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tranches, err = s.catalog.ListTranches(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		paid, err = s.repo.SumPaidByTranche(gctx, studentID, schoolYear)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dues := make([]TrancheDue, 0, len(tranches))
	for _, tr := range tranches {
		required, err := s.catalog.BaseAmount(ctx, st.ClassID, tr.ID, st.IsNew)
		if err != nil {
			return nil, fmt.Errorf("tranche %d: %w", tr.ID, err)
		}
		balance := required - paid[tr.ID]
		if balance < 0 {
			balance = 0
		}
		dues = append(dues, TrancheDue{
			TrancheID: tr.ID,
			Required:  required,
			Paid:      paid[tr.ID],
			Balance:   balance,
		})
	}
	return dues, nil
}

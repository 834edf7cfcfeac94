package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scolaria/scolaria/internal/discounts"
	"github.com/scolaria/scolaria/internal/masterdata/students"
	"github.com/scolaria/scolaria/internal/pricing"
	"github.com/scolaria/scolaria/internal/receipts"
	"github.com/scolaria/scolaria/internal/scholarships"
	"github.com/scolaria/scolaria/internal/shared"
	"github.com/scolaria/scolaria/internal/tariffs"
)

type memoryPaymentRepo struct {
	payments []PaymentWithAllocations
	nextID   int64
	failNext error
}

func (m *memoryPaymentRepo) CreatePayment(_ context.Context, in CreatePaymentInput) (*PaymentWithAllocations, error) {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	m.nextID++
	out := PaymentWithAllocations{
		Payment: Payment{
			ID:         m.nextID,
			Number:     in.Number,
			Reference:  in.Reference,
			StudentID:  in.StudentID,
			SchoolYear: in.SchoolYear,
			Total:      in.Total,
			Method:     in.Method,
			Note:       in.Note,
			PaidAt:     in.PaidAt,
		},
	}
	for i, a := range in.Allocations {
		out.Allocations = append(out.Allocations, Allocation{
			ID:             m.nextID*100 + int64(i),
			PaymentID:      m.nextID,
			TrancheID:      a.TrancheID,
			Amount:         a.Amount,
			RequiredAtTime: a.RequiredAtTime,
			Rule:           a.Rule,
			GrantID:        a.GrantID,
		})
	}
	m.payments = append(m.payments, out)
	return &out, nil
}

func (m *memoryPaymentRepo) GetPayment(_ context.Context, id int64) (*PaymentWithAllocations, error) {
	for i := range m.payments {
		if m.payments[i].ID == id {
			return &m.payments[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryPaymentRepo) ListByStudent(_ context.Context, studentID int64, schoolYear string) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.StudentID == studentID && p.SchoolYear == schoolYear {
			out = append(out, p.Payment)
		}
	}
	return out, nil
}

func (m *memoryPaymentRepo) SumPaidByTranche(_ context.Context, studentID int64, schoolYear string) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, p := range m.payments {
		if p.StudentID != studentID || p.SchoolYear != schoolYear {
			continue
		}
		for _, a := range p.Allocations {
			out[a.TrancheID] += a.Amount
		}
	}
	return out, nil
}

type fakeStudents struct {
	byID map[int64]students.Student
}

func (f *fakeStudents) Get(_ context.Context, id int64) (students.Student, error) {
	st, ok := f.byID[id]
	if !ok {
		return students.Student{}, shared.ErrNotFound
	}
	return st, nil
}

type fakePolicies struct {
	policy discounts.Policy
}

func (f *fakePolicies) Current(context.Context) (discounts.Policy, error) {
	return f.policy, nil
}

type fakeGrants struct {
	grants []scholarships.GrantWithOffer
}

func (f *fakeGrants) FindApplicableGrant(_ context.Context, studentID, trancheID int64, asOf time.Time, deadline *time.Time) (*scholarships.GrantWithOffer, error) {
	if deadline != nil && asOf.After(*deadline) {
		return nil, nil
	}
	var best *scholarships.GrantWithOffer
	for i := range f.grants {
		g := &f.grants[i]
		if g.StudentID != studentID || g.TrancheID != trancheID || g.Used {
			continue
		}
		if best == nil || g.ID < best.ID {
			best = g
		}
	}
	return best, nil
}

func (f *fakeGrants) HasAnyGrant(_ context.Context, studentID, trancheID int64) (bool, error) {
	for _, g := range f.grants {
		if g.StudentID == studentID && g.TrancheID == trancheID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCatalog struct {
	amounts  map[[2]int64]int64
	tranches []tariffs.Tranche
}

func (f *fakeCatalog) BaseAmount(_ context.Context, classID, trancheID int64, isNew bool) (int64, error) {
	return f.amounts[[2]int64{classID, trancheID}], nil
}

func (f *fakeCatalog) ListTranches(context.Context) ([]tariffs.Tranche, error) {
	return f.tranches, nil
}

type fakeIdem struct {
	seen    map[string]bool
	deleted []string
}

func (f *fakeIdem) CheckAndInsert(_ context.Context, key, scope string) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func (f *fakeIdem) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.seen, key)
	return nil
}

type paymentFixture struct {
	service *Service
	repo    *memoryPaymentRepo
	idem    *fakeIdem
	grants  *fakeGrants
}

func deadlineOct(year int) *time.Time {
	d := time.Date(year, time.October, 31, 23, 59, 59, 0, time.UTC)
	return &d
}

func newPaymentFixture(t *testing.T, policy discounts.Policy, grants []scholarships.GrantWithOffer) *paymentFixture {
	t.Helper()
	repo := &memoryPaymentRepo{}
	idem := &fakeIdem{}
	grantSrc := &fakeGrants{grants: grants}
	svc := NewService(
		repo,
		&fakeStudents{byID: map[int64]students.Student{
			7: {ID: 7, ClassID: 3, IsNew: false, Active: true},
		}},
		&fakePolicies{policy: policy},
		grantSrc,
		&fakeCatalog{
			amounts: map[[2]int64]int64{
				{3, 1}: 10000,
				{3, 2}: 15000,
			},
			tranches: []tariffs.Tranche{
				{ID: 1, Name: "Inscription", Position: 1},
				{ID: 2, Name: "Première tranche", Position: 2},
			},
		},
		receipts.NewGeneratorWithClock(func() time.Time {
			return time.Date(2025, time.September, 15, 10, 30, 0, 123456000, time.UTC)
		}),
		idem,
		slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	)
	return &paymentFixture{service: svc, repo: repo, idem: idem, grants: grantSrc}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestRecordPaymentGlobalDiscount(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{
		Deadline: deadlineOct(2025),
		Percent:  10,
		Active:   true,
	}, nil)

	payment, err := fix.service.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:  7,
		SchoolYear: "2025/2026",
		Method:     "CASH",
		TrancheIDs: []int64{1},
		Flags:      allFlags(),
		PaidAt:     time.Date(2025, time.September, 15, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.EqualValues(t, 9000, payment.Total)
	require.Len(t, payment.Allocations, 1)
	require.Equal(t, "GLOBAL_DISCOUNT", string(payment.Allocations[0].Rule))
	require.EqualValues(t, 10000, payment.Allocations[0].RequiredAtTime)
	require.True(t, strings.HasPrefix(payment.Number, "REC26"))
	require.NotEmpty(t, payment.Reference)
}

func TestRecordPaymentScholarshipConsumesGrant(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{
		Deadline: deadlineOct(2025),
		Percent:  10,
		Active:   true,
	}, []scholarships.GrantWithOffer{
		{Grant: scholarships.Grant{ID: 41, StudentID: 7, OfferID: 4}, OfferAmount: 3000, TrancheID: 1},
	})

	payment, err := fix.service.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:  7,
		SchoolYear: "2025/2026",
		Method:     "CASH",
		TrancheIDs: []int64{1},
		Flags:      allFlags(),
		PaidAt:     time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.EqualValues(t, 7000, payment.Total)
	require.Equal(t, "SCHOLARSHIP", string(payment.Allocations[0].Rule))
	require.EqualValues(t, 41, payment.Allocations[0].GrantID)
}

func TestRecordPaymentMultiTranche(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{
		Deadline: deadlineOct(2025),
		Percent:  10,
		Active:   true,
	}, []scholarships.GrantWithOffer{
		{Grant: scholarships.Grant{ID: 41, StudentID: 7, OfferID: 4}, OfferAmount: 3000, TrancheID: 1},
	})

	payment, err := fix.service.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:  7,
		SchoolYear: "2025/2026",
		Method:     "TRANSFER",
		TrancheIDs: []int64{1, 2},
		Flags:      allFlags(),
		PaidAt:     time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	// tranche 1: 10000 - 3000 grant; tranche 2: 15000 - 10% discount
	require.EqualValues(t, 7000+13500, payment.Total)
	require.Equal(t, "SCHOLARSHIP", string(payment.Allocations[0].Rule))
	require.Equal(t, "GLOBAL_DISCOUNT", string(payment.Allocations[1].Rule))
}

func TestRecordPaymentIdempotencyReplay(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{}, nil)

	in := RecordPaymentInput{
		StudentID:      7,
		SchoolYear:     "2025/2026",
		Method:         "CASH",
		TrancheIDs:     []int64{1},
		PaidAt:         time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
		IdempotencyKey: "abc-123",
	}
	_, err := fix.service.RecordPayment(context.Background(), in)
	require.NoError(t, err)

	_, err = fix.service.RecordPayment(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, fix.repo.payments, 1)
}

func TestRecordPaymentFailureReleasesKey(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{}, nil)
	fix.repo.failNext = errors.New("boom")

	in := RecordPaymentInput{
		StudentID:      7,
		SchoolYear:     "2025/2026",
		Method:         "CASH",
		TrancheIDs:     []int64{1},
		PaidAt:         time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
		IdempotencyKey: "retry-me",
	}
	_, err := fix.service.RecordPayment(context.Background(), in)
	require.Error(t, err)
	require.Contains(t, fix.idem.deleted, "retry-me")

	// key released, retry succeeds
	_, err = fix.service.RecordPayment(context.Background(), in)
	require.NoError(t, err)
}

func TestRecordPaymentRejectsBadSchoolYear(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{}, nil)
	_, err := fix.service.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:  7,
		SchoolYear: "2025-2026",
		Method:     "CASH",
		TrancheIDs: []int64{1},
	})
	require.ErrorIs(t, err, shared.ErrInvalidSchoolYear)
}

func TestPreviewWritesNothing(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{
		Deadline: deadlineOct(2025),
		Percent:  10,
		Active:   true,
	}, nil)

	quotes, err := fix.service.Preview(context.Background(), 7, []int64{1}, allFlags(),
		time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.EqualValues(t, 9000, quotes[0].Amount)
	require.Empty(t, fix.repo.payments)
}

func TestPreviewZeroPercentPolicyChargesFullBase(t *testing.T) {
	// An administrator can set the percentage to zero to switch both
	// discounts off while keeping the window open. That zero must reach
	// the pricing engine as-is, not be mistaken for "unconfigured".
	fix := newPaymentFixture(t, discounts.Policy{
		Deadline: deadlineOct(2025),
		Percent:  0,
		Active:   true,
	}, nil)

	flags := pricing.Flags{ApplyBlanketReduction: true, ApplyGlobalDiscount: true}
	quotes, err := fix.service.Preview(context.Background(), 7, []int64{1}, flags,
		time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.EqualValues(t, 10000, quotes[0].Amount)
	require.Equal(t, pricing.RuleNone, quotes[0].Rule)
}

func TestOutstandingBalances(t *testing.T) {
	fix := newPaymentFixture(t, discounts.Policy{}, nil)

	_, err := fix.service.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:  7,
		SchoolYear: "2025/2026",
		Method:     "CASH",
		TrancheIDs: []int64{1},
		PaidAt:     time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	dues, err := fix.service.Outstanding(context.Background(), 7, "2025/2026")
	require.NoError(t, err)
	require.Len(t, dues, 2)
	require.EqualValues(t, 0, dues[0].Balance)
	require.EqualValues(t, 10000, dues[0].Paid)
	require.EqualValues(t, 15000, dues[1].Balance)
	require.EqualValues(t, 0, dues[1].Paid)
}

func allFlags() pricing.Flags {
	return pricing.Flags{
		ApplyScholarship:    true,
		ApplyGlobalDiscount: true,
	}
}

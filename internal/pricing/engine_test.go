package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryCatalog struct {
	amounts  map[[2]int64][2]Money
	defaults map[int64]Money
}

func (c *memoryCatalog) BaseAmount(ctx context.Context, classID, trancheID int64, isNew bool) (Money, error) {
	if amount, ok := c.defaults[trancheID]; ok {
		return amount, nil
	}
	pair, ok := c.amounts[[2]int64{classID, trancheID}]
	if !ok {
		return 0, nil
	}
	if isNew {
		return pair[0], nil
	}
	return pair[1], nil
}

type memoryGrants struct {
	applicable map[[2]int64]*Grant
	any        map[[2]int64]bool
}

func (g *memoryGrants) FindApplicableGrant(ctx context.Context, studentID, trancheID int64, asOf time.Time) (*Grant, error) {
	return g.applicable[[2]int64{studentID, trancheID}], nil
}

func (g *memoryGrants) HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error) {
	if g.any[[2]int64{studentID, trancheID}] {
		return true, nil
	}
	return g.applicable[[2]int64{studentID, trancheID}] != nil, nil
}

func newTestEngine(catalog *memoryCatalog, grants *memoryGrants) *Engine {
	if catalog.amounts == nil {
		catalog.amounts = map[[2]int64][2]Money{}
	}
	if catalog.defaults == nil {
		catalog.defaults = map[int64]Money{}
	}
	if grants.applicable == nil {
		grants.applicable = map[[2]int64]*Grant{}
	}
	if grants.any == nil {
		grants.any = map[[2]int64]bool{}
	}
	return NewEngine(catalog, grants)
}

func openPolicy(percent int64) Policy {
	deadline := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	return Policy{Deadline: &deadline, Percent: percent, Active: true}
}

var asOf = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func TestResolveGlobalDiscountOnly(t *testing.T) {
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 9500}}}
	engine := newTestEngine(catalog, &memoryGrants{})

	student := Student{ID: 7, ClassID: 1, IsNew: true}
	flags := Flags{ApplyGlobalDiscount: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(9000), res.Amount)
	require.Equal(t, RuleGlobalDiscount, res.Rule)
}

func TestResolveScholarshipBeatsGlobalDiscount(t *testing.T) {
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 9500}}}
	grants := &memoryGrants{applicable: map[[2]int64]*Grant{
		{7, 10}: {ID: 3, OfferID: 1, OfferAmount: 3000},
	}}
	engine := newTestEngine(catalog, grants)

	student := Student{ID: 7, ClassID: 1, IsNew: true}
	flags := Flags{ApplyScholarship: true, ApplyGlobalDiscount: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(7000), res.Amount)
	require.Equal(t, RuleScholarship, res.Rule)
	require.Equal(t, int64(3), res.GrantID)
	require.Equal(t, Money(3000), res.Deduction)
}

func TestResolveScholarshipCappedAtBase(t *testing.T) {
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 9500}}}
	grants := &memoryGrants{applicable: map[[2]int64]*Grant{
		{7, 10}: {ID: 3, OfferID: 1, OfferAmount: 12000},
	}}
	engine := newTestEngine(catalog, grants)

	student := Student{ID: 7, ClassID: 1, IsNew: true}
	flags := Flags{ApplyScholarship: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(0), res.Amount)
	require.Equal(t, RuleScholarship, res.Rule)
	require.Equal(t, Money(10000), res.Deduction)
}

func TestResolveAnyGrantBlocksGlobalDiscount(t *testing.T) {
	// A grant that is not applicable this call (already used, or its window
	// closed) still makes the student ineligible for the generic discount.
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 9500}}}
	grants := &memoryGrants{any: map[[2]int64]bool{{7, 10}: true}}
	engine := newTestEngine(catalog, grants)

	student := Student{ID: 7, ClassID: 1, IsNew: true}
	flags := Flags{ApplyScholarship: true, ApplyGlobalDiscount: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(10000), res.Amount)
	require.Equal(t, RuleNone, res.Rule)
}

func TestResolveBlanketReduction(t *testing.T) {
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 9500}}}
	engine := newTestEngine(catalog, &memoryGrants{})

	student := Student{ID: 7, ClassID: 1, IsNew: false}
	flags := Flags{ApplyBlanketReduction: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(8550), res.Amount)
	require.Equal(t, RuleBlanketReduction, res.Rule)
}

func TestResolveBlanketReductionThenGlobalDiscount(t *testing.T) {
	// Only the last fired rule is reported, but the blanket reduction's
	// monetary effect persists underneath.
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 10000}}}
	engine := newTestEngine(catalog, &memoryGrants{})

	student := Student{ID: 7, ClassID: 1, IsNew: false}
	flags := Flags{ApplyBlanketReduction: true, ApplyGlobalDiscount: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(8100), res.Amount)
	require.Equal(t, RuleGlobalDiscount, res.Rule)
}

func TestResolveDefaultAmountTranche(t *testing.T) {
	catalog := &memoryCatalog{defaults: map[int64]Money{20: 5000}}
	engine := newTestEngine(catalog, &memoryGrants{})

	student := Student{ID: 7, ClassID: 99, IsNew: true}

	res, err := engine.Resolve(context.Background(), student, 20, Flags{}, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(5000), res.Amount)
	require.Equal(t, RuleNone, res.Rule)
}

func TestResolveUnconfiguredTrancheIsZero(t *testing.T) {
	engine := newTestEngine(&memoryCatalog{}, &memoryGrants{})

	student := Student{ID: 7, ClassID: 1, IsNew: true}
	flags := Flags{ApplyBlanketReduction: true, ApplyGlobalDiscount: true}

	res, err := engine.Resolve(context.Background(), student, 42, flags, openPolicy(10), asOf)
	require.NoError(t, err)
	require.Equal(t, Money(0), res.Amount)
}

func TestResolveClosedWindowBlocksGlobalDiscount(t *testing.T) {
	catalog := &memoryCatalog{amounts: map[[2]int64][2]Money{{1, 10}: {10000, 9500}}}
	engine := newTestEngine(catalog, &memoryGrants{})

	student := Student{ID: 7, ClassID: 1, IsNew: true}
	flags := Flags{ApplyGlobalDiscount: true}

	past := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	policy := Policy{Deadline: &past, Percent: 10, Active: true}

	res, err := engine.Resolve(context.Background(), student, 10, flags, policy, asOf)
	require.NoError(t, err)
	require.Equal(t, Money(10000), res.Amount)
	require.Equal(t, RuleNone, res.Rule)
}

func TestPolicyWithoutDeadlineIsClosed(t *testing.T) {
	policy := Policy{Percent: 10, Active: true}
	require.False(t, policy.WithinWindow(asOf))
	require.False(t, policy.Eligible(asOf))
}

func TestReduceByPercentMonotonic(t *testing.T) {
	for _, amount := range []Money{0, 1, 99, 100, 10000, 123457} {
		prev := amount
		for p := int64(0); p <= 100; p++ {
			got := reduceByPercent(amount, p)
			require.GreaterOrEqual(t, got, Money(0), "amount=%d p=%d", amount, p)
			require.LessOrEqual(t, got, prev, "amount=%d p=%d", amount, p)
			prev = got
		}
		require.Equal(t, Money(0), reduceByPercent(amount, 100))
	}
}

func TestReduceByPercentRoundsHalfUp(t *testing.T) {
	// 105 * 0.9 = 94.5 rounds up to 95.
	require.Equal(t, Money(95), reduceByPercent(105, 10))
	// 104 * 0.9 = 93.6 rounds to 94.
	require.Equal(t, Money(94), reduceByPercent(104, 10))
	// 101 * 0.9 = 90.9 rounds to 91.
	require.Equal(t, Money(91), reduceByPercent(101, 10))
}

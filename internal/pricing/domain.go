package pricing

import (
	"time"
)

// Money is a monetary value in whole currency units.
type Money = int64

// Rule identifies which pricing rule produced the final amount.
type Rule string

const (
	RuleNone             Rule = "NONE"
	RuleBlanketReduction Rule = "BLANKET_REDUCTION"
	RuleScholarship      Rule = "SCHOLARSHIP"
	RuleGlobalDiscount   Rule = "GLOBAL_DISCOUNT"
)

// Student carries the identity facts the resolver needs.
type Student struct {
	ID      int64
	ClassID int64
	IsNew   bool
}

// Flags are caller-supplied toggles deciding which rule categories are
// under consideration for one payment.
type Flags struct {
	ApplyBlanketReduction bool
	ApplyScholarship      bool
	ApplyGlobalDiscount   bool
}

// Policy is the discount configuration threaded through each resolution,
// retrieved once per call rather than read from a global store.
type Policy struct {
	Deadline *time.Time
	Percent  int64
	Active   bool
}

// WithinWindow reports whether asOf falls on or before the configured
// deadline. A missing deadline means the window is closed.
func (p Policy) WithinWindow(asOf time.Time) bool {
	if p.Deadline == nil {
		return false
	}
	return !asOf.After(*p.Deadline)
}

// Eligible reports whether the global discount can fire at asOf.
func (p Policy) Eligible(asOf time.Time) bool {
	return p.Active && p.Percent > 0 && p.WithinWindow(asOf)
}

// Grant is the resolver's view of an applicable scholarship grant.
type Grant struct {
	ID          int64
	OfferID     int64
	OfferAmount Money
}

// Result is the outcome of a resolution: the payable amount, the rule
// that fired last, and the grant consumption the caller must commit.
type Result struct {
	Amount    Money
	Rule      Rule
	Base      Money
	GrantID   int64
	Deduction Money
}

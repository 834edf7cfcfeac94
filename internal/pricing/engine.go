package pricing

import (
	"context"
	"fmt"
	"time"
)

// Catalog resolves the base amount owed for a (class, tranche) pair.
type Catalog interface {
	BaseAmount(ctx context.Context, classID, trancheID int64, isNew bool) (Money, error)
}

// GrantSource exposes scholarship grants to the resolver. FindApplicableGrant
// returns the oldest unused grant whose offer matches the tranche and whose
// eligibility window is open at asOf, or nil. HasAnyGrant reports whether the
// student holds any grant at all for the tranche, used or unused, which is
// what the exclusivity rule keys on.
type GrantSource interface {
	FindApplicableGrant(ctx context.Context, studentID, trancheID int64, asOf time.Time) (*Grant, error)
	HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error)
}

// Engine computes the payable amount for one tranche. It performs read-only
// lookups and never mutates grants; consuming a grant is the caller's job
// once the payment is actually recorded, so preview calls are free.
type Engine struct {
	catalog Catalog
	grants  GrantSource
}

// NewEngine builds an Engine instance.
func NewEngine(catalog Catalog, grants GrantSource) *Engine {
	return &Engine{catalog: catalog, grants: grants}
}

// accumulator threads the running amount and last-fired rule through the
// pipeline steps.
type accumulator struct {
	amount Money
	rule   Rule
}

// Resolve runs the pricing pipeline in its fixed order: base amount, blanket
// reduction, scholarship, global discount. The order is part of the contract;
// reordering changes which rule wins.
func (e *Engine) Resolve(ctx context.Context, student Student, trancheID int64, flags Flags, policy Policy, asOf time.Time) (Result, error) {
	base, err := e.catalog.BaseAmount(ctx, student.ClassID, trancheID, student.IsNew)
	if err != nil {
		return Result{}, fmt.Errorf("pricing: base amount: %w", err)
	}

	acc := accumulator{amount: base, rule: RuleNone}
	acc = applyBlanketReduction(acc, flags, policy)

	grant, err := e.grants.FindApplicableGrant(ctx, student.ID, trancheID, asOf)
	if err != nil {
		return Result{}, fmt.Errorf("pricing: find grant: %w", err)
	}
	hasAny, err := e.grants.HasAnyGrant(ctx, student.ID, trancheID)
	if err != nil {
		return Result{}, fmt.Errorf("pricing: has grant: %w", err)
	}

	var deduction Money
	var grantID int64
	scholarshipApplied := false
	if flags.ApplyScholarship && grant != nil {
		acc, deduction = applyScholarship(acc, grant)
		grantID = grant.ID
		scholarshipApplied = true
	}

	acc = applyGlobalDiscount(acc, flags, policy, asOf, scholarshipApplied, hasAny)

	return Result{
		Amount:    acc.amount,
		Rule:      acc.rule,
		Base:      base,
		GrantID:   grantID,
		Deduction: deduction,
	}, nil
}

// applyBlanketReduction discounts the base by the configured percentage for
// the student category. The monetary effect always sticks; the rule tag may
// later be overwritten by a bigger rule.
func applyBlanketReduction(acc accumulator, flags Flags, policy Policy) accumulator {
	if !flags.ApplyBlanketReduction || policy.Percent <= 0 {
		return acc
	}
	acc.amount = reduceByPercent(acc.amount, policy.Percent)
	acc.rule = RuleBlanketReduction
	return acc
}

// applyScholarship deducts the offer amount, capped at the running amount so
// the result never goes negative.
func applyScholarship(acc accumulator, grant *Grant) (accumulator, Money) {
	deduction := grant.OfferAmount
	if deduction > acc.amount {
		deduction = acc.amount
	}
	acc.amount -= deduction
	if acc.amount < 0 {
		acc.amount = 0
	}
	acc.rule = RuleScholarship
	return acc, deduction
}

// applyGlobalDiscount fires only when the student holds no grant at all for
// the tranche. Scholarships and the generic discount are business-mutually
// exclusive, so a grant whose own window has closed still blocks it.
func applyGlobalDiscount(acc accumulator, flags Flags, policy Policy, asOf time.Time, scholarshipApplied, hasScholarship bool) accumulator {
	if !flags.ApplyGlobalDiscount || scholarshipApplied || hasScholarship {
		return acc
	}
	if !policy.Eligible(asOf) {
		return acc
	}
	acc.amount = reduceByPercent(acc.amount, policy.Percent)
	acc.rule = RuleGlobalDiscount
	return acc
}

// reduceByPercent applies amount * (100-p) / 100 with round-half-up in
// integer arithmetic, avoiding any floating point drift.
func reduceByPercent(amount Money, percent int64) Money {
	if percent <= 0 {
		return amount
	}
	if percent >= 100 {
		return 0
	}
	return (amount*(100-percent) + 50) / 100
}

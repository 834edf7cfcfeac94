// Package payments records tuition payments: it prices each tranche through
// the resolver, snapshots the required amount, consumes scholarship grants
// and stamps receipt numbers, all inside one transaction.
package payments

import (
	"time"

	"github.com/scolaria/scolaria/internal/pricing"
)

// Payment is one payment made by a student in a school year.
type Payment struct {
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	Reference  string    `json:"reference"`
	StudentID  int64     `json:"student_id"`
	SchoolYear string    `json:"school_year"`
	Total      int64     `json:"total"`
	Method     string    `json:"method"`
	Note       string    `json:"note"`
	PaidAt     time.Time `json:"paid_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Allocation breaks a payment into per-tranche lines. RequiredAtTime is the
// base amount the catalog demanded when the payment was priced, kept for
// audit regardless of later tariff changes.
type Allocation struct {
	ID             int64        `json:"id"`
	PaymentID      int64        `json:"payment_id"`
	TrancheID      int64        `json:"tranche_id"`
	Amount         int64        `json:"amount"`
	RequiredAtTime int64        `json:"required_at_time"`
	Rule           pricing.Rule `json:"rule"`
	GrantID        int64        `json:"grant_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PaymentWithAllocations bundles a payment and its lines.
type PaymentWithAllocations struct {
	Payment
	Allocations []Allocation `json:"allocations"`
}

// Quote is the outcome of a preview resolution for one tranche. Nothing is
// written and no grant is burned.
type Quote struct {
	TrancheID int64        `json:"tranche_id"`
	Amount    int64        `json:"amount"`
	Required  int64        `json:"required"`
	Rule      pricing.Rule `json:"rule"`
}

// RecordPaymentInput describes one payment submission.
type RecordPaymentInput struct {
	StudentID      int64
	SchoolYear     string
	Method         string
	Note           string
	TrancheIDs     []int64
	Flags          pricing.Flags
	PaidAt         time.Time
	IdempotencyKey string
}

// AllocationInput is one priced line handed to the repository.
type AllocationInput struct {
	TrancheID      int64
	Amount         int64
	RequiredAtTime int64
	Rule           pricing.Rule
	GrantID        int64
	GrantDeduction int64
}

// CreatePaymentInput is the persisted form of a priced payment.
type CreatePaymentInput struct {
	Number      string
	Reference   string
	StudentID   int64
	SchoolYear  string
	Total       int64
	Method      string
	Note        string
	PaidAt      time.Time
	Allocations []AllocationInput
}

// TrancheDue summarises what a student still owes on one tranche.
type TrancheDue struct {
	TrancheID int64 `json:"tranche_id"`
	Required  int64 `json:"required"`
	Paid      int64 `json:"paid"`
	Balance   int64 `json:"balance"`
}

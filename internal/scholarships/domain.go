// Package scholarships keeps the registry of class-level scholarship offers
// and the single-use grants binding an offer to one student.
package scholarships

import "time"

// Offer is a scholarship attached to one class and one tranche.
type Offer struct {
	ID        int64     `json:"id"`
	ClassID   int64     `json:"class_id"`
	TrancheID int64     `json:"tranche_id"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grant binds an offer to one student. Once used it is immutable; the
// consumed amount and timestamp are kept for audit.
type Grant struct {
	ID         int64      `json:"id"`
	OfferID    int64      `json:"offer_id"`
	StudentID  int64      `json:"student_id"`
	Used       bool       `json:"used"`
	UsedAmount int64      `json:"used_amount"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// GrantWithOffer carries the grant together with the offer facts the
// resolver needs.
type GrantWithOffer struct {
	Grant
	OfferName   string `json:"offer_name"`
	OfferAmount int64  `json:"offer_amount"`
	TrancheID   int64  `json:"tranche_id"`
}

// OfferInput for creating or updating offers.
type OfferInput struct {
	ClassID   int64  `json:"class_id"`
	TrancheID int64  `json:"tranche_id"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	Active    bool   `json:"active"`
}

// GrantInput for awarding an offer to a student.
type GrantInput struct {
	OfferID   int64 `json:"offer_id"`
	StudentID int64 `json:"student_id"`
}

// Package tariffs holds the tuition catalog: the tranches of a school year
// and the per-class amount required for each of them.
package tariffs

import "time"

// Tranche is one installment of the fee schedule (registration, first
// through third installment, supply fee, ...).
type Tranche struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// UsesDefaultAmount short-circuits the per-class tariff lookup: the
	// tranche costs DefaultAmount for every class.
	UsesDefaultAmount bool      `json:"uses_default_amount"`
	DefaultAmount     int64     `json:"default_amount"`
	Position          int       `json:"position"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TariffEntry is the amount a class owes for one tranche. At most one entry
// exists per (class, tranche) pair.
type TariffEntry struct {
	ID                     int64     `json:"id"`
	ClassID                int64     `json:"class_id"`
	TrancheID              int64     `json:"tranche_id"`
	NewStudentAmount       int64     `json:"new_student_amount"`
	ReturningStudentAmount int64     `json:"returning_student_amount"`
	Required               bool      `json:"required"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TrancheInput for creating or updating tranches.
type TrancheInput struct {
	Name              string `json:"name"`
	UsesDefaultAmount bool   `json:"uses_default_amount"`
	DefaultAmount     int64  `json:"default_amount"`
	Position          int    `json:"position"`
}

// TariffInput for configuring a (class, tranche) amount.
type TariffInput struct {
	ClassID                int64 `json:"class_id"`
	TrancheID              int64 `json:"tranche_id"`
	NewStudentAmount       int64 `json:"new_student_amount"`
	ReturningStudentAmount int64 `json:"returning_student_amount"`
	Required               bool  `json:"required"`
}

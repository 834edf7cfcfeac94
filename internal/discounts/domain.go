// Package discounts owns the school-wide discount policy: one configurable
// deadline and percentage driving both the blanket reduction and the
// time-boxed global discount.
package discounts

import "time"

// DefaultPercent seeds the lazily created policy row. Once the row exists
// the configured value is authoritative, including an explicit zero.
const DefaultPercent = 10

// Policy is the singleton discount configuration.
type Policy struct {
	ID        int64      `json:"id"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Percent   int64      `json:"percent"`
	Active    bool       `json:"active"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// WithinWindow reports whether asOf falls on or before the deadline. No
// deadline means the window is always closed, never implicitly open.
func (p Policy) WithinWindow(asOf time.Time) bool {
	if p.Deadline == nil {
		return false
	}
	return !asOf.After(*p.Deadline)
}

// EffectivePercent returns the configured percentage clamped to [0,100].
// Zero is a valid configuration that disables both the blanket reduction
// and the global discount; it must never fall back to DefaultPercent.
func (p Policy) EffectivePercent() int64 {
	if p.Percent < 0 {
		return 0
	}
	if p.Percent > 100 {
		return 100
	}
	return p.Percent
}

// PolicyInput for updating the singleton.
type PolicyInput struct {
	Deadline *time.Time `json:"deadline"`
	Percent  int64      `json:"percent"`
	Active   bool       `json:"active"`
}

// Package receipts produces receipt identifiers and printable receipt lines
// for recorded payments.
package receipts

import (
	"fmt"
	"time"

	"github.com/scolaria/scolaria/internal/shared"
)

// Kind selects the receipt number prefix.
type Kind string

const (
	KindPayment Kind = "PAYMENT"
	KindDocFee  Kind = "DOC_FEE"
	KindPenalty Kind = "PENALTY"
)

func (k Kind) prefix() string {
	switch k {
	case KindDocFee:
		return "FD"
	case KindPenalty:
		return "PEN"
	default:
		return "REC"
	}
}

// Generator builds sortable receipt numbers. Uniqueness is probabilistic:
// the trailing six digits come from a microsecond clock reading, so two
// calls within the same microsecond can collide. The unique index on the
// payments table is the actual backstop; the generator does not retry.
type Generator struct {
	now func() time.Time
}

// NewGenerator builds a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorWithClock builds a Generator with an injected clock, used in
// tests.
func NewGeneratorWithClock(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate returns <PREFIX><YY><YYMMDD><6 microsecond digits> where YY is
// the last two characters of the school-year name (e.g. "2025/2026" -> "26")
// and YYMMDD is the as-of date.
func (g *Generator) Generate(schoolYear string, asOf time.Time, kind Kind) string {
	yy := shared.SchoolYearSuffix(schoolYear)
	micros := g.now().UnixMicro() % 1_000_000
	return fmt.Sprintf("%s%s%s%06d", kind.prefix(), yy, asOf.Format("060102"), micros)
}

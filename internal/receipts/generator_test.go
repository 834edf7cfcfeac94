package receipts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateFormat(t *testing.T) {
	clock := time.Date(2026, 1, 15, 10, 30, 0, 123456000, time.UTC)
	gen := NewGeneratorWithClock(fixedClock(clock))

	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	number := gen.Generate("2025/2026", asOf, KindPayment)

	require.True(t, strings.HasPrefix(number, "REC26260115"))
	require.Len(t, number, len("REC")+2+6+6)
}

func TestGeneratePrefixes(t *testing.T) {
	gen := NewGeneratorWithClock(fixedClock(time.Unix(0, 0)))
	asOf := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	require.True(t, strings.HasPrefix(gen.Generate("2025/2026", asOf, KindPayment), "REC"))
	require.True(t, strings.HasPrefix(gen.Generate("2025/2026", asOf, KindDocFee), "FD"))
	require.True(t, strings.HasPrefix(gen.Generate("2025/2026", asOf, KindPenalty), "PEN"))
}

func TestGenerateShortSchoolYearName(t *testing.T) {
	gen := NewGeneratorWithClock(fixedClock(time.Unix(0, 0)))
	asOf := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	number := gen.Generate("26", asOf, KindPayment)
	require.True(t, strings.HasPrefix(number, "REC26"))
}

func TestGenerateSameMicrosecondCollides(t *testing.T) {
	// Uniqueness is only probabilistic: with a frozen clock the suffix
	// repeats. This is a documented limitation, the database unique index
	// is the real guard.
	clock := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	gen := NewGeneratorWithClock(fixedClock(clock))
	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	first := gen.Generate("2025/2026", asOf, KindPayment)
	second := gen.Generate("2025/2026", asOf, KindPayment)
	require.Equal(t, first, second)
}

func TestRendererFormatAmount(t *testing.T) {
	r := NewRenderer()
	got := r.FormatAmount(150000)
	// French grouping uses a narrow no-break space between groups.
	require.Equal(t, "150", got[:3])
	require.Equal(t, "000", got[len(got)-3:])
	require.NotEqual(t, "150000", got)
}

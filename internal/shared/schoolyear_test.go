package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSchoolYear(t *testing.T) {
	require.NoError(t, ValidateSchoolYear("2025/2026"))
	require.ErrorIs(t, ValidateSchoolYear("2025-2026"), ErrInvalidSchoolYear)
	require.ErrorIs(t, ValidateSchoolYear("2025/2027"), ErrInvalidSchoolYear)
	require.ErrorIs(t, ValidateSchoolYear(""), ErrInvalidSchoolYear)
}

func TestSchoolYearSuffix(t *testing.T) {
	require.Equal(t, "26", SchoolYearSuffix("2025/2026"))
	require.Equal(t, "26", SchoolYearSuffix("26"))
}

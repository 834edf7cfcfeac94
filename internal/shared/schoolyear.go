package shared

import (
	"regexp"
	"strconv"
)

var schoolYearRe = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

// ValidateSchoolYear checks a school-year name such as "2025/2026": two
// four-digit years, the second one year after the first.
func ValidateSchoolYear(name string) error {
	m := schoolYearRe.FindStringSubmatch(name)
	if m == nil {
		return ErrInvalidSchoolYear
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return ErrInvalidSchoolYear
	}
	return nil
}

// SchoolYearSuffix returns the last two characters of the school-year name,
// used as the year marker inside receipt numbers.
func SchoolYearSuffix(name string) string {
	if len(name) <= 2 {
		return name
	}
	return name[len(name)-2:]
}

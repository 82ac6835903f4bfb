package attendance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var periodPattern = regexp.MustCompile(`^(?i)(?:(?:period|p)[\s\-_]*)?(\d{1,2})$`)

// ParsePeriod accepts "3", "Period 3", "P3" or "period-3" and returns 3.
func ParsePeriod(s string) (int, error) {
	m := periodPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("parse period %q: %w", s, ErrInvalidPeriod)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("parse period %q: %w", s, ErrInvalidPeriod)
	}
	return n, nil
}

// PeriodLabel renders a period for display.
func PeriodLabel(period int) string {
	return "Period " + strconv.Itoa(period)
}

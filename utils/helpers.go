package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// MaxSessionPageSize bounds the session-log page size server-side,
// regardless of what the client asks for, because every session on the page
// triggers a full-session event fetch.
const MaxSessionPageSize = 200

// ParseDateBound parses an ISO date (2006-01-02) as an inclusive UTC-day
// bound: the start of the day for a lower bound, the end of the day for an
// upper bound.
func ParseDateBound(value string, upper bool) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	if upper {
		return now.New(t).EndOfDay(), nil
	}
	return now.New(t).BeginningOfDay(), nil
}

// IsValidTimeOfDay reports whether value is a valid HH:MM time-of-day.
func IsValidTimeOfDay(value string) bool {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

// SplitMulti flattens repeatable and comma-separated query values into one
// list, trimming whitespace and dropping empties.
func SplitMulti(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ClampLimit coerces a requested page size into [1, MaxSessionPageSize],
// substituting fallback when the request carried none.
func ClampLimit(limit, fallback int) int {
	if limit < 1 {
		limit = fallback
	}
	if limit > MaxSessionPageSize {
		limit = MaxSessionPageSize
	}
	return limit
}

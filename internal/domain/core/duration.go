package core

import (
	"fmt"
	"time"
)

// FormatSpan renders the span between two dates using 365-day years and
// 30-day months, dropping leading zero units. Reversed spans render as "0 days".
func FormatSpan(from, to time.Time) string {
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		days = 0
	}
	years := days / 365
	months := (days % 365) / 30
	rem := (days % 365) % 30

	switch {
	case years > 0:
		return fmt.Sprintf("%d years %d months %d days", years, months, rem)
	case months > 0:
		return fmt.Sprintf("%d months %d days", months, rem)
	default:
		return fmt.Sprintf("%d days", rem)
	}
}

// LengthOfService is empty when no joining date is known.
func LengthOfService(joining *time.Time, now time.Time) string {
	if joining == nil || joining.IsZero() {
		return ""
	}
	return FormatSpan(*joining, now)
}

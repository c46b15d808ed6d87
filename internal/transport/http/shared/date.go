package shared

import "time"

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339 and truncates to a UTC calendar
// date. Blank input yields the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	y, m, d := parsed.In(time.UTC).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

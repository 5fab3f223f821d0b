package domain

import "time"

// DateLayout is the calendar format the racing API expects.
const DateLayout = "2006/01/02"

// Today returns today's date in the API format.
func Today() string {
	return time.Now().Format(DateLayout)
}

// Yesterday returns yesterday's date in the API format.
func Yesterday() string {
	return time.Now().AddDate(0, 0, -1).Format(DateLayout)
}

// ValidDate checks a CLI-supplied date override.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

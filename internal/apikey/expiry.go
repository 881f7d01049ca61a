package apikey

import (
	"strconv"
	"strings"
	"time"
)

// Expiry units: H hours, D days, M months of 30 days, Y years of 365 days.
const (
	hour  = time.Hour
	day   = 24 * hour
	month = 30 * day
	year  = 365 * day
)

// ParseExpiry parses an expiry option of the form `<n><H|D|M|Y>`, e.g. "1H",
// "30D", "1Y". n must be a positive integer.
func ParseExpiry(option string) (time.Duration, error) {
	option = strings.ToUpper(strings.TrimSpace(option))
	if len(option) < 2 {
		return 0, ErrInvalidExpiry
	}
	n, err := strconv.Atoi(option[:len(option)-1])
	if err != nil || n <= 0 {
		return 0, ErrInvalidExpiry
	}
	var unit time.Duration
	switch option[len(option)-1] {
	case 'H':
		unit = hour
	case 'D':
		unit = day
	case 'M':
		unit = month
	case 'Y':
		unit = year
	default:
		return 0, ErrInvalidExpiry
	}
	return time.Duration(n) * unit, nil
}

package domain

import (
	"regexp"
	"strconv"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9.]`)

// ParseNumber extracts a number from loosely formatted sheet input such as
// "43%", "1,500円" or "12 years". Everything but digits and dots is dropped.
func ParseNumber(s string) (float64, bool) {
	cleaned := nonNumericRegex.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

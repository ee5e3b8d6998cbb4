// Package schedule converts frequency tokens into month intervals and
// enumerates payment dates between a start and a maturity date.
package schedule

import (
	"strconv"
	"strings"

	"SwapDesk/internal/trade"
)

// DefaultMonths is the quarterly default applied when a leg carries no
// schedule specifier.
const DefaultMonths = 3

// Resolve parses a schedule specifier into a positive month interval.
// Recognized: "Monthly", "Quarterly", "Semi-annually"/"Semiannually"/
// "Half-yearly", "Annually"/"Yearly", and "<N>M" (case-insensitive). An empty
// specifier resolves to the quarterly default. Anything else fails with
// *trade.InvalidScheduleError.
func Resolve(specifier string) (int, error) {
	s := strings.TrimSpace(specifier)
	if s == "" {
		return DefaultMonths, nil
	}

	switch strings.ToLower(s) {
	case "monthly":
		return 1, nil
	case "quarterly":
		return 3, nil
	case "semi-annually", "semiannually", "half-yearly":
		return 6, nil
	case "annually", "yearly":
		return 12, nil
	}

	// "<N>M" token. The interval must be a positive integer; "0M" would
	// enumerate forever.
	if strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m") {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err == nil && n > 0 {
			return n, nil
		}
	}

	return 0, &trade.InvalidScheduleError{Specifier: specifier}
}

// EnumerateDates walks from start in monthsInterval steps and collects every
// date that does not exceed maturity. The start date itself is never included;
// the result is empty when the first increment already passes maturity.
func EnumerateDates(start, maturity trade.Date, monthsInterval int) []trade.Date {
	var dates []trade.Date

	current := start.AddMonths(monthsInterval)
	for !current.After(maturity.Time) {
		dates = append(dates, current)
		current = current.AddMonths(monthsInterval)
	}

	return dates
}

// FinalDate returns the last enumerated date, or the zero Date when the
// schedule yields no payments.
func FinalDate(start, maturity trade.Date, monthsInterval int) (trade.Date, bool) {
	dates := EnumerateDates(start, maturity, monthsInterval)
	if len(dates) == 0 {
		return trade.Date{}, false
	}
	return dates[len(dates)-1], true
}

package dataset

import "github.com/dustin/go-humanize"

// FareUnavailable is shown instead of a fare of 0
const FareUnavailable = "요금 미제공"

// FormatCharge renders a fare as "59,800원". 0 and negative values mean
// the fare is unknown.
func FormatCharge(charge int64) string {
	if charge <= 0 {
		return FareUnavailable
	}
	return humanize.Comma(charge) + "원"
}

// ValidMinCharge returns the lowest non-zero fare, or 0 if there is none
func ValidMinCharge(schedules []Schedule) int64 {
	var min int64
	for _, s := range schedules {
		if s.Charge > 0 && (min == 0 || s.Charge < min) {
			min = s.Charge
		}
	}
	return min
}

// ValidMaxCharge returns the highest non-zero fare, or 0 if there is none
func ValidMaxCharge(schedules []Schedule) int64 {
	var max int64
	for _, s := range schedules {
		if s.Charge > max {
			max = s.Charge
		}
	}
	return max
}

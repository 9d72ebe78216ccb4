package pricing

import (
	"math"
	"time"
)

// DayCount selects how elapsed time to expiry converts into model years.
type DayCount string

const (
	// DayCountCalendar uses exact elapsed seconds over a 365-day year.
	DayCountCalendar DayCount = "calendar"
	// DayCountTrading uses a 252-trading-day year with an intraday
	// adjustment during market hours.
	DayCountTrading DayCount = "trading"
)

const (
	secondsPerYear  = 365.0 * 24.0 * 3600.0
	tradingDaysYear = 252.0
)

// YearsToExpiry converts the span from now to expiry into model years under
// the given day-count mode. The result never falls below MinTimeToExpiry.
func YearsToExpiry(now, expiry time.Time, mode DayCount) float64 {
	if !expiry.After(now) {
		return MinTimeToExpiry
	}

	calendarYears := expiry.Sub(now).Seconds() / secondsPerYear
	if mode != DayCountTrading {
		return math.Max(calendarYears, MinTimeToExpiry)
	}

	// Trading mode: whole trading days remaining, minus the fraction of
	// today's session already elapsed when inside market hours (9:30-16:00).
	calendarDays := calendarYears * 365.0
	tradingDays := math.Ceil(calendarDays * tradingDaysYear / 365.0)
	tradingDays -= sessionElapsedFraction(now)
	if tradingDays < 0 {
		tradingDays = 0
	}
	return math.Max(tradingDays/tradingDaysYear, MinTimeToExpiry)
}

// sessionElapsedFraction returns how much of the 9:30-16:00 session has
// elapsed at t, in [0,1). Outside market hours it returns 0.
func sessionElapsedFraction(t time.Time) float64 {
	const sessionMinutes = 6.5 * 60

	minuteOfDay := float64(t.Hour()*60 + t.Minute())
	openMinute := 9.0*60 + 30
	closeMinute := 16.0 * 60
	if minuteOfDay <= openMinute || minuteOfDay >= closeMinute {
		return 0
	}
	return (minuteOfDay - openMinute) / sessionMinutes
}

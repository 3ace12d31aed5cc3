// Package worktime converts Activity Work units into time and accounts for
// the working hours available in a month.
//
// A working day is the fixed 08:00–17:00 shift less a 30 minute lunch. The
// shift is not configurable per job or per technician.
package worktime

import (
	"math"
	"time"
)

const (
	// MinutesPerAW is the fixed labour time of one AW.
	MinutesPerAW = 5

	shiftStartHour = 8
	shiftEndHour   = 17
	lunchMinutes   = 30

	// HoursPerWorkingDay is 8.5.
	HoursPerWorkingDay = float64(shiftEndHour-shiftStartHour) - lunchMinutes/60.0
)

// AWsToMinutes converts AWs to minutes. Negative input yields negative minutes.
func AWsToMinutes(aws float64) float64 {
	return aws * MinutesPerAW
}

// MinutesToHours converts minutes to fractional hours.
func MinutesToHours(minutes float64) float64 {
	return minutes / 60
}

// SoldHours is the labour time represented by totalAWs, in hours.
func SoldHours(totalAWs float64) float64 {
	return MinutesToHours(AWsToMinutes(totalAWs))
}

// WorkingDays counts Monday–Friday days of month/year up to and including
// asOf. A month wholly before asOf counts every weekday; a month after asOf
// counts none.
func WorkingDays(month time.Month, year int, asOf time.Time) int {
	loc := asOf.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	asOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, loc)
	if asOfDay.Before(first) {
		return 0
	}

	last := first.AddDate(0, 1, -1)
	if asOfDay.Before(last) {
		last = asOfDay
	}

	days := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d) {
			days++
		}
	}
	return days
}

// IsWorkingDay reports whether t falls on Monday through Friday.
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AvailableWorkingHours is the number of shift hours in month/year up to asOf.
func AvailableWorkingHours(month time.Month, year int, asOf time.Time) float64 {
	return float64(WorkingDays(month, year, asOf)) * HoursPerWorkingDay
}

// AvailableHoursAfterAbsence deducts absence hours from the available hours,
// never going below zero.
func AvailableHoursAfterAbsence(month time.Month, year int, asOf time.Time, absenceHours float64) float64 {
	available := AvailableWorkingHours(month, year, asOf)
	if absenceHours > 0 {
		available -= absenceHours
	}
	return math.Max(available, 0)
}

// EfficiencyPercentage is sold hours over available hours as a rounded
// percentage. It is 0 when no hours are available.
func EfficiencyPercentage(totalAWs float64, month time.Month, year int, asOf time.Time) int {
	return percentage(SoldHours(totalAWs), AvailableWorkingHours(month, year, asOf))
}

// EfficiencyWithAbsence is EfficiencyPercentage measured against
// absence-adjusted hours.
func EfficiencyWithAbsence(totalAWs float64, month time.Month, year int, asOf time.Time, absenceHours float64) int {
	return percentage(SoldHours(totalAWs), AvailableHoursAfterAbsence(month, year, asOf, absenceHours))
}

func percentage(part, whole float64) int {
	if whole <= 0 || math.IsNaN(part) || math.IsInf(part, 0) {
		return 0
	}
	return int(math.Round(part / whole * 100))
}

// ShouldResetAbsence reports whether absence hours recorded against
// month/year are stale at now. An unset month (0) is always stale.
func ShouldResetAbsence(month time.Month, year int, now time.Time) bool {
	if month == 0 || year == 0 {
		return true
	}
	return now.Month() != month || now.Year() != year
}

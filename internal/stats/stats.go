// Package stats aggregates job collections into period totals, utilization
// and monthly efficiency figures. Every function is a pure read of the
// slice it is given.
package stats

import (
	"math"
	"time"

	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/worktime"
)

// Summary holds totals for the jobs of one period.
type Summary struct {
	Period           Period  `json:"period"`
	TotalJobs        int     `json:"totalJobs"`
	TotalAWs         float64 `json:"totalAWs"`
	TotalMinutes     float64 `json:"totalMinutes"`
	TotalHours       float64 `json:"totalHours"`
	AverageAWsPerJob float64 `json:"averageAWsPerJob"`
	TargetHours      float64 `json:"targetHours,omitempty"`
	// Utilization is TotalHours against TargetHours, capped at 100. It stays
	// zero when no target is supplied.
	Utilization float64 `json:"utilization"`
}

// Filter returns the jobs created within p, preserving order.
func Filter(jobs []job.Job, p Period) []job.Job {
	out := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		if p.Contains(j.DateCreated) {
			out = append(out, j)
		}
	}
	return out
}

// Summarize totals the jobs created within p. targetHours <= 0 means no target.
func Summarize(jobs []job.Job, p Period, targetHours float64) Summary {
	s := totals(Filter(jobs, p))
	s.Period = p
	if targetHours > 0 {
		s.TargetHours = targetHours
		s.Utilization = math.Min(s.TotalHours/targetHours*100, 100)
	}
	return s
}

func totals(jobs []job.Job) Summary {
	var s Summary
	s.TotalJobs = len(jobs)
	s.TotalAWs = job.TotalAWs(jobs)
	s.TotalMinutes = worktime.AWsToMinutes(s.TotalAWs)
	s.TotalHours = worktime.MinutesToHours(s.TotalMinutes)
	if s.TotalJobs > 0 {
		s.AverageAWsPerJob = s.TotalAWs / float64(s.TotalJobs)
	}
	return s
}

// VHCBreakdown counts jobs per vehicle health check tag.
func VHCBreakdown(jobs []job.Job) map[job.VHCStatus]int {
	counts := make(map[job.VHCStatus]int, 4)
	for _, j := range jobs {
		counts[j.VHCStatus]++
	}
	return counts
}

// MonthlyReport combines a month's totals with efficiency figures.
type MonthlyReport struct {
	Summary
	Month                 time.Month `json:"month"`
	Year                  int        `json:"year"`
	WorkingDays           int        `json:"workingDays"`
	AvailableHours        float64    `json:"availableHours"`
	AbsenceHours          float64    `json:"absenceHours"`
	AvailableAfterAbsence float64    `json:"availableAfterAbsence"`
	SoldHours             float64    `json:"soldHours"`
	Efficiency            int        `json:"efficiency"`
	EfficiencyWithAbsence int        `json:"efficiencyWithAbsence"`
	RemainingTargetHours  float64    `json:"remainingTargetHours"`
}

// Monthly builds the report for month/year as seen at asOf.
func Monthly(jobs []job.Job, month time.Month, year int, asOf time.Time, targetHours, absenceHours float64) MonthlyReport {
	p := Month(time.Date(year, month, 1, 0, 0, 0, 0, asOf.Location()))
	s := Summarize(jobs, p, targetHours)

	r := MonthlyReport{
		Summary:               s,
		Month:                 month,
		Year:                  year,
		WorkingDays:           worktime.WorkingDays(month, year, asOf),
		AvailableHours:        worktime.AvailableWorkingHours(month, year, asOf),
		AbsenceHours:          absenceHours,
		AvailableAfterAbsence: worktime.AvailableHoursAfterAbsence(month, year, asOf, absenceHours),
		SoldHours:             worktime.SoldHours(s.TotalAWs),
		Efficiency:            worktime.EfficiencyPercentage(s.TotalAWs, month, year, asOf),
		EfficiencyWithAbsence: worktime.EfficiencyWithAbsence(s.TotalAWs, month, year, asOf, absenceHours),
	}
	if targetHours > 0 {
		r.RemainingTargetHours = math.Max(targetHours-s.TotalHours, 0)
	}
	return r
}

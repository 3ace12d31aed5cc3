package job

import (
	"strings"
	"time"

	"github.com/rpggio/techtrace/internal/worktime"
)

// VHCStatus is the vehicle health check tag attached to a job.
type VHCStatus string

const (
	VHCNotSet VHCStatus = ""
	VHCGreen  VHCStatus = "green"
	VHCAmber  VHCStatus = "amber"
	VHCRed    VHCStatus = "red"
)

// ParseVHCStatus maps a stored or user-supplied tag onto a VHCStatus.
// "orange" is accepted as an alias for amber.
func ParseVHCStatus(s string) (VHCStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "not-set", "not_set", "none":
		return VHCNotSet, true
	case "green":
		return VHCGreen, true
	case "amber", "orange":
		return VHCAmber, true
	case "red":
		return VHCRed, true
	default:
		return VHCNotSet, false
	}
}

// Job is a single technician work entry.
type Job struct {
	ID                  string     `json:"id"`
	WIPNumber           string     `json:"wipNumber"`
	VehicleRegistration string     `json:"vehicleRegistration"`
	AWValue             float64    `json:"awValue"`
	Notes               string     `json:"notes,omitempty"`
	JobDescription      string     `json:"jobDescription,omitempty"`
	DateCreated         time.Time  `json:"dateCreated"`
	DateModified        *time.Time `json:"dateModified,omitempty"`
	TimeInMinutes       float64    `json:"timeInMinutes"`
	VHCStatus           VHCStatus  `json:"vhcStatus,omitempty"`
}

// EffectiveTime is the instant used to order two versions of the same job.
// Records written before dateModified existed fall back to dateCreated.
func (j Job) EffectiveTime() time.Time {
	if j.DateModified != nil && !j.DateModified.IsZero() {
		return *j.DateModified
	}
	return j.DateCreated
}

// Recompute restores the minutes invariant from the AW value.
func (j *Job) Recompute() {
	j.TimeInMinutes = worktime.AWsToMinutes(j.AWValue)
}

// Clone returns a copy that shares no pointers with j.
func (j Job) Clone() Job {
	out := j
	if j.DateModified != nil {
		modified := *j.DateModified
		out.DateModified = &modified
	}
	return out
}

// NormalizeRegistration upper-cases a registration and strips everything
// that is not a letter or digit.
func NormalizeRegistration(reg string) string {
	var b strings.Builder
	b.Grow(len(reg))
	for _, r := range strings.ToUpper(reg) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TotalAWs sums the AW values of jobs.
func TotalAWs(jobs []Job) float64 {
	var total float64
	for _, j := range jobs {
		total += j.AWValue
	}
	return total
}

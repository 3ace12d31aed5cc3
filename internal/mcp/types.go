package mcp

import (
	"time"

	"github.com/rpggio/techtrace/internal/backup"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/stats"
)

type CreateJobParams struct {
	WIPNumber           string  `json:"wip_number" jsonschema:"workshop job (WIP) number"`
	VehicleRegistration string  `json:"vehicle_registration,omitempty" jsonschema:"vehicle registration, normalized to upper case"`
	AWValue             float64 `json:"aw_value" jsonschema:"labour units; 1 AW is 5 minutes"`
	Notes               string  `json:"notes,omitempty"`
	JobDescription      string  `json:"job_description,omitempty"`
	VHCStatus           string  `json:"vhc_status,omitempty" jsonschema:"green, amber, red or empty"`
	DateCreated         string  `json:"date_created,omitempty" jsonschema:"RFC 3339 timestamp; defaults to now"`
}

type UpdateJobParams struct {
	ID                  string   `json:"id"`
	WIPNumber           *string  `json:"wip_number,omitempty"`
	VehicleRegistration *string  `json:"vehicle_registration,omitempty"`
	AWValue             *float64 `json:"aw_value,omitempty"`
	Notes               *string  `json:"notes,omitempty"`
	JobDescription      *string  `json:"job_description,omitempty"`
	VHCStatus           *string  `json:"vhc_status,omitempty"`
}

type JobIDParams struct {
	ID string `json:"id"`
}

type ListJobsParams struct {
	From      string `json:"from,omitempty" jsonschema:"RFC 3339 or YYYY-MM-DD lower bound on creation time"`
	To        string `json:"to,omitempty" jsonschema:"RFC 3339 or YYYY-MM-DD upper bound on creation time"`
	WIPNumber string `json:"wip_number,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type ClearJobsParams struct {
	Confirm bool `json:"confirm" jsonschema:"must be true; deletes every job"`
}

type GetStatsParams struct {
	Period string `json:"period,omitempty" jsonschema:"day, week, month or range; defaults to month"`
	Date   string `json:"date,omitempty" jsonschema:"reference date for day, week and month; defaults to today"`
	From   string `json:"from,omitempty" jsonschema:"range start"`
	To     string `json:"to,omitempty" jsonschema:"range end"`
}

type MonthlyReportParams struct {
	Month int `json:"month,omitempty" jsonschema:"1-12; defaults to the current month"`
	Year  int `json:"year,omitempty" jsonschema:"defaults to the current year"`
}

type UpdateSettingsParams struct {
	MonthlyTargetHours *float64 `json:"monthly_target_hours,omitempty"`
	Theme              *string  `json:"theme,omitempty" jsonschema:"light, dark or system"`
	BiometricEnabled   *bool    `json:"biometric_enabled,omitempty"`
	TechnicianName     *string  `json:"technician_name,omitempty"`
}

type SetAbsenceParams struct {
	Hours float64 `json:"hours" jsonschema:"absence hours for the current month"`
}

type PINParams struct {
	PIN string `json:"pin" jsonschema:"4 to 8 digits"`
}

type ExportBackupParams struct {
	TechnicianName string `json:"technician_name,omitempty"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"return the document JSON inline"`
}

type ImportSourceParams struct {
	Content  string `json:"content,omitempty" jsonschema:"backup document JSON"`
	Location string `json:"location,omitempty" jsonschema:"archive location returned by export_backup"`
}

type ApplyImportParams struct {
	Content         string `json:"content,omitempty" jsonschema:"backup document JSON"`
	Location        string `json:"location,omitempty" jsonschema:"archive location returned by export_backup"`
	ExpectedCreated *int   `json:"expected_created,omitempty" jsonschema:"created count shown by preview_import"`
	ExpectedUpdated *int   `json:"expected_updated,omitempty" jsonschema:"updated count shown by preview_import"`
	RestoreSettings bool   `json:"restore_settings,omitempty"`
}

type GetRecentActivityParams struct {
	JobID *string `json:"job_id,omitempty"`
	Type  *string `json:"type,omitempty"`
	Limit int     `json:"limit,omitempty"`
}

type JobResponse struct {
	ID                  string     `json:"id"`
	WIPNumber           string     `json:"wip_number"`
	VehicleRegistration string     `json:"vehicle_registration"`
	AWValue             float64    `json:"aw_value"`
	TimeInMinutes       float64    `json:"time_in_minutes"`
	Notes               string     `json:"notes,omitempty"`
	JobDescription      string     `json:"job_description,omitempty"`
	VHCStatus           string     `json:"vhc_status,omitempty"`
	DateCreated         time.Time  `json:"date_created"`
	DateModified        *time.Time `json:"date_modified,omitempty"`
}

func jobResponse(j job.Job) JobResponse {
	return JobResponse{
		ID:                  j.ID,
		WIPNumber:           j.WIPNumber,
		VehicleRegistration: j.VehicleRegistration,
		AWValue:             j.AWValue,
		TimeInMinutes:       j.TimeInMinutes,
		Notes:               j.Notes,
		JobDescription:      j.JobDescription,
		VHCStatus:           string(j.VHCStatus),
		DateCreated:         j.DateCreated,
		DateModified:        j.DateModified,
	}
}

type ListJobsResponse struct {
	Jobs     []JobResponse `json:"jobs"`
	Count    int           `json:"count"`
	TotalAWs float64       `json:"total_aws"`
}

type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

type StatsResponse struct {
	stats.Summary
	VHC map[job.VHCStatus]int `json:"vhc"`
}

type SettingsResponse struct {
	MonthlyTargetHours float64    `json:"monthly_target_hours"`
	AbsenceHours       float64    `json:"absence_hours"`
	AbsenceMonth       time.Month `json:"absence_month,omitempty"`
	AbsenceYear        int        `json:"absence_year,omitempty"`
	Theme              string     `json:"theme"`
	BiometricEnabled   bool       `json:"biometric_enabled"`
	TechnicianName     string     `json:"technician_name,omitempty"`
	HasPIN             bool       `json:"has_pin"`
	IsAuthenticated    bool       `json:"is_authenticated"`
	UpdatedAt          time.Time  `json:"updated_at,omitzero"`
}

func settingsResponse(s *settings.Settings) SettingsResponse {
	return SettingsResponse{
		MonthlyTargetHours: s.MonthlyTargetHours,
		AbsenceHours:       s.AbsenceHours,
		AbsenceMonth:       s.AbsenceMonth,
		AbsenceYear:        s.AbsenceYear,
		Theme:              string(s.Theme),
		BiometricEnabled:   s.BiometricEnabled,
		TechnicianName:     s.TechnicianName,
		HasPIN:             s.HasPIN(),
		IsAuthenticated:    s.IsAuthenticated,
		UpdatedAt:          s.UpdatedAt,
	}
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ExportBackupResponse struct {
	Location      string          `json:"location,omitempty"`
	Timestamp     string          `json:"timestamp"`
	BackupVersion int             `json:"backup_version"`
	Metadata      backup.Metadata `json:"metadata"`
	Content       string          `json:"content,omitempty"`
}

type ImportPreviewResponse struct {
	BackupVersion  int                           `json:"backup_version"`
	Timestamp      string                        `json:"timestamp"`
	TechnicianName string                        `json:"technician_name,omitempty"`
	Metadata       backup.Metadata               `json:"metadata"`
	Counts         backup.Counts                 `json:"counts"`
	Created        []string                      `json:"created"`
	Updated        []string                      `json:"updated"`
	Skipped        []backup.MalformedRecordError `json:"skipped"`
	Applied        bool                          `json:"applied"`
}

func importPreviewResponse(p *backup.Preview, applied bool) ImportPreviewResponse {
	return ImportPreviewResponse{
		BackupVersion:  p.BackupVersion,
		Timestamp:      p.Timestamp,
		TechnicianName: p.TechnicianName,
		Metadata:       p.Metadata,
		Counts:         p.Counts,
		Created:        jobIDs(p.Result.Created),
		Updated:        jobIDs(p.Result.Updated),
		Skipped:        p.Result.Skipped,
		Applied:        applied,
	}
}

func jobIDs(jobs []job.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	SessionID string                `json:"session_id,omitempty"`
	JobID     *string               `json:"job_id,omitempty"`
	Summary   string                `json:"summary"`
	Details   string                `json:"details,omitempty"`
}

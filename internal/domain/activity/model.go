package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeJobCreated      ActivityType = "job_created"
	TypeJobUpdated      ActivityType = "job_updated"
	TypeJobDeleted      ActivityType = "job_deleted"
	TypeJobsCleared     ActivityType = "jobs_cleared"
	TypeBackupExported  ActivityType = "backup_exported"
	TypeImportPreviewed ActivityType = "import_previewed"
	TypeImportApplied   ActivityType = "import_applied"
	TypeSettingsUpdated ActivityType = "settings_updated"
	TypeAbsenceRecorded ActivityType = "absence_recorded"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	SessionID    *string      `json:"session_id,omitempty"`
	JobID        *string      `json:"job_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}

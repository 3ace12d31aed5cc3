// Package backup builds, validates and reconciles versioned backup
// documents of a technician's jobs and settings.
package backup

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
)

const (
	// FormatVersion is written to the top-level version field.
	FormatVersion = "1.0"
	// CurrentBackupVersion is the newest document layout.
	CurrentBackupVersion = 2
	// LegacyBackupVersion is implied when backupVersion is absent.
	LegacyBackupVersion = 1

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Document is the portable backup envelope.
type Document struct {
	Version        Version          `json:"version"`
	BackupVersion  *int             `json:"backupVersion,omitempty"`
	Timestamp      string           `json:"timestamp"`
	CreatedAt      *string          `json:"createdAt,omitempty"`
	TechnicianName string           `json:"technicianName,omitempty"`
	Jobs           []job.Job        `json:"jobs"`
	Settings       SettingsSnapshot `json:"settings"`
	Metadata       Metadata         `json:"metadata"`
}

// Metadata holds summary fields computed when the document was built.
type Metadata struct {
	TotalJobs  int     `json:"totalJobs"`
	TotalAWs   float64 `json:"totalAWs"`
	ExportDate string  `json:"exportDate"`
	AppVersion string  `json:"appVersion"`
	Platform   string  `json:"platform,omitempty"`
}

// SettingsSnapshot is the portable subset of settings. PIN hashes and
// cloud credentials never leave the device.
type SettingsSnapshot struct {
	IsAuthenticated    bool       `json:"isAuthenticated"`
	MonthlyTargetHours float64    `json:"monthlyTargetHours"`
	AbsenceHours       float64    `json:"absenceHours"`
	AbsenceMonth       time.Month `json:"absenceMonth,omitempty"`
	AbsenceYear        int        `json:"absenceYear,omitempty"`
	Theme              string     `json:"theme,omitempty"`
	BiometricEnabled   bool       `json:"biometricEnabled"`
	TechnicianName     string     `json:"technicianName,omitempty"`
}

// SnapshotOf copies the portable fields of s. The authenticated flag is
// always cleared.
func SnapshotOf(s settings.Settings) SettingsSnapshot {
	return SettingsSnapshot{
		IsAuthenticated:    false,
		MonthlyTargetHours: s.MonthlyTargetHours,
		AbsenceHours:       s.AbsenceHours,
		AbsenceMonth:       s.AbsenceMonth,
		AbsenceYear:        s.AbsenceYear,
		Theme:              string(s.Theme),
		BiometricEnabled:   s.BiometricEnabled,
		TechnicianName:     s.TechnicianName,
	}
}

// Settings converts the snapshot back into settings, unauthenticated.
func (s SettingsSnapshot) Settings() settings.Settings {
	return settings.Settings{
		IsAuthenticated:    false,
		MonthlyTargetHours: s.MonthlyTargetHours,
		AbsenceHours:       s.AbsenceHours,
		AbsenceMonth:       s.AbsenceMonth,
		AbsenceYear:        s.AbsenceYear,
		Theme:              settings.Theme(s.Theme),
		BiometricEnabled:   s.BiometricEnabled,
		TechnicianName:     s.TechnicianName,
	}
}

// EffectiveBackupVersion applies the read default for documents written
// before backupVersion existed.
func (d Document) EffectiveBackupVersion() int {
	if d.BackupVersion == nil {
		return LegacyBackupVersion
	}
	return *d.BackupVersion
}

// Marshal renders the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Version accepts both "1.0" and 1 on read and always writes a string.
type Version string

func (v *Version) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Version(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Version(n.String())
	return nil
}

package backup

import (
	"time"

	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
)

// Builder assembles backup documents. Output depends only on the inputs
// and the injected clock.
type Builder struct {
	appVersion string
	platform   string
	now        func() time.Time
}

// NewBuilder creates a builder. A nil clock means time.Now.
func NewBuilder(appVersion, platform string, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{appVersion: appVersion, platform: platform, now: now}
}

// Build snapshots jobs and settings into a document. technicianName
// overrides the name stored in settings when non-empty.
func (b *Builder) Build(jobs []job.Job, s settings.Settings, technicianName string) Document {
	copied := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		c := j.Clone()
		c.Recompute()
		copied = append(copied, c)
	}

	ts := b.now().UTC().Format(timestampLayout)
	createdAt := ts
	version := CurrentBackupVersion

	if technicianName == "" {
		technicianName = s.TechnicianName
	}

	return Document{
		Version:        FormatVersion,
		BackupVersion:  &version,
		Timestamp:      ts,
		CreatedAt:      &createdAt,
		TechnicianName: technicianName,
		Jobs:           copied,
		Settings:       SnapshotOf(s),
		Metadata: Metadata{
			TotalJobs:  len(copied),
			TotalAWs:   job.TotalAWs(copied),
			ExportDate: ts,
			AppVersion: b.appVersion,
			Platform:   b.platform,
		},
	}
}

// FileName is the conventional archive name for a document. It carries the
// timestamp to the millisecond.
func FileName(d Document) string {
	ts, err := time.Parse(timestampLayout, d.Timestamp)
	if err != nil {
		return "techtrace-backup.json"
	}
	return "techtrace-backup-" + ts.UTC().Format("2006-01-02-150405.000") + ".json"
}

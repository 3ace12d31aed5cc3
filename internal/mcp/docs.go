package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `techtrace records a vehicle technician's completed jobs and reports on them.

Core concepts:
- Job: one piece of work, identified by WIP number, with an AW value (labour units). 1 AW = 5 minutes.
- Settings: monthly target hours, absence hours for the current month, theme, technician name, PIN.
- Backup: a JSON document holding every job plus settings. Backups merge by job id; the newer dateModified wins.

Default workflow:
1) Log work with create_job; correct it with update_job.
2) Report with get_stats (day/week/month/range) or get_monthly_report.
3) Before risky changes call export_backup.
4) To restore or merge a backup: preview_import first, show the counts, then apply_import with those counts.
   apply_import refuses with PREVIEW_MISMATCH if the data changed since the preview.

Docs:
- techtrace://docs/index
- techtrace://docs/worktime
- techtrace://docs/backups
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "techtrace://docs/index",
		Name:        "docs_index",
		Title:       "techtrace docs index",
		Description: "Entry point: what the tools do and which doc to read.",
		Content: `# techtrace: Agent Docs Index

## Tools at a glance

| Area     | Tools |
|----------|-------|
| Jobs     | create_job, update_job, get_job, list_jobs, delete_job, clear_jobs |
| Reports  | get_stats, get_monthly_report |
| Settings | get_settings, update_settings, set_absence, set_pin, authenticate, lock |
| Backup   | export_backup, preview_import, apply_import |
| Activity | get_recent_activity |

## Read next

- techtrace://docs/worktime for how AWs turn into hours, utilization and working days.
- techtrace://docs/backups for the document format and merge rules.

## Errors

Tool errors carry a code and a recovery hint. Common codes:
JOB_NOT_FOUND, INVALID_INPUT, INVALID_BACKUP, PREVIEW_MISMATCH, ARCHIVE_NOT_CONFIGURED, PIN_MISMATCH.
`,
	},
	{
		URI:         "techtrace://docs/worktime",
		Name:        "docs_worktime",
		Title:       "Worktime arithmetic",
		Description: "AW to time conversion, utilization, and working-day rules.",
		Content: `# Worktime

- 1 AW is 5 minutes. 12 AWs make an hour.
- Job time (time_in_minutes) is always recomputed from aw_value.
- A working day is Monday to Friday, 08:00 to 17:00 less a 30 minute lunch (8.5 hours).
- Working days in a month are counted up to today; future months count none.
- Efficiency is sold hours over available working hours, as a rounded percentage. It is 0 when no hours are available.
- Efficiency with absence deducts the month's absence hours from the available hours first.
- Utilization in get_stats is hours against the monthly target, capped at 100. Only month periods carry a target.
- Absence hours belong to the month they were recorded in and reset when the month changes.
- Weeks run Sunday to Saturday.
`,
	},
	{
		URI:         "techtrace://docs/backups",
		Name:        "docs_backups",
		Title:       "Backups and merging",
		Description: "Backup document format, validation, and merge classification.",
		Content: `# Backups

## Document

A backup is a JSON object with version "1.0", backupVersion 2, an ISO 8601 timestamp,
jobs, settings and metadata (totalJobs, totalAWs, exportDate, appVersion).
Documents without backupVersion are treated as version 1 and still import.
The PIN is never exported. isAuthenticated is always written and restored as false.

## Validation

A document must be an object with a jobs array, a settings object and a metadata object.
Anything else is rejected with INVALID_BACKUP and nothing is changed.

## Merge

Each incoming job is matched by id:
- unknown id: created
- newer dateModified (or dateCreated when never modified): updated
- same or older: unchanged, the existing job is kept
- missing id, bad dates, negative AW, duplicate id: skipped and reported

Merged order keeps existing jobs in place and appends created jobs.
Importing the same backup twice changes nothing the second time.

## Safe import

1) preview_import with content or location. Nothing is written.
2) Show created/updated/skipped counts to the user.
3) apply_import with expected_created and expected_updated from the preview.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

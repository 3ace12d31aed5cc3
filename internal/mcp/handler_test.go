package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/techtrace/internal/backup"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/stats"
	"github.com/stretchr/testify/require"
)

type jobStub struct {
	createFn func(context.Context, string, job.CreateRequest) (*job.Job, error)
	updateFn func(context.Context, string, job.UpdateRequest) (*job.Job, error)
	getFn    func(context.Context, string, string) (*job.Job, error)
	listFn   func(context.Context, string, job.ListOptions) ([]job.Job, error)
	allFn    func(context.Context, string) ([]job.Job, error)
	deleteFn func(context.Context, string, string) error
	clearFn  func(context.Context, string) (int64, error)
}

func (s jobStub) Create(ctx context.Context, tenantID string, req job.CreateRequest) (*job.Job, error) {
	return s.createFn(ctx, tenantID, req)
}
func (s jobStub) Update(ctx context.Context, tenantID string, req job.UpdateRequest) (*job.Job, error) {
	return s.updateFn(ctx, tenantID, req)
}
func (s jobStub) Get(ctx context.Context, tenantID, id string) (*job.Job, error) {
	return s.getFn(ctx, tenantID, id)
}
func (s jobStub) List(ctx context.Context, tenantID string, opts job.ListOptions) ([]job.Job, error) {
	return s.listFn(ctx, tenantID, opts)
}
func (s jobStub) All(ctx context.Context, tenantID string) ([]job.Job, error) {
	return s.allFn(ctx, tenantID)
}
func (s jobStub) Delete(ctx context.Context, tenantID, id string) error {
	return s.deleteFn(ctx, tenantID, id)
}
func (s jobStub) Clear(ctx context.Context, tenantID string) (int64, error) {
	return s.clearFn(ctx, tenantID)
}

type settingsStub struct {
	current settings.Settings
	updated *settings.UpdateRequest
	pin     string
	err     error
}

func (s *settingsStub) Get(context.Context, string) (*settings.Settings, error) {
	st := s.current
	return &st, s.err
}
func (s *settingsStub) Update(_ context.Context, _ string, req settings.UpdateRequest) (*settings.Settings, error) {
	s.updated = &req
	if req.MonthlyTargetHours != nil {
		s.current.MonthlyTargetHours = *req.MonthlyTargetHours
	}
	st := s.current
	return &st, s.err
}
func (s *settingsStub) SetAbsence(_ context.Context, _ string, hours float64) (*settings.Settings, error) {
	s.current.AbsenceHours = hours
	st := s.current
	return &st, s.err
}
func (s *settingsStub) SetPIN(_ context.Context, _ string, pin string) error {
	s.pin = pin
	return s.err
}
func (s *settingsStub) Authenticate(_ context.Context, _ string, pin string) error {
	if pin != s.pin {
		return settings.ErrPINMismatch
	}
	return nil
}
func (s *settingsStub) Lock(context.Context, string) error { return s.err }

type backupStub struct {
	exportFn  func(context.Context, string, backup.ExportRequest) (*backup.ExportResult, error)
	previewFn func(context.Context, string, []byte) (*backup.Preview, error)
	applyFn   func(context.Context, string, []byte, backup.ApplyOptions) (*backup.Preview, error)
	fetchFn   func(context.Context, string) ([]byte, error)
}

func (b backupStub) Export(ctx context.Context, tenantID string, req backup.ExportRequest) (*backup.ExportResult, error) {
	return b.exportFn(ctx, tenantID, req)
}
func (b backupStub) Preview(ctx context.Context, tenantID string, data []byte) (*backup.Preview, error) {
	return b.previewFn(ctx, tenantID, data)
}
func (b backupStub) Apply(ctx context.Context, tenantID string, data []byte, opts backup.ApplyOptions) (*backup.Preview, error) {
	return b.applyFn(ctx, tenantID, data, opts)
}
func (b backupStub) Fetch(ctx context.Context, location string) ([]byte, error) {
	return b.fetchFn(ctx, location)
}

type activityStub struct {
	listFn func(context.Context, string, activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

func (a activityStub) GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return a.listFn(ctx, tenantID, opts)
}

var handlerNow = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

func sampleJobs() []job.Job {
	mk := func(id string, aws float64, created time.Time, vhc job.VHCStatus) job.Job {
		j := job.Job{ID: id, WIPNumber: "W" + id, AWValue: aws, DateCreated: created, VHCStatus: vhc}
		j.Recompute()
		return j
	}
	return []job.Job{
		mk("1", 12, time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC), job.VHCGreen),
		mk("2", 24, time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC), job.VHCRed),
		mk("3", 6, time.Date(2024, time.February, 28, 9, 0, 0, 0, time.UTC), job.VHCNotSet),
	}
}

func newTestHandler(jobs jobStub, st *settingsStub, backups backupStub, act activityStub) *Handler {
	return NewHandler(jobs, st, backups, act).WithClock(func() time.Time { return handlerNow })
}

func TestHandler_JobCommands(t *testing.T) {
	ctx := context.Background()
	var gotCreate job.CreateRequest
	var gotList job.ListOptions
	var gotSession *string

	h := newTestHandler(jobStub{
		createFn: func(ctx context.Context, tenantID string, req job.CreateRequest) (*job.Job, error) {
			require.Equal(t, "tech1", tenantID)
			gotCreate = req
			gotSession = activity.SessionIDFromContext(ctx)
			j := job.Job{ID: "j1", WIPNumber: req.WIPNumber, AWValue: req.AWValue, DateCreated: *req.DateCreated}
			j.Recompute()
			return &j, nil
		},
		listFn: func(_ context.Context, _ string, opts job.ListOptions) ([]job.Job, error) {
			gotList = opts
			return sampleJobs()[:2], nil
		},
		deleteFn: func(_ context.Context, _ string, id string) error {
			if id != "j1" {
				return job.ErrJobNotFound
			}
			return nil
		},
	}, &settingsStub{}, backupStub{}, activityStub{})

	res, err := h.Handle(ctx, "tech1", "sess-1", "create_job", mustJSON(t, CreateJobParams{
		WIPNumber:   "12345",
		AWValue:     12,
		DateCreated: "2024-03-13",
	}))
	require.NoError(t, err)
	created := res.(JobResponse)
	require.Equal(t, "j1", created.ID)
	require.Equal(t, float64(60), created.TimeInMinutes)
	require.Equal(t, time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC), *gotCreate.DateCreated)
	require.NotNil(t, gotSession)
	require.Equal(t, "sess-1", *gotSession)

	res, err = h.Handle(ctx, "tech1", "", "list_jobs", mustJSON(t, ListJobsParams{From: "2024-03-01", To: "2024-03-31", Limit: 10}))
	require.NoError(t, err)
	list := res.(ListJobsResponse)
	require.Equal(t, 2, list.Count)
	require.Equal(t, float64(36), list.TotalAWs)
	require.Equal(t, 10, gotList.Limit)
	require.Equal(t, time.Date(2024, time.March, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), *gotList.To)

	res, err = h.Handle(ctx, "tech1", "", "delete_job", mustJSON(t, JobIDParams{ID: "j1"}))
	require.NoError(t, err)
	require.Equal(t, DeleteResponse{Deleted: 1}, res)

	_, err = h.Handle(ctx, "tech1", "", "delete_job", mustJSON(t, JobIDParams{ID: "missing"}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "JOB_NOT_FOUND", apiErr.Code)
}

func TestHandler_ClearJobsRequiresConfirm(t *testing.T) {
	cleared := false
	h := newTestHandler(jobStub{
		clearFn: func(context.Context, string) (int64, error) {
			cleared = true
			return 3, nil
		},
	}, &settingsStub{}, backupStub{}, activityStub{})

	_, err := h.Handle(context.Background(), "tech1", "", "clear_jobs", mustJSON(t, ClearJobsParams{}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)
	require.False(t, cleared)

	res, err := h.Handle(context.Background(), "tech1", "", "clear_jobs", mustJSON(t, ClearJobsParams{Confirm: true}))
	require.NoError(t, err)
	require.Equal(t, DeleteResponse{Deleted: 3}, res)
}

func TestHandler_Stats(t *testing.T) {
	ctx := context.Background()
	st := &settingsStub{current: settings.Settings{MonthlyTargetHours: 10, AbsenceHours: 8.5, AbsenceMonth: time.March, AbsenceYear: 2024}}
	h := newTestHandler(jobStub{
		allFn: func(context.Context, string) ([]job.Job, error) { return sampleJobs(), nil },
	}, st, backupStub{}, activityStub{})

	res, err := h.Handle(ctx, "tech1", "", "get_stats", mustJSON(t, GetStatsParams{Period: "month"}))
	require.NoError(t, err)
	month := res.(StatsResponse)
	require.Equal(t, 2, month.TotalJobs)
	require.Equal(t, float64(36), month.TotalAWs)
	require.Equal(t, float64(3), month.TotalHours)
	require.Equal(t, float64(30), month.Utilization)
	require.Equal(t, 1, month.VHC[job.VHCGreen])
	require.Equal(t, 1, month.VHC[job.VHCRed])

	res, err = h.Handle(ctx, "tech1", "", "get_stats", mustJSON(t, GetStatsParams{Period: "day"}))
	require.NoError(t, err)
	day := res.(StatsResponse)
	require.Equal(t, 1, day.TotalJobs)
	require.Zero(t, day.Utilization)

	res, err = h.Handle(ctx, "tech1", "", "get_stats", mustJSON(t, GetStatsParams{Period: "range", From: "2024-02-01", To: "2024-03-31"}))
	require.NoError(t, err)
	require.Equal(t, 3, res.(StatsResponse).TotalJobs)

	_, err = h.Handle(ctx, "tech1", "", "get_stats", mustJSON(t, GetStatsParams{Period: "range", From: "2024-03-31", To: "2024-03-01"}))
	require.Error(t, err)

	_, err = h.Handle(ctx, "tech1", "", "get_stats", mustJSON(t, GetStatsParams{Period: "fortnight"}))
	require.Error(t, err)

	res, err = h.Handle(ctx, "tech1", "", "get_monthly_report", nil)
	require.NoError(t, err)
	report := res.(stats.MonthlyReport)
	require.Equal(t, time.March, report.Month)
	require.Equal(t, 2024, report.Year)
	require.Equal(t, 9, report.WorkingDays)
	require.Equal(t, 8.5, report.AbsenceHours)

	// Absence recorded for March does not apply to February.
	res, err = h.Handle(ctx, "tech1", "", "get_monthly_report", mustJSON(t, MonthlyReportParams{Month: 2, Year: 2024}))
	require.NoError(t, err)
	require.Zero(t, res.(stats.MonthlyReport).AbsenceHours)

	_, err = h.Handle(ctx, "tech1", "", "get_monthly_report", mustJSON(t, MonthlyReportParams{Month: 13}))
	require.Error(t, err)
}

func TestHandler_SettingsAndPIN(t *testing.T) {
	ctx := context.Background()
	st := &settingsStub{current: settings.Defaults()}
	h := newTestHandler(jobStub{}, st, backupStub{}, activityStub{})

	target := 150.0
	res, err := h.Handle(ctx, "tech1", "", "update_settings", mustJSON(t, UpdateSettingsParams{MonthlyTargetHours: &target}))
	require.NoError(t, err)
	require.Equal(t, 150.0, res.(SettingsResponse).MonthlyTargetHours)
	require.NotNil(t, st.updated)

	res, err = h.Handle(ctx, "tech1", "", "set_absence", mustJSON(t, SetAbsenceParams{Hours: 7.5}))
	require.NoError(t, err)
	require.Equal(t, 7.5, res.(SettingsResponse).AbsenceHours)

	_, err = h.Handle(ctx, "tech1", "", "set_pin", mustJSON(t, PINParams{PIN: "1234"}))
	require.NoError(t, err)

	_, err = h.Handle(ctx, "tech1", "", "authenticate", mustJSON(t, PINParams{PIN: "9999"}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "PIN_MISMATCH", apiErr.Code)

	res, err = h.Handle(ctx, "tech1", "", "authenticate", mustJSON(t, PINParams{PIN: "1234"}))
	require.NoError(t, err)
	require.Equal(t, StatusResponse{Status: "unlocked"}, res)

	res, err = h.Handle(ctx, "tech1", "", "lock", nil)
	require.NoError(t, err)
	require.Equal(t, StatusResponse{Status: "locked"}, res)
}

func TestHandler_ExportBackup(t *testing.T) {
	doc := backup.Document{Version: backup.FormatVersion, Timestamp: "2024-03-13T10:00:00.000Z"}
	v := backup.CurrentBackupVersion
	doc.BackupVersion = &v

	location := "/backups/techtrace-backup.json"
	h := newTestHandler(jobStub{}, &settingsStub{}, backupStub{
		exportFn: func(_ context.Context, _ string, req backup.ExportRequest) (*backup.ExportResult, error) {
			require.Equal(t, "Sam", req.TechnicianName)
			return &backup.ExportResult{Document: doc, Data: []byte(`{"doc":true}`), Location: location}, nil
		},
	}, activityStub{})

	res, err := h.Handle(context.Background(), "tech1", "", "export_backup", mustJSON(t, ExportBackupParams{TechnicianName: "Sam"}))
	require.NoError(t, err)
	resp := res.(ExportBackupResponse)
	require.Equal(t, location, resp.Location)
	require.Equal(t, 2, resp.BackupVersion)
	require.Empty(t, resp.Content)

	res, err = h.Handle(context.Background(), "tech1", "", "export_backup", mustJSON(t, ExportBackupParams{TechnicianName: "Sam", IncludeContent: true}))
	require.NoError(t, err)
	require.JSONEq(t, `{"doc":true}`, res.(ExportBackupResponse).Content)
}

func TestHandler_ImportFlow(t *testing.T) {
	ctx := context.Background()
	preview := &backup.Preview{
		BackupVersion: 2,
		Counts:        backup.Counts{Created: 1, Updated: 1, Skipped: 1, Total: 3},
		Result: backup.MergeResult{
			Created: []job.Job{{ID: "new"}},
			Updated: []job.Job{{ID: "old"}},
			Skipped: []backup.MalformedRecordError{{Index: 2, Reason: "missing id"}},
		},
	}
	var gotOpts backup.ApplyOptions
	var fetched string

	h := newTestHandler(jobStub{}, &settingsStub{}, backupStub{
		previewFn: func(_ context.Context, _ string, data []byte) (*backup.Preview, error) {
			require.Equal(t, `{"jobs":[]}`, string(data))
			return preview, nil
		},
		applyFn: func(_ context.Context, _ string, _ []byte, opts backup.ApplyOptions) (*backup.Preview, error) {
			gotOpts = opts
			if opts.Expected.Created != 1 {
				return nil, backup.ErrPreviewMismatch
			}
			return preview, nil
		},
		fetchFn: func(_ context.Context, location string) ([]byte, error) {
			fetched = location
			return []byte(`{"jobs":[]}`), nil
		},
	}, activityStub{})

	res, err := h.Handle(ctx, "tech1", "", "preview_import", mustJSON(t, ImportSourceParams{Content: `{"jobs":[]}`}))
	require.NoError(t, err)
	resp := res.(ImportPreviewResponse)
	require.Equal(t, []string{"new"}, resp.Created)
	require.Equal(t, []string{"old"}, resp.Updated)
	require.Len(t, resp.Skipped, 1)
	require.False(t, resp.Applied)

	_, err = h.Handle(ctx, "tech1", "", "preview_import", mustJSON(t, ImportSourceParams{}))
	require.Error(t, err)

	// Counts from the preview are mandatory.
	_, err = h.Handle(ctx, "tech1", "", "apply_import", mustJSON(t, ApplyImportParams{Content: `{"jobs":[]}`}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	zero, one := 0, 1
	_, err = h.Handle(ctx, "tech1", "", "apply_import", mustJSON(t, ApplyImportParams{
		Location: "backup.json", ExpectedCreated: &zero, ExpectedUpdated: &one,
	}))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "PREVIEW_MISMATCH", apiErr.Code)
	require.Equal(t, "backup.json", fetched)

	res, err = h.Handle(ctx, "tech1", "", "apply_import", mustJSON(t, ApplyImportParams{
		Location: "backup.json", ExpectedCreated: &one, ExpectedUpdated: &one, RestoreSettings: true,
	}))
	require.NoError(t, err)
	require.True(t, res.(ImportPreviewResponse).Applied)
	require.True(t, gotOpts.RestoreSettings)
	require.Equal(t, 1, gotOpts.Expected.Updated)
}

func TestHandler_RecentActivity(t *testing.T) {
	jobID := "j1"
	sessionID := "s1"
	h := newTestHandler(jobStub{}, &settingsStub{}, backupStub{}, activityStub{
		listFn: func(_ context.Context, _ string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
			require.NotNil(t, opts.ActivityType)
			require.Equal(t, activity.TypeJobCreated, *opts.ActivityType)
			return []activity.ActivityEntry{{
				ActivityType: activity.TypeJobCreated,
				JobID:        &jobID,
				SessionID:    &sessionID,
				Summary:      "created job W1",
				CreatedAt:    handlerNow,
			}}, nil
		},
	})

	typ := string(activity.TypeJobCreated)
	res, err := h.Handle(context.Background(), "tech1", "", "get_recent_activity", mustJSON(t, GetRecentActivityParams{Type: &typ}))
	require.NoError(t, err)
	entries := res.([]ActivityEntryResponse)
	require.Len(t, entries, 1)
	require.Equal(t, "s1", entries[0].SessionID)
	require.Equal(t, "created job W1", entries[0].Summary)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(jobStub{
		updateFn: func(context.Context, string, job.UpdateRequest) (*job.Job, error) {
			return nil, job.ErrInvalidVHCStatus
		},
		getFn: func(context.Context, string, string) (*job.Job, error) {
			return nil, errors.New("disk on fire")
		},
	}, &settingsStub{}, backupStub{
		previewFn: func(context.Context, string, []byte) (*backup.Preview, error) {
			return nil, backup.ErrValidation
		},
	}, activityStub{})

	_, err := h.Handle(ctx, "tech1", "", "update_job", mustJSON(t, UpdateJobParams{ID: "j1"}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	_, err = h.Handle(ctx, "tech1", "", "preview_import", mustJSON(t, ImportSourceParams{Content: "{}"}))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_BACKUP", apiErr.Code)

	// Unmapped errors pass through untouched.
	_, err = h.Handle(ctx, "tech1", "", "get_job", mustJSON(t, JobIDParams{ID: "j1"}))
	require.EqualError(t, err, "disk on fire")

	_, err = h.Handle(ctx, "tech1", "", "create_job", json.RawMessage(`{"aw_value":"lots"}`))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	_, err = h.Handle(ctx, "tech1", "", "no_such_tool", nil)
	require.ErrorContains(t, err, "unknown method")
}

func TestRedact(t *testing.T) {
	out := formatPayload(map[string]any{
		"name":      "set_pin",
		"arguments": map[string]any{"pin": "1234"},
	})
	require.NotContains(t, out, "1234")
	require.Contains(t, out, "[REDACTED]")

	require.Equal(t, `{"a":1}`, formatPayload(map[string]any{"a": 1}))
}

func TestToolCatalog(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range buildToolCatalog() {
		require.False(t, seen[def.Name], def.Name)
		seen[def.Name] = true
		require.Equal(t, "object", def.InputSchema["type"], def.Name)
	}
	for _, name := range []string{
		"create_job", "update_job", "get_job", "list_jobs", "delete_job", "clear_jobs",
		"get_stats", "get_monthly_report", "get_settings", "update_settings", "set_absence",
		"set_pin", "authenticate", "lock", "export_backup", "preview_import", "apply_import",
		"get_recent_activity",
	} {
		require.True(t, seen[name], name)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

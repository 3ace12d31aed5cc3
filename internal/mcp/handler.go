package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/techtrace/internal/backup"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/metrics"
	"github.com/rpggio/techtrace/internal/stats"
)

// JobService defines job operations needed by MCP.
type JobService interface {
	Create(ctx context.Context, tenantID string, req job.CreateRequest) (*job.Job, error)
	Update(ctx context.Context, tenantID string, req job.UpdateRequest) (*job.Job, error)
	Get(ctx context.Context, tenantID, id string) (*job.Job, error)
	List(ctx context.Context, tenantID string, opts job.ListOptions) ([]job.Job, error)
	All(ctx context.Context, tenantID string) ([]job.Job, error)
	Delete(ctx context.Context, tenantID, id string) error
	Clear(ctx context.Context, tenantID string) (int64, error)
}

// SettingsService defines settings operations needed by MCP.
type SettingsService interface {
	Get(ctx context.Context, tenantID string) (*settings.Settings, error)
	Update(ctx context.Context, tenantID string, req settings.UpdateRequest) (*settings.Settings, error)
	SetAbsence(ctx context.Context, tenantID string, hours float64) (*settings.Settings, error)
	SetPIN(ctx context.Context, tenantID, pin string) error
	Authenticate(ctx context.Context, tenantID, pin string) error
	Lock(ctx context.Context, tenantID string) error
}

// BackupService defines backup operations needed by MCP.
type BackupService interface {
	Export(ctx context.Context, tenantID string, req backup.ExportRequest) (*backup.ExportResult, error)
	Preview(ctx context.Context, tenantID string, data []byte) (*backup.Preview, error)
	Apply(ctx context.Context, tenantID string, data []byte, opts backup.ApplyOptions) (*backup.Preview, error)
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Handler dispatches MCP commands.
type Handler struct {
	jobs     JobService
	settings SettingsService
	backups  BackupService
	activity ActivityService
	now      func() time.Time
}

// NewHandler creates a new MCP handler.
func NewHandler(jobs JobService, settingsSvc SettingsService, backups BackupService, activitySvc ActivityService) *Handler {
	return &Handler{
		jobs:     jobs,
		settings: settingsSvc,
		backups:  backups,
		activity: activitySvc,
		now:      time.Now,
	}
}

// WithClock sets the time used to resolve "today" and "this month".
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Handle dispatches MCP requests to domain services.
func (h *Handler) Handle(ctx context.Context, tenantID, sessionID, method string, params json.RawMessage) (result any, err error) {
	defer func() { metrics.ToolCalled(method, err) }()

	ctx = activity.WithSessionID(ctx, sessionID)
	result, err = h.dispatch(ctx, tenantID, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, tenantID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_job":
		var req CreateJobParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		created, err := parseOptionalTime(req.DateCreated, false)
		if err != nil {
			return nil, err
		}
		j, err := h.jobs.Create(ctx, tenantID, job.CreateRequest{
			WIPNumber:           req.WIPNumber,
			VehicleRegistration: req.VehicleRegistration,
			AWValue:             req.AWValue,
			Notes:               req.Notes,
			JobDescription:      req.JobDescription,
			VHCStatus:           req.VHCStatus,
			DateCreated:         created,
		})
		if err != nil {
			return nil, err
		}
		return jobResponse(*j), nil
	case "update_job":
		var req UpdateJobParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		j, err := h.jobs.Update(ctx, tenantID, job.UpdateRequest{
			ID:                  req.ID,
			WIPNumber:           req.WIPNumber,
			VehicleRegistration: req.VehicleRegistration,
			AWValue:             req.AWValue,
			Notes:               req.Notes,
			JobDescription:      req.JobDescription,
			VHCStatus:           req.VHCStatus,
		})
		if err != nil {
			return nil, err
		}
		return jobResponse(*j), nil
	case "get_job":
		var req JobIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		j, err := h.jobs.Get(ctx, tenantID, req.ID)
		if err != nil {
			return nil, err
		}
		return jobResponse(*j), nil
	case "list_jobs":
		var req ListJobsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		from, err := parseOptionalTime(req.From, false)
		if err != nil {
			return nil, err
		}
		to, err := parseOptionalTime(req.To, true)
		if err != nil {
			return nil, err
		}
		jobs, err := h.jobs.List(ctx, tenantID, job.ListOptions{
			From:      from,
			To:        to,
			WIPNumber: req.WIPNumber,
			Limit:     req.Limit,
			Offset:    req.Offset,
		})
		if err != nil {
			return nil, err
		}
		resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs)), Count: len(jobs), TotalAWs: job.TotalAWs(jobs)}
		for _, j := range jobs {
			resp.Jobs = append(resp.Jobs, jobResponse(j))
		}
		return resp, nil
	case "delete_job":
		var req JobIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.jobs.Delete(ctx, tenantID, req.ID); err != nil {
			return nil, err
		}
		return DeleteResponse{Deleted: 1}, nil
	case "clear_jobs":
		var req ClearJobsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if !req.Confirm {
			return nil, fmt.Errorf("%w: confirm must be true", errInvalidParams)
		}
		n, err := h.jobs.Clear(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return DeleteResponse{Deleted: n}, nil
	case "get_stats":
		var req GetStatsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.getStats(ctx, tenantID, req)
	case "get_monthly_report":
		var req MonthlyReportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.monthlyReport(ctx, tenantID, req)
	case "get_settings":
		st, err := h.settings.Get(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return settingsResponse(st), nil
	case "update_settings":
		var req UpdateSettingsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		st, err := h.settings.Update(ctx, tenantID, settings.UpdateRequest{
			MonthlyTargetHours: req.MonthlyTargetHours,
			Theme:              req.Theme,
			BiometricEnabled:   req.BiometricEnabled,
			TechnicianName:     req.TechnicianName,
		})
		if err != nil {
			return nil, err
		}
		return settingsResponse(st), nil
	case "set_absence":
		var req SetAbsenceParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		st, err := h.settings.SetAbsence(ctx, tenantID, req.Hours)
		if err != nil {
			return nil, err
		}
		return settingsResponse(st), nil
	case "set_pin":
		var req PINParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.settings.SetPIN(ctx, tenantID, req.PIN); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "pin_set"}, nil
	case "authenticate":
		var req PINParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.settings.Authenticate(ctx, tenantID, req.PIN); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "unlocked"}, nil
	case "lock":
		if err := h.settings.Lock(ctx, tenantID); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "locked"}, nil
	case "export_backup":
		var req ExportBackupParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		res, err := h.backups.Export(ctx, tenantID, backup.ExportRequest{TechnicianName: req.TechnicianName})
		if err != nil {
			return nil, err
		}
		resp := ExportBackupResponse{
			Location:      res.Location,
			Timestamp:     res.Document.Timestamp,
			BackupVersion: res.Document.EffectiveBackupVersion(),
			Metadata:      res.Document.Metadata,
		}
		if req.IncludeContent || res.Location == "" {
			resp.Content = string(res.Data)
		}
		return resp, nil
	case "preview_import":
		var req ImportSourceParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		data, err := h.importData(ctx, req.Content, req.Location)
		if err != nil {
			return nil, err
		}
		p, err := h.backups.Preview(ctx, tenantID, data)
		if err != nil {
			return nil, err
		}
		return importPreviewResponse(p, false), nil
	case "apply_import":
		var req ApplyImportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.ExpectedCreated == nil || req.ExpectedUpdated == nil {
			return nil, fmt.Errorf("%w: expected_created and expected_updated from preview_import are required", errInvalidParams)
		}
		data, err := h.importData(ctx, req.Content, req.Location)
		if err != nil {
			return nil, err
		}
		p, err := h.backups.Apply(ctx, tenantID, data, backup.ApplyOptions{
			RestoreSettings: req.RestoreSettings,
			Expected:        &backup.Counts{Created: *req.ExpectedCreated, Updated: *req.ExpectedUpdated},
		})
		if err != nil {
			return nil, err
		}
		return importPreviewResponse(p, true), nil
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			JobID: req.JobID,
			Limit: req.Limit,
		}
		if req.Type != nil {
			typ := activity.ActivityType(*req.Type)
			opts.ActivityType = &typ
		}
		entries, err := h.activity.GetRecentActivity(ctx, tenantID, opts)
		if err != nil {
			return nil, err
		}
		resp := make([]ActivityEntryResponse, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, ActivityEntryResponse{
				Timestamp: entry.CreatedAt,
				Type:      entry.ActivityType,
				SessionID: stringValue(entry.SessionID),
				JobID:     entry.JobID,
				Summary:   entry.Summary,
				Details:   entry.Details,
			})
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownMethod, method)
	}
}

func (h *Handler) getStats(ctx context.Context, tenantID string, req GetStatsParams) (any, error) {
	ref := h.now()
	if req.Date != "" {
		t, err := parseTime(req.Date, false)
		if err != nil {
			return nil, err
		}
		ref = t
	}

	var p stats.Period
	switch strings.ToLower(req.Period) {
	case "day":
		p = stats.Day(ref)
	case "week":
		p = stats.Week(ref)
	case "", "month":
		p = stats.Month(ref)
	case "range":
		if req.From == "" || req.To == "" {
			return nil, fmt.Errorf("%w: range needs from and to", errInvalidParams)
		}
		from, err := parseTime(req.From, false)
		if err != nil {
			return nil, err
		}
		to, err := parseTime(req.To, true)
		if err != nil {
			return nil, err
		}
		if to.Before(from) {
			return nil, fmt.Errorf("%w: to is before from", errInvalidParams)
		}
		p = stats.Range(from, to)
	default:
		return nil, fmt.Errorf("%w: unknown period %q", errInvalidParams, req.Period)
	}

	jobs, err := h.jobs.All(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	st, err := h.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// The monthly target only applies to month-sized periods.
	target := 0.0
	if p.Kind == stats.KindMonth {
		target = st.MonthlyTargetHours
	}
	return StatsResponse{
		Summary: stats.Summarize(jobs, p, target),
		VHC:     stats.VHCBreakdown(stats.Filter(jobs, p)),
	}, nil
}

func (h *Handler) monthlyReport(ctx context.Context, tenantID string, req MonthlyReportParams) (any, error) {
	now := h.now()
	month, year := now.Month(), now.Year()
	if req.Month != 0 {
		if req.Month < 1 || req.Month > 12 {
			return nil, fmt.Errorf("%w: month must be 1-12", errInvalidParams)
		}
		month = time.Month(req.Month)
	}
	if req.Year != 0 {
		year = req.Year
	}

	jobs, err := h.jobs.All(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	st, err := h.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	absence := 0.0
	if st.AbsenceMonth == month && st.AbsenceYear == year {
		absence = st.AbsenceHours
	}
	return stats.Monthly(jobs, month, year, now, st.MonthlyTargetHours, absence), nil
}

func (h *Handler) importData(ctx context.Context, content, location string) ([]byte, error) {
	switch {
	case content != "" && location != "":
		return nil, fmt.Errorf("%w: pass content or location, not both", errInvalidParams)
	case content != "":
		return []byte(content), nil
	case location != "":
		return h.backups.Fetch(ctx, location)
	default:
		return nil, fmt.Errorf("%w: content or location is required", errInvalidParams)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid time %q", errInvalidParams, v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

func parseOptionalTime(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := parseTime(v, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}

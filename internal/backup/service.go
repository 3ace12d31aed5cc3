package backup

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/metrics"
)

// JobStore is the job persistence the import path needs.
type JobStore interface {
	LoadAll(ctx context.Context, tenantID string) ([]job.Job, error)
	SaveAll(ctx context.Context, tenantID string, jobs []job.Job) error
}

// SettingsStore reads and restores technician settings.
type SettingsStore interface {
	Get(ctx context.Context, tenantID string) (*settings.Settings, error)
	Restore(ctx context.Context, tenantID string, incoming settings.Settings) (*settings.Settings, error)
}

// Archive stores serialized documents somewhere outside the job store.
type Archive interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
	Read(ctx context.Context, location string) ([]byte, error)
}

// ActivityRepository logs backup activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}

// Service runs export and import against the stores. Calls for the same
// technician are serialized.
type Service struct {
	jobs        JobStore
	settings    SettingsStore
	archive     Archive
	archiveKind string
	activities  ActivityRepository
	builder     *Builder
	engine      *Engine
	logger      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures a Service.
type Options struct {
	Archive     Archive
	ArchiveKind string
	AppVersion  string
	Platform    string
	Now         func() time.Time
}

// NewService creates a backup service. A nil archive disables writing
// documents out; Export then only returns them.
func NewService(jobs JobStore, st SettingsStore, activities ActivityRepository, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	kind := opts.ArchiveKind
	if kind == "" {
		kind = "none"
	}
	return &Service{
		jobs:        jobs,
		settings:    st,
		archive:     opts.Archive,
		archiveKind: kind,
		activities:  activities,
		builder:     NewBuilder(opts.AppVersion, opts.Platform, opts.Now),
		engine:      NewEngine(),
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *Service) lock(tenantID string) func() {
	s.mu.Lock()
	l, ok := s.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenantID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ExportRequest controls an export.
type ExportRequest struct {
	// TechnicianName overrides the name recorded in settings.
	TechnicianName string
}

// ExportResult is a built document, its serialized form and where it went.
type ExportResult struct {
	Document Document `json:"document"`
	Data     []byte   `json:"-"`
	Location string   `json:"location,omitempty"`
}

// Export snapshots the technician's jobs and settings into a document and
// writes it to the archive when one is configured.
func (s *Service) Export(ctx context.Context, tenantID string, req ExportRequest) (res *ExportResult, err error) {
	defer func() { metrics.BackupExported(s.archiveKind, err) }()

	unlock := s.lock(tenantID)
	defer unlock()

	jobs, err := s.jobs.LoadAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	doc := s.builder.Build(jobs, *st, req.TechnicianName)
	data, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}

	res = &ExportResult{Document: doc, Data: data}
	if s.archive != nil {
		loc, err := s.archive.Write(ctx, FileName(doc), data)
		if err != nil {
			return nil, fmt.Errorf("writing backup: %w", err)
		}
		res.Location = loc
	}

	s.logger.Info("backup exported", "tenant", tenantID, "jobs", doc.Metadata.TotalJobs, "location", res.Location)
	s.logActivity(ctx, tenantID, activity.TypeBackupExported,
		fmt.Sprintf("exported %d jobs", doc.Metadata.TotalJobs),
		map[string]any{"location": res.Location, "totalAWs": doc.Metadata.TotalAWs})
	return res, nil
}

// Fetch reads a previously written document from the archive.
func (s *Service) Fetch(ctx context.Context, location string) ([]byte, error) {
	if s.archive == nil {
		return nil, ErrArchiveNotConfigured
	}
	data, err := s.archive.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", location, err)
	}
	return data, nil
}

// Preview describes what applying a document would do.
type Preview struct {
	BackupVersion  int         `json:"backupVersion"`
	Timestamp      string      `json:"timestamp"`
	TechnicianName string      `json:"technicianName,omitempty"`
	Metadata       Metadata    `json:"metadata"`
	Counts         Counts      `json:"counts"`
	Result         MergeResult `json:"result"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// importPlan is a preview plus what Apply needs to write or undo it.
type importPlan struct {
	preview *Preview
	decoded *Decoded
	current []job.Job
}

// Preview validates data and merges it against the current jobs without
// persisting anything.
func (s *Service) Preview(ctx context.Context, tenantID string, data []byte) (p *Preview, err error) {
	defer func() { metrics.ImportProcessed("preview", err) }()

	unlock := s.lock(tenantID)
	defer unlock()

	plan, err := s.plan(ctx, tenantID, data)
	if err != nil {
		return nil, err
	}
	p = plan.preview
	s.logActivity(ctx, tenantID, activity.TypeImportPreviewed,
		fmt.Sprintf("previewed import: %d created, %d updated, %d unchanged, %d skipped",
			p.Counts.Created, p.Counts.Updated, p.Counts.Unchanged, p.Counts.Skipped), nil)
	return p, nil
}

// ApplyOptions controls an import.
type ApplyOptions struct {
	// RestoreSettings replaces portable settings with the document's.
	RestoreSettings bool
	// Expected, when set, must match the created and updated counts the
	// merge produces now; otherwise nothing is written.
	Expected *Counts
}

// Apply merges data into the job store and optionally restores settings.
func (s *Service) Apply(ctx context.Context, tenantID string, data []byte, opts ApplyOptions) (p *Preview, err error) {
	defer func() { metrics.ImportProcessed("apply", err) }()

	unlock := s.lock(tenantID)
	defer unlock()

	plan, err := s.plan(ctx, tenantID, data)
	if err != nil {
		return nil, err
	}
	p = plan.preview
	if exp := opts.Expected; exp != nil {
		if exp.Created != p.Counts.Created || exp.Updated != p.Counts.Updated {
			return nil, fmt.Errorf("%w: expected %d created and %d updated, got %d and %d",
				ErrPreviewMismatch, exp.Created, exp.Updated, p.Counts.Created, p.Counts.Updated)
		}
	}

	if err := s.jobs.SaveAll(ctx, tenantID, p.Result.Merged); err != nil {
		return nil, fmt.Errorf("saving merged jobs: %w", err)
	}

	if opts.RestoreSettings {
		if err := s.restoreSettings(ctx, tenantID, plan.decoded.Document); err != nil {
			// Put the jobs back so a failed apply leaves the store as it was.
			if rbErr := s.jobs.SaveAll(ctx, tenantID, plan.current); rbErr != nil {
				s.logger.Error("failed to roll back jobs after settings restore failed",
					"tenant", tenantID, "error", rbErr)
				return nil, errors.Join(err, fmt.Errorf("rolling back jobs: %w", rbErr))
			}
			return nil, err
		}
	}

	metrics.MergeClassified(string(Created), p.Counts.Created)
	metrics.MergeClassified(string(Updated), p.Counts.Updated)
	metrics.MergeClassified(string(Unchanged), p.Counts.Unchanged)
	metrics.MergeClassified(string(Skipped), p.Counts.Skipped)

	s.logger.Info("import applied", "tenant", tenantID,
		"created", p.Counts.Created, "updated", p.Counts.Updated,
		"unchanged", p.Counts.Unchanged, "skipped", p.Counts.Skipped)
	s.logActivity(ctx, tenantID, activity.TypeImportApplied,
		fmt.Sprintf("imported backup: %d created, %d updated", p.Counts.Created, p.Counts.Updated),
		map[string]any{"counts": p.Counts, "restoredSettings": opts.RestoreSettings})
	return p, nil
}

func (s *Service) plan(ctx context.Context, tenantID string, data []byte) (*importPlan, error) {
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	for _, w := range decoded.Warnings {
		s.logger.Warn("backup document problem", "tenant", tenantID, "warning", w)
	}
	current, err := s.jobs.LoadAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}

	result := s.engine.Merge(current, decoded.Document.Jobs)
	// The engine indexes the decoded jobs; report positions in the raw
	// jobs array together with the records decoding rejected.
	skipped := make([]MalformedRecordError, 0, len(decoded.Skipped)+len(result.Skipped))
	skipped = append(skipped, decoded.Skipped...)
	for _, rec := range result.Skipped {
		rec.Index = decoded.OriginIndex(rec.Index)
		skipped = append(skipped, rec)
	}
	slices.SortStableFunc(skipped, func(a, b MalformedRecordError) int { return cmp.Compare(a.Index, b.Index) })
	result.Skipped = skipped

	doc := decoded.Document
	return &importPlan{
		preview: &Preview{
			BackupVersion:  doc.EffectiveBackupVersion(),
			Timestamp:      doc.Timestamp,
			TechnicianName: doc.TechnicianName,
			Metadata:       doc.Metadata,
			Counts:         result.Counts(),
			Result:         result,
			Warnings:       decoded.Warnings,
		},
		decoded: decoded,
		current: current,
	}, nil
}

func (s *Service) restoreSettings(ctx context.Context, tenantID string, doc Document) error {
	current, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	incoming := doc.Settings.Settings()
	if incoming.MonthlyTargetHours <= 0 {
		incoming.MonthlyTargetHours = current.MonthlyTargetHours
	}
	if incoming.TechnicianName == "" {
		incoming.TechnicianName = doc.TechnicianName
	}
	if _, err := s.settings.Restore(ctx, tenantID, incoming); err != nil {
		return fmt.Errorf("restoring settings: %w", err)
	}
	return nil
}

func (s *Service) logActivity(ctx context.Context, tenantID string, typ activity.ActivityType, summary string, details map[string]any) {
	if s.activities == nil {
		return
	}
	entry := &activity.ActivityEntry{
		SessionID:    activity.SessionIDFromContext(ctx),
		ActivityType: typ,
		Summary:      summary,
		CreatedAt:    s.builder.now().UTC(),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("failed to log backup activity", "type", typ, "error", err)
	}
}

package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/repository"
)

// Service handles job business logic.
type Service struct {
	jobs       Repository
	activities ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new job service.
func NewService(jobs Repository, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jobs:       jobs,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for creation and modification stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequest describes a job creation request.
type CreateRequest struct {
	WIPNumber           string
	VehicleRegistration string
	AWValue             float64
	Notes               string
	JobDescription      string
	VHCStatus           string
	// DateCreated backdates the job; the current time is used when nil.
	DateCreated *time.Time
}

// UpdateRequest describes a partial job update.
type UpdateRequest struct {
	ID                  string
	WIPNumber           *string
	VehicleRegistration *string
	AWValue             *float64
	Notes               *string
	JobDescription      *string
	VHCStatus           *string
}

// Create validates and stores a new job.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Job, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}
	vhc, _ := ParseVHCStatus(req.VHCStatus)

	now := s.now().UTC()
	created := now
	if req.DateCreated != nil && !req.DateCreated.IsZero() {
		created = req.DateCreated.UTC()
	}

	j := &Job{
		ID:                  uuid.NewString(),
		WIPNumber:           strings.TrimSpace(req.WIPNumber),
		VehicleRegistration: NormalizeRegistration(req.VehicleRegistration),
		AWValue:             req.AWValue,
		Notes:               req.Notes,
		JobDescription:      req.JobDescription,
		DateCreated:         created,
		DateModified:        &now,
		VHCStatus:           vhc,
	}
	j.Recompute()

	if err := s.jobs.Create(ctx, tenantID, j); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		JobID:        &j.ID,
		ActivityType: activity.TypeJobCreated,
		Summary:      fmt.Sprintf("created job %s (wip %s, %.2f AW)", j.ID, j.WIPNumber, j.AWValue),
	})

	return j, nil
}

// Update applies a partial update and refreshes the modification stamp.
func (s *Service) Update(ctx context.Context, tenantID string, req UpdateRequest) (*Job, error) {
	if err := ValidateUpdateInput(req); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, tenantID, req.ID)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	if req.WIPNumber != nil {
		updated.WIPNumber = strings.TrimSpace(*req.WIPNumber)
	}
	if req.VehicleRegistration != nil {
		updated.VehicleRegistration = NormalizeRegistration(*req.VehicleRegistration)
	}
	if req.AWValue != nil {
		updated.AWValue = *req.AWValue
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}
	if req.JobDescription != nil {
		updated.JobDescription = *req.JobDescription
	}
	if req.VHCStatus != nil {
		updated.VHCStatus, _ = ParseVHCStatus(*req.VHCStatus)
	}
	now := s.now().UTC()
	updated.DateModified = &now
	updated.Recompute()

	if err := s.jobs.Update(ctx, tenantID, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("updating job: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		JobID:        &updated.ID,
		ActivityType: activity.TypeJobUpdated,
		Summary:      fmt.Sprintf("updated job %s", updated.ID),
	})

	return &updated, nil
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Job, error) {
	j, err := s.jobs.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return j, nil
}

// List returns jobs matching opts, newest first.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOptions) ([]Job, error) {
	return s.jobs.List(ctx, tenantID, opts)
}

// All returns the tenant's full job collection.
func (s *Service) All(ctx context.Context, tenantID string) ([]Job, error) {
	jobs, err := s.jobs.LoadAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	if err := s.jobs.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("deleting job: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		JobID:        &id,
		ActivityType: activity.TypeJobDeleted,
		Summary:      fmt.Sprintf("deleted job %s", id),
	})
	return nil
}

// Clear deletes every job of the tenant and returns how many were removed.
func (s *Service) Clear(ctx context.Context, tenantID string) (int64, error) {
	n, err := s.jobs.DeleteAll(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("clearing jobs: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		ActivityType: activity.TypeJobsCleared,
		Summary:      fmt.Sprintf("cleared %d jobs", n),
	})
	return n, nil
}

func (s *Service) logActivity(ctx context.Context, tenantID string, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	entry.CreatedAt = s.now().UTC()
	entry.SessionID = activity.SessionIDFromContext(ctx)
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("failed to log job activity", "type", entry.ActivityType, "error", err)
	}
}

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/repository"
	"github.com/rpggio/techtrace/internal/worktime"
)

// Service manages technician settings, the PIN lock and absence tracking.
type Service struct {
	repo       Repository
	activities ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
	pinParams  Argon2idParams
}

// NewService creates a new settings service.
func NewService(repo Repository, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		activities: activities,
		logger:     logger,
		now:        time.Now,
		pinParams:  DefaultArgon2idParams,
	}
}

// WithClock replaces the time source used for absence rollover.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithPINParams overrides the argon2id cost parameters.
func (s *Service) WithPINParams(params Argon2idParams) *Service {
	s.pinParams = params
	return s
}

// UpdateRequest describes a partial settings update.
type UpdateRequest struct {
	MonthlyTargetHours *float64
	Theme              *string
	BiometricEnabled   *bool
	TechnicianName     *string
}

// Get returns the technician's settings, falling back to defaults. Absence
// hours recorded against an earlier month are cleared and persisted.
func (s *Service) Get(ctx context.Context, tenantID string) (*Settings, error) {
	current, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if current.AbsenceHours != 0 && worktime.ShouldResetAbsence(current.AbsenceMonth, current.AbsenceYear, now) {
		s.logger.Info("resetting absence for new month",
			"tenant_id", tenantID,
			"previous_month", current.AbsenceMonth,
			"previous_year", current.AbsenceYear)
		current.AbsenceHours = 0
		current.AbsenceMonth = now.Month()
		current.AbsenceYear = now.Year()
		if err := s.save(ctx, tenantID, current); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, tenantID string, req UpdateRequest) (*Settings, error) {
	current, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if req.MonthlyTargetHours != nil {
		target := *req.MonthlyTargetHours
		if math.IsNaN(target) || math.IsInf(target, 0) || target < 0 {
			return nil, fmt.Errorf("%w: monthly target must be a non-negative number", ErrInvalidInput)
		}
		current.MonthlyTargetHours = target
	}
	if req.Theme != nil {
		theme, ok := ParseTheme(*req.Theme)
		if !ok {
			return nil, fmt.Errorf("%w: unknown theme %q", ErrInvalidInput, *req.Theme)
		}
		current.Theme = theme
	}
	if req.BiometricEnabled != nil {
		current.BiometricEnabled = *req.BiometricEnabled
	}
	if req.TechnicianName != nil {
		current.TechnicianName = *req.TechnicianName
	}

	if err := s.save(ctx, tenantID, current); err != nil {
		return nil, err
	}
	s.logActivity(ctx, tenantID, activity.TypeSettingsUpdated, "updated settings")
	return current, nil
}

// SetAbsence records absence hours against the current month.
func (s *Service) SetAbsence(ctx context.Context, tenantID string, hours float64) (*Settings, error) {
	if !validHours(hours) {
		return nil, fmt.Errorf("%w: absence hours must be a non-negative number", ErrInvalidInput)
	}

	current, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	current.AbsenceHours = hours
	current.AbsenceMonth = now.Month()
	current.AbsenceYear = now.Year()

	if err := s.save(ctx, tenantID, current); err != nil {
		return nil, err
	}
	s.logActivity(ctx, tenantID, activity.TypeAbsenceRecorded,
		fmt.Sprintf("recorded %.2f absence hours for %s %d", hours, now.Month(), now.Year()))
	return current, nil
}

// SetPIN hashes and stores a new PIN.
func (s *Service) SetPIN(ctx context.Context, tenantID, pin string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	current, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}
	hash, err := HashPIN(pin, s.pinParams)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}
	current.PINHash = hash
	current.IsAuthenticated = false
	return s.save(ctx, tenantID, current)
}

// Authenticate verifies the PIN and marks the session authenticated.
func (s *Service) Authenticate(ctx context.Context, tenantID, pin string) error {
	current, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}
	if !current.HasPIN() {
		return ErrPINNotSet
	}
	if err := VerifyPINHash(current.PINHash, pin); err != nil {
		return err
	}
	current.IsAuthenticated = true
	return s.save(ctx, tenantID, current)
}

// Lock clears the authenticated flag.
func (s *Service) Lock(ctx context.Context, tenantID string) error {
	current, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}
	current.IsAuthenticated = false
	return s.save(ctx, tenantID, current)
}

func validHours(h float64) bool {
	return !math.IsNaN(h) && !math.IsInf(h, 0) && h >= 0
}

// Restore replaces portable settings with incoming ones. The local PIN hash
// is kept and the session is always left unauthenticated.
func (s *Service) Restore(ctx context.Context, tenantID string, incoming Settings) (*Settings, error) {
	current, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	restored := incoming
	restored.PINHash = current.PINHash
	restored.IsAuthenticated = false
	if _, ok := ParseTheme(string(restored.Theme)); !ok {
		restored.Theme = current.Theme
	}
	if !validHours(restored.MonthlyTargetHours) || restored.MonthlyTargetHours == 0 {
		restored.MonthlyTargetHours = current.MonthlyTargetHours
	}
	// Imported documents are not trusted for absence; bad values clear it.
	if !validHours(restored.AbsenceHours) {
		restored.AbsenceHours = 0
	}

	if err := s.save(ctx, tenantID, &restored); err != nil {
		return nil, err
	}
	s.logActivity(ctx, tenantID, activity.TypeSettingsUpdated, "restored settings from backup")
	return &restored, nil
}

func (s *Service) load(ctx context.Context, tenantID string) (*Settings, error) {
	current, err := s.repo.Load(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d := Defaults()
			return &d, nil
		}
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return current, nil
}

func (s *Service) save(ctx context.Context, tenantID string, st *Settings) error {
	st.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, tenantID, st); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

func (s *Service) logActivity(ctx context.Context, tenantID string, typ activity.ActivityType, summary string) {
	if s.activities == nil {
		return
	}
	entry := &activity.ActivityEntry{
		SessionID:    activity.SessionIDFromContext(ctx),
		ActivityType: typ,
		Summary:      summary,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("failed to log settings activity", "type", typ, "error", err)
	}
}

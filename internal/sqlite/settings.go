package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/repository"
)

// SettingsRepository implements settings.Repository for SQLite
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns the stored settings or repository.ErrNotFound
func (r *SettingsRepository) Load(ctx context.Context, tenantID string) (*settings.Settings, error) {
	query := `
		SELECT pin_hash, is_authenticated, monthly_target_hours, absence_hours,
			absence_month, absence_year, theme, biometric_enabled, technician_name, updated_at
		FROM settings
		WHERE tenant_id = ?
	`

	var s settings.Settings
	var month int
	var theme, updatedAt string
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&s.PINHash,
		&s.IsAuthenticated,
		&s.MonthlyTargetHours,
		&s.AbsenceHours,
		&month,
		&s.AbsenceYear,
		&theme,
		&s.BiometricEnabled,
		&s.TechnicianName,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	s.AbsenceMonth = time.Month(month)
	s.Theme = settings.Theme(theme)
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid settings updated_at %q: %w", updatedAt, err)
	}
	return &s, nil
}

// Save upserts the settings row
func (r *SettingsRepository) Save(ctx context.Context, tenantID string, s *settings.Settings) error {
	query := `
		INSERT INTO settings (
			tenant_id, pin_hash, is_authenticated, monthly_target_hours, absence_hours,
			absence_month, absence_year, theme, biometric_enabled, technician_name, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			pin_hash = excluded.pin_hash,
			is_authenticated = excluded.is_authenticated,
			monthly_target_hours = excluded.monthly_target_hours,
			absence_hours = excluded.absence_hours,
			absence_month = excluded.absence_month,
			absence_year = excluded.absence_year,
			theme = excluded.theme,
			biometric_enabled = excluded.biometric_enabled,
			technician_name = excluded.technician_name,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		tenantID,
		s.PINHash,
		s.IsAuthenticated,
		s.MonthlyTargetHours,
		s.AbsenceHours,
		int(s.AbsenceMonth),
		s.AbsenceYear,
		string(s.Theme),
		s.BiometricEnabled,
		s.TechnicianName,
		formatTime(s.UpdatedAt),
	)
	if isCheckViolation(err) {
		return fmt.Errorf("settings: %w", repository.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

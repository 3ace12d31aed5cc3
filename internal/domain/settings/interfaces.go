package settings

import (
	"context"

	"github.com/rpggio/techtrace/internal/domain/activity"
)

// Repository persists the settings singleton per technician.
type Repository interface {
	Load(ctx context.Context, tenantID string) (*Settings, error)
	Save(ctx context.Context, tenantID string, s *Settings) error
}

// ActivityRepository logs settings activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}

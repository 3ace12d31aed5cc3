package job

import (
	"context"

	"github.com/rpggio/techtrace/internal/domain/activity"
)

// Repository provides persistence for jobs.
type Repository interface {
	Create(ctx context.Context, tenantID string, j *Job) error
	Get(ctx context.Context, tenantID, id string) (*Job, error)
	Update(ctx context.Context, tenantID string, j *Job) error
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, tenantID string, opts ListOptions) ([]Job, error)
	LoadAll(ctx context.Context, tenantID string) ([]Job, error)
	SaveAll(ctx context.Context, tenantID string, jobs []Job) error
	DeleteAll(ctx context.Context, tenantID string) (int64, error)
}

// ActivityRepository logs job activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}

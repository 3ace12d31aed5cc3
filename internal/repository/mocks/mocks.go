package mocks

import (
	"context"

	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/stretchr/testify/mock"
)

// JobRepository is a mock for job.Repository.
type JobRepository struct {
	mock.Mock
}

func (m *JobRepository) Create(ctx context.Context, tenantID string, j *job.Job) error {
	args := m.Called(ctx, tenantID, j)
	return args.Error(0)
}

func (m *JobRepository) Get(ctx context.Context, tenantID, id string) (*job.Job, error) {
	args := m.Called(ctx, tenantID, id)
	if j, ok := args.Get(0).(*job.Job); ok {
		return j, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) Update(ctx context.Context, tenantID string, j *job.Job) error {
	args := m.Called(ctx, tenantID, j)
	return args.Error(0)
}

func (m *JobRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *JobRepository) List(ctx context.Context, tenantID string, opts job.ListOptions) ([]job.Job, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]job.Job); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) LoadAll(ctx context.Context, tenantID string) ([]job.Job, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]job.Job); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) SaveAll(ctx context.Context, tenantID string, jobs []job.Job) error {
	args := m.Called(ctx, tenantID, jobs)
	return args.Error(0)
}

func (m *JobRepository) DeleteAll(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

// SettingsRepository is a mock for settings.Repository.
type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) Load(ctx context.Context, tenantID string) (*settings.Settings, error) {
	args := m.Called(ctx, tenantID)
	if s, ok := args.Get(0).(*settings.Settings); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SettingsRepository) Save(ctx context.Context, tenantID string, s *settings.Settings) error {
	args := m.Called(ctx, tenantID, s)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Archive is a mock for backup.Archive.
type Archive struct {
	mock.Mock
}

func (m *Archive) Write(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

func (m *Archive) Read(ctx context.Context, location string) ([]byte, error) {
	args := m.Called(ctx, location)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

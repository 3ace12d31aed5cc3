package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/repository"
	"github.com/rpggio/techtrace/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.January, 10, 9, 30, 0, 0, time.UTC)

func newService(jobs *mocks.JobRepository, activities *mocks.ActivityRepository) *job.Service {
	var act job.ActivityRepository
	if activities != nil {
		act = activities
	}
	return job.NewService(jobs, act, nil).WithClock(func() time.Time { return fixedNow })
}

func TestJobService_Create(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.JobRepository{}
	activities := &mocks.ActivityRepository{}

	jobs.On("Create", ctx, "tech1", mock.AnythingOfType("*job.Job")).Return(nil)
	activities.On("Log", ctx, "tech1", mock.Anything).Return(nil)

	svc := newService(jobs, activities)
	j, err := svc.Create(ctx, "tech1", job.CreateRequest{
		WIPNumber:           " 12345 ",
		VehicleRegistration: "ab12 cde",
		AWValue:             6,
		VHCStatus:           "orange",
	})
	require.NoError(t, err)
	require.NotEmpty(t, j.ID)
	require.Equal(t, "12345", j.WIPNumber)
	require.Equal(t, "AB12CDE", j.VehicleRegistration)
	require.Equal(t, 30.0, j.TimeInMinutes)
	require.Equal(t, job.VHCAmber, j.VHCStatus)
	require.Equal(t, fixedNow, j.DateCreated)
	require.Equal(t, fixedNow, j.EffectiveTime())
	jobs.AssertExpectations(t)
	activities.AssertExpectations(t)
}

func TestJobService_Create_Backdated(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.JobRepository{}
	jobs.On("Create", ctx, "tech1", mock.Anything).Return(nil)

	created := time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC)
	svc := newService(jobs, nil)
	j, err := svc.Create(ctx, "tech1", job.CreateRequest{WIPNumber: "1", AWValue: 1, DateCreated: &created})
	require.NoError(t, err)
	require.Equal(t, created, j.DateCreated)
	require.Equal(t, fixedNow, *j.DateModified)
}

func TestJobService_Create_Invalid(t *testing.T) {
	svc := newService(&mocks.JobRepository{}, nil)

	_, err := svc.Create(context.Background(), "tech1", job.CreateRequest{WIPNumber: "", AWValue: 1})
	require.ErrorIs(t, err, job.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "tech1", job.CreateRequest{WIPNumber: "1", AWValue: -1})
	require.ErrorIs(t, err, job.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "tech1", job.CreateRequest{WIPNumber: "1", VHCStatus: "purple"})
	require.ErrorIs(t, err, job.ErrInvalidVHCStatus)
}

func TestJobService_Update(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.JobRepository{}

	original := &job.Job{
		ID:          "j1",
		WIPNumber:   "100",
		AWValue:     10,
		DateCreated: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
	original.Recompute()
	jobs.On("Get", ctx, "tech1", "j1").Return(original, nil)
	jobs.On("Update", ctx, "tech1", mock.AnythingOfType("*job.Job")).Return(nil)

	aws := 20.0
	notes := "replaced pads"
	svc := newService(jobs, nil)
	updated, err := svc.Update(ctx, "tech1", job.UpdateRequest{ID: "j1", AWValue: &aws, Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, 100.0, updated.TimeInMinutes)
	require.Equal(t, notes, updated.Notes)
	require.Equal(t, fixedNow, updated.EffectiveTime())
	require.Equal(t, 10.0, original.AWValue)
}

func TestJobService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.JobRepository{}
	jobs.On("Get", ctx, "tech1", "missing").Return(nil, repository.ErrNotFound)

	_, err := newService(jobs, nil).Update(ctx, "tech1", job.UpdateRequest{ID: "missing"})
	require.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestJobService_Delete(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.JobRepository{}
	jobs.On("Delete", ctx, "tech1", "j1").Return(nil)
	jobs.On("Delete", ctx, "tech1", "j2").Return(repository.ErrNotFound)

	svc := newService(jobs, nil)
	require.NoError(t, svc.Delete(ctx, "tech1", "j1"))
	require.ErrorIs(t, svc.Delete(ctx, "tech1", "j2"), job.ErrJobNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "tech1", " "), job.ErrInvalidInput)
}

func TestJobService_Clear(t *testing.T) {
	ctx := context.Background()
	jobs := &mocks.JobRepository{}
	activities := &mocks.ActivityRepository{}
	jobs.On("DeleteAll", ctx, "tech1").Return(int64(3), nil)
	activities.On("Log", ctx, "tech1", mock.Anything).Return(nil)

	n, err := newService(jobs, activities).Clear(ctx, "tech1")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	activities.AssertExpectations(t)
}

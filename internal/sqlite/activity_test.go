package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	entry1 := &activity.ActivityEntry{
		ActivityType: activity.TypeJobCreated,
		Summary:      "Created job",
		Details:      `{"id":"j1"}`,
		CreatedAt:    base,
	}
	entry2 := &activity.ActivityEntry{
		ActivityType: activity.TypeBackupExported,
		Summary:      "Exported backup",
		CreatedAt:    base.Add(time.Minute),
	}

	require.NoError(t, repo.Log(ctx, "tenant1", entry1))
	require.NoError(t, repo.Log(ctx, "tenant1", entry2))
	require.NotZero(t, entry1.ID)
	require.Equal(t, "tenant1", entry1.TenantID)

	entries, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, base, entries[1].CreatedAt)
	require.Equal(t, `{"id":"j1"}`, entries[1].Details)
}

func TestActivityRepository_FiltersAndTenantIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	sessionID := "s1"
	jobID := "j1"
	entry := &activity.ActivityEntry{
		SessionID:    &sessionID,
		JobID:        &jobID,
		ActivityType: activity.TypeJobUpdated,
		Summary:      "Updated job",
		Details:      "{}",
	}
	other := &activity.ActivityEntry{
		ActivityType: activity.TypeJobDeleted,
		Summary:      "Deleted job",
	}

	require.NoError(t, repo.Log(ctx, "tenant1", entry))
	require.NoError(t, repo.Log(ctx, "tenant1", other))
	require.NoError(t, repo.Log(ctx, "tenant2", &activity.ActivityEntry{ActivityType: activity.TypeJobCreated, Summary: "x"}))

	byJob, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{JobID: &jobID})
	require.NoError(t, err)
	require.Len(t, byJob, 1)
	require.Equal(t, "j1", *byJob[0].JobID)
	require.Equal(t, "s1", *byJob[0].SessionID)

	typ := activity.TypeJobDeleted
	byType, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{ActivityType: &typ})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Nil(t, byType[0].JobID)

	limited, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	tenant2, err := repo.List(ctx, "tenant2", activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, tenant2, 1)
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"jobs",
		"settings",
		"activity_log",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Re-running is a no-op.
	require.NoError(t, db.RunMigrations())
}

// TestJobsTableConstraints verifies the CHECK constraints on jobs
func TestJobsTableConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	insert := `INSERT INTO jobs (tenant_id, id, wip_number, aw_value, date_created, time_in_minutes, vhc_status, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, insert, "t1", "j1", "100", 2.0, "2024-01-01T00:00:00.000000000Z", 10.0, "green", 0)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "t1", "j2", "100", -1.0, "2024-01-01T00:00:00.000000000Z", 0.0, "", 1)
	require.Error(t, err, "negative aw_value should fail")

	_, err = db.ExecContext(ctx, insert, "t1", "j3", "100", 1.0, "2024-01-01T00:00:00.000000000Z", 5.0, "orange", 2)
	require.Error(t, err, "unknown vhc_status should fail")

	// Same id under another tenant is allowed.
	_, err = db.ExecContext(ctx, insert, "t2", "j1", "100", 1.0, "2024-01-01T00:00:00.000000000Z", 5.0, "", 0)
	require.NoError(t, err)
}

func TestTimeFormat_Sortable(t *testing.T) {
	a := formatTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)))
	b := formatTime(time.Date(2024, 1, 2, 3, 4, 5, 1, time.UTC))
	require.Equal(t, "2024-01-02T02:04:05.000000000Z", a)
	require.Less(t, a, b)

	parsed, err := parseTime(b)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 1, time.UTC), parsed)

	legacy, err := parseTime("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), legacy.UTC())
}

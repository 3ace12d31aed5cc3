// Package testserver starts a fully wired techtrace HTTP server backed by an
// in-memory database and a temporary backup directory.
package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/techtrace/internal/archive"
	"github.com/rpggio/techtrace/internal/backup"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/mcp"
	"github.com/rpggio/techtrace/internal/sqlite"
	"github.com/rpggio/techtrace/internal/transport"
)

// Now is the fixed clock every service in the test server reads.
var Now = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	APIKeys   *sqlite.APIKeyRepository
	BackupDir string
	Token     string
	TenantID  string
}

func New(t *testing.T, token, tenantID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	clock := func() time.Time { return Now }

	jobRepo := sqlite.NewJobRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)

	jobSvc := job.NewService(jobRepo, activityRepo, nil).WithClock(clock)
	settingsSvc := settings.NewService(settingsRepo, activityRepo, nil).
		WithClock(clock).
		WithPINParams(settings.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	activitySvc := activity.NewService(activityRepo, nil)

	backupDir := t.TempDir()
	files, err := archive.NewFileArchive(backupDir)
	require.NoError(t, err)
	backupSvc := backup.NewService(jobRepo, settingsSvc, activityRepo, nil, backup.Options{
		Archive:     files,
		ArchiveKind: "file",
		AppVersion:  "test",
		Platform:    "test",
		Now:         clock,
	})

	handler := mcp.NewHandler(jobSvc, settingsSvc, backupSvc, activitySvc).WithClock(clock)
	server := httptest.NewServer(transport.NewServer(handler, transport.Options{
		Auth: transport.AuthMiddleware(apiKeys),
	}))

	ts := &TestServer{
		Server:    server,
		DB:        db,
		APIKeys:   apiKeys,
		BackupDir: backupDir,
		Token:     token,
		TenantID:  tenantID,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey lets token authenticate as tenantID.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.APIKeys.Add(context.Background(), tenantID, token, "test")
}

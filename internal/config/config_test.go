package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TECHTRACE_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "techtrace.db", cfg.DB.Path)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "file", cfg.Backup.Target)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
transport:
  mode: stdio
backup:
  target: s3
  s3:
    bucket: techtrace
    endpoint: http://localhost:9000
    use_path_style: true
`), 0o644))

	t.Setenv("TECHTRACE_CONFIG_PATH", path)
	t.Setenv("TECHTRACE_SERVER_PORT", "9191")
	t.Setenv("TECHTRACE_AUTH_ENABLED", "false")
	t.Setenv("TECHTRACE_S3_ACCESS_KEY", "minio")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.False(t, cfg.Auth.Enabled)
	require.Equal(t, "s3", cfg.Backup.Target)
	require.Equal(t, "techtrace", cfg.Backup.S3.Bucket)
	require.True(t, cfg.Backup.S3.UsePathStyle)
	require.Equal(t, "minio", cfg.Backup.S3.AccessKey)
	require.Equal(t, "us-east-1", cfg.Backup.S3.Region)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TECHTRACE_CONFIG_PATH", "")

	t.Setenv("TECHTRACE_SERVER_PORT", "abc")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("TECHTRACE_SERVER_PORT", "")
	t.Setenv("TECHTRACE_AUTH_ENABLED", "maybe")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("TECHTRACE_AUTH_ENABLED", "")
	t.Setenv("TECHTRACE_BACKUP_TARGET", "s3")
	_, err = Load()
	require.ErrorContains(t, err, "bucket")

	t.Setenv("TECHTRACE_BACKUP_TARGET", "")
	t.Setenv("TECHTRACE_TRANSPORT", "carrier-pigeon")
	_, err = Load()
	require.ErrorContains(t, err, "transport")
}

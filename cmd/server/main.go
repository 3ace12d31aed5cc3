package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/techtrace/internal/archive"
	"github.com/rpggio/techtrace/internal/backup"
	"github.com/rpggio/techtrace/internal/config"
	"github.com/rpggio/techtrace/internal/domain/activity"
	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/domain/settings"
	"github.com/rpggio/techtrace/internal/mcp"
	"github.com/rpggio/techtrace/internal/sqlite"
	"github.com/rpggio/techtrace/internal/transport"
)

// defaultTenant is the technician used when requests are not authenticated.
const defaultTenant = "default"

func main() {
	issueKey := flag.String("issue-key", "", "create an API key for the given technician ID, print it and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("TECHTRACE_LOG_PATH"); logPath != "" {
		fileWriter, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)
	if *issueKey != "" {
		token := uuid.NewString()
		if err := apiKeys.Add(context.Background(), *issueKey, token, "issued from command line"); err != nil {
			logger.Error("failed to issue api key", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	jobRepo := sqlite.NewJobRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	jobSvc := job.NewService(jobRepo, activityRepo, logger)
	settingsSvc := settings.NewService(settingsRepo, activityRepo, logger)
	activitySvc := activity.NewService(activityRepo, logger)

	store, err := newArchive(context.Background(), cfg.Backup)
	if err != nil {
		logger.Error("failed to configure backup archive", "target", cfg.Backup.Target, "error", err)
		os.Exit(1)
	}
	backupSvc := backup.NewService(jobRepo, settingsSvc, activityRepo, logger, backup.Options{
		Archive:     store,
		ArchiveKind: cfg.Backup.Target,
		AppVersion:  cfg.App.Version,
		Platform:    cfg.App.Platform,
	})

	handler := mcp.NewHandler(jobSvc, settingsSvc, backupSvc, activitySvc)
	mcpServer := mcp.NewServer(mcp.Config{
		Handler:       handler,
		Resolver:      apiKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		DefaultTenant: defaultTenant,
		Version:       cfg.App.Version,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	var auth func(http.Handler) http.Handler
	if cfg.Auth.Enabled {
		auth = transport.AuthMiddleware(apiKeys)
	}
	runHTTPMode(logger, handler, mcpServer, auth, cfg.Server.Host, cfg.Server.Port)
}

// newArchive returns the configured backup destination, or nil for "none".
func newArchive(ctx context.Context, cfg config.BackupConfig) (backup.Archive, error) {
	switch cfg.Target {
	case "file":
		return archive.NewFileArchive(cfg.Dir)
	case "s3":
		return archive.NewS3Archive(ctx, archive.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown backup target %q", cfg.Target)
	}
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled", "technician", defaultTenant)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, handler *mcp.Handler, mcpServer *sdkmcp.Server, auth func(http.Handler) http.Handler, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := transport.NewServer(handler, transport.Options{
		Auth:          auth,
		DefaultTenant: defaultTenant,
		MCP:           mcpHandler,
		Logger:        logger,
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "auth", auth != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

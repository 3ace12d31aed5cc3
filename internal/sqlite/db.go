package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if dataSourceName == ":memory:" || strings.Contains(dataSourceName, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. It is safe to run on every start.
func (db *DB) RunMigrations() error {
	migration := `
-- Jobs; position keeps the order of the last full save
CREATE TABLE IF NOT EXISTS jobs (
    tenant_id TEXT NOT NULL,
    id TEXT NOT NULL,
    wip_number TEXT NOT NULL,
    vehicle_registration TEXT NOT NULL DEFAULT '',
    aw_value REAL NOT NULL CHECK(aw_value >= 0),
    notes TEXT NOT NULL DEFAULT '',
    job_description TEXT NOT NULL DEFAULT '',
    date_created TEXT NOT NULL,
    date_modified TEXT,
    time_in_minutes REAL NOT NULL,
    vhc_status TEXT NOT NULL DEFAULT '' CHECK(vhc_status IN ('', 'green', 'amber', 'red')),
    position INTEGER NOT NULL,
    PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(tenant_id, date_created);
CREATE INDEX IF NOT EXISTS idx_jobs_wip ON jobs(tenant_id, wip_number);
CREATE INDEX IF NOT EXISTS idx_jobs_position ON jobs(tenant_id, position);

-- Settings singleton per technician
CREATE TABLE IF NOT EXISTS settings (
    tenant_id TEXT PRIMARY KEY,
    pin_hash TEXT NOT NULL DEFAULT '',
    is_authenticated INTEGER NOT NULL DEFAULT 0,
    monthly_target_hours REAL NOT NULL,
    absence_hours REAL NOT NULL DEFAULT 0,
    absence_month INTEGER NOT NULL DEFAULT 0,
    absence_year INTEGER NOT NULL DEFAULT 0,
    theme TEXT NOT NULL CHECK(theme IN ('light', 'dark', 'system')),
    biometric_enabled INTEGER NOT NULL DEFAULT 0,
    technician_name TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);

-- Activity log
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL,
    session_id TEXT,
    job_id TEXT,
    activity_type TEXT NOT NULL,
    summary TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tenant_activity ON activity_log(tenant_id);
CREATE INDEX IF NOT EXISTS idx_job_activity ON activity_log(job_id);
CREATE INDEX IF NOT EXISTS idx_created_at ON activity_log(created_at);

-- API keys for authentication
CREATE TABLE IF NOT EXISTS api_keys (
    key_hash TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT
);
CREATE INDEX IF NOT EXISTS idx_tenant_keys ON api_keys(tenant_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Times are stored as fixed-width UTC text so that string order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

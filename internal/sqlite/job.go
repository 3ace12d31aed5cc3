package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/techtrace/internal/domain/job"
	"github.com/rpggio/techtrace/internal/repository"
)

// JobRepository implements job.Repository for SQLite
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, wip_number, vehicle_registration, aw_value, notes, job_description,
	date_created, date_modified, time_in_minutes, vhc_status`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertJob(ctx context.Context, ex execer, tenantID string, j *job.Job, position string, posArgs ...any) error {
	query := `
		INSERT INTO jobs (tenant_id, ` + jobColumns + `, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ` + position + `)
	`
	args := []any{
		tenantID,
		j.ID,
		j.WIPNumber,
		j.VehicleRegistration,
		j.AWValue,
		j.Notes,
		j.JobDescription,
		formatTime(j.DateCreated),
		nullableTime(j),
		j.TimeInMinutes,
		string(j.VHCStatus),
	}
	_, err := ex.ExecContext(ctx, query, append(args, posArgs...)...)
	return err
}

func nullableTime(j *job.Job) any {
	if j.DateModified == nil {
		return nil
	}
	return formatTime(*j.DateModified)
}

// Create appends a job after the existing ones
func (r *JobRepository) Create(ctx context.Context, tenantID string, j *job.Job) error {
	err := insertJob(ctx, r.db, tenantID, j,
		`(SELECT COALESCE(MAX(position), -1) + 1 FROM jobs WHERE tenant_id = ?)`, tenantID)
	if isUniqueViolation(err) {
		return fmt.Errorf("job %s: %w", j.ID, repository.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (r *JobRepository) Get(ctx context.Context, tenantID, id string) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE tenant_id = ? AND id = ?`

	j, err := scanJob(r.db.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// Update replaces the mutable fields of a job
func (r *JobRepository) Update(ctx context.Context, tenantID string, j *job.Job) error {
	query := `
		UPDATE jobs SET
			wip_number = ?, vehicle_registration = ?, aw_value = ?, notes = ?,
			job_description = ?, date_created = ?, date_modified = ?,
			time_in_minutes = ?, vhc_status = ?
		WHERE tenant_id = ? AND id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		j.WIPNumber,
		j.VehicleRegistration,
		j.AWValue,
		j.Notes,
		j.JobDescription,
		formatTime(j.DateCreated),
		nullableTime(j),
		j.TimeInMinutes,
		string(j.VHCStatus),
		tenantID,
		j.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a job
func (r *JobRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return requireAffected(res)
}

// List returns jobs newest first, filtered by opts
func (r *JobRepository) List(ctx context.Context, tenantID string, opts job.ListOptions) ([]job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE tenant_id = ?`
	args := []any{tenantID}
	conditions := []string{}

	if opts.From != nil {
		conditions = append(conditions, "date_created >= ?")
		args = append(args, formatTime(*opts.From))
	}
	if opts.To != nil {
		conditions = append(conditions, "date_created <= ?")
		args = append(args, formatTime(*opts.To))
	}
	if opts.WIPNumber != "" {
		conditions = append(conditions, "wip_number = ?")
		args = append(args, opts.WIPNumber)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY date_created DESC, id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return r.query(ctx, query, args...)
}

// LoadAll returns every job in stored order
func (r *JobRepository) LoadAll(ctx context.Context, tenantID string) ([]job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE tenant_id = ? ORDER BY position, id`
	return r.query(ctx, query, tenantID)
}

// SaveAll replaces the technician's jobs with jobs, in order, atomically
func (r *JobRepository) SaveAll(ctx context.Context, tenantID string, jobs []job.Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE tenant_id = ?`, tenantID); err != nil {
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	for i := range jobs {
		if err := insertJob(ctx, tx, tenantID, &jobs[i], "?", i); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("job %s: %w", jobs[i].ID, repository.ErrConflict)
			}
			return fmt.Errorf("failed to save job %s: %w", jobs[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit jobs: %w", err)
	}
	return nil
}

// DeleteAll removes every job for the technician
func (r *JobRepository) DeleteAll(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted jobs: %w", err)
	}
	return n, nil
}

func (r *JobRepository) query(ctx context.Context, query string, args ...any) ([]job.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []job.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*job.Job, error) {
	var j job.Job
	var created string
	var modified sql.NullString
	var status string
	if err := s.Scan(
		&j.ID,
		&j.WIPNumber,
		&j.VehicleRegistration,
		&j.AWValue,
		&j.Notes,
		&j.JobDescription,
		&created,
		&modified,
		&j.TimeInMinutes,
		&status,
	); err != nil {
		return nil, err
	}

	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("invalid date_created %q: %w", created, err)
	}
	j.DateCreated = t
	if modified.Valid {
		t, err := parseTime(modified.String)
		if err != nil {
			return nil, fmt.Errorf("invalid date_modified %q: %w", modified.String, err)
		}
		j.DateModified = &t
	}
	j.VHCStatus = job.VHCStatus(status)
	return &j, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

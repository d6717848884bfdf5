package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobarin/papervid/internal/models"
	"github.com/google/uuid"
)

const jobColumns = `
	id, type, status, pdf_path, quality, video_path, result,
	error_message, attempts, started_at, completed_at, created_at
`

func scanJob(row interface{ Scan(...interface{}) error }) (*models.Job, error) {
	job := &models.Job{}
	err := row.Scan(
		&job.ID, &job.Type, &job.Status, &job.PDFPath, &job.Quality,
		&job.VideoPath, &job.Result, &job.ErrorMessage, &job.Attempts,
		&job.StartedAt, &job.CompletedAt, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			id, type, status, pdf_path, quality, attempts
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.Type, job.Status, job.PDFPath, job.Quality, job.Attempts,
	).Scan(&job.CreatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (db *DB) ListJobs(ctx context.Context, limit, offset int) ([]models.Job, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, total, nil
}

// UpdateJobStatus moves a job between states. Entering processing stamps
// started_at; the terminal states stamp completed_at.
func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	now := time.Now()
	query := `UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3`

	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		query = `UPDATE jobs SET status = $1, completed_at = $2 WHERE id = $3`
	}

	_, err := db.ExecContext(ctx, query, status, now, id)
	return err
}

func (db *DB) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, completed_at = $3, attempts = attempts + 1
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusFailed, errorMessage, time.Now(), id)
	return err
}

func (db *DB) SetJobVideoPath(ctx context.Context, id uuid.UUID, videoPath string) error {
	_, err := db.ExecContext(ctx, `UPDATE jobs SET video_path = $1 WHERE id = $2`, videoPath, id)
	return err
}

func (db *DB) SetJobResult(ctx context.Context, id uuid.UUID, result models.JSONB) error {
	_, err := db.ExecContext(ctx, `UPDATE jobs SET result = $1 WHERE id = $2`, result, id)
	return err
}

func (db *DB) DeleteJob(ctx context.Context, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job not found")
	}

	return nil
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chyron/internal/services"
)

// NewJob creates a pending job for a (video, stage) pair. Callers may only
// create a new job for a stage once the prior job for that stage, if any,
// reached a terminal status.
func (s *Store) NewJob(ctx context.Context, videoID string, stage StageType) (*Job, error) {
	if _, err := s.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}

	active, err := s.activeJobForStage(ctx, videoID, stage)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"catalog", "new job",
			fmt.Sprintf("stage %s already has job %s in status %s", stage, active.ID, active.Status),
			nil,
		)
	}

	id := uuid.NewString()
	timestamp := nowTimestamp()
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, video_id, stage, status, progress, created_at, updated_at
        ) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id,
		videoID,
		stage,
		JobPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get job", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobsForVideo returns a video's jobs in creation order.
func (s *Store) ListJobsForVideo(ctx context.Context, videoID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE video_id = ? ORDER BY created_at, id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// JobUpdate describes the optional parts of an UpdateJobProgress call.
type JobUpdate struct {
	Status       *JobStatus
	ErrorMessage *string
	MetadataJSON *string
}

// UpdateJobProgress sets a job's progress, and optionally its status, error
// message, and metadata in the same update. This is the only mutation surface
// for a job. Terminal jobs reject further updates; a transition to failed
// resets progress to zero regardless of the supplied value.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int, update JobUpdate) (*Job, error) {
	if progress < 0 || progress > 100 {
		return nil, services.Wrap(
			services.ErrValidation,
			"catalog", "update job",
			fmt.Sprintf("progress %d outside 0-100", progress),
			nil,
		)
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"catalog", "update job",
			fmt.Sprintf("job %s already %s", id, job.Status),
			nil,
		)
	}

	status := job.Status
	if update.Status != nil {
		if !validJobTransition(job.Status, *update.Status) {
			return nil, services.Wrap(
				services.ErrInvalidTransition,
				"catalog", "update job",
				fmt.Sprintf("%s -> %s not permitted", job.Status, *update.Status),
				nil,
			)
		}
		status = *update.Status
	}
	if status == JobFailed {
		progress = 0
	}

	errorMessage := job.ErrorMessage
	if update.ErrorMessage != nil {
		errorMessage = *update.ErrorMessage
	}
	metadata := job.MetadataJSON
	if update.MetadataJSON != nil {
		metadata = *update.MetadataJSON
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET progress = ?, status = ?, error_message = ?, metadata_json = ?, updated_at = ? WHERE id = ?`,
		progress,
		status,
		nullableString(errorMessage),
		nullableString(metadata),
		nowTimestamp(),
		id,
	); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	return s.GetJob(ctx, id)
}

func validJobTransition(current, next JobStatus) bool {
	switch current {
	case JobPending:
		return next == JobProcessing || next == JobFailed
	case JobProcessing:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

func (s *Store) activeJobForStage(ctx context.Context, videoID string, stage StageType) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE video_id = ? AND stage = ? AND status IN (?, ?) ORDER BY created_at DESC LIMIT 1`,
		videoID,
		stage,
		JobPending,
		JobProcessing,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active job: %w", err)
	}
	return job, nil
}

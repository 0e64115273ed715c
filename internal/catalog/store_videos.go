package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chyron/internal/services"
)

// NewVideo inserts a video in the uploaded status, awaiting the pipeline.
func NewVideo(sourceRef, title string) *Video {
	return &Video{
		ID:        uuid.NewString(),
		Title:     title,
		SourceRef: sourceRef,
		Status:    VideoUploaded,
	}
}

// InsertVideo persists a freshly created video.
func (s *Store) InsertVideo(ctx context.Context, sourceRef, title string) (*Video, error) {
	if strings.TrimSpace(sourceRef) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "insert video", "source reference is required", nil)
	}

	video := NewVideo(strings.TrimSpace(sourceRef), strings.TrimSpace(title))
	timestamp := nowTimestamp()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO videos (
            id, title, source_ref, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		video.ID,
		nullableString(video.Title),
		video.SourceRef,
		video.Status,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	return s.GetVideo(ctx, video.ID)
}

// GetVideo fetches a video by identifier.
func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get video", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// ListVideos returns every video ordered by creation time.
func (s *Store) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+videoColumns+` FROM videos ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// ListVideosByStatus returns videos in the given status, oldest first.
func (s *Store) ListVideosByStatus(ctx context.Context, status VideoStatus) ([]*Video, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+videoColumns+` FROM videos WHERE status = ? ORDER BY created_at, id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list videos by status: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

func collectVideos(rows *sql.Rows) ([]*Video, error) {
	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// AdvanceVideo moves a video to the next status in the processing chain. Only
// the immediate successor is permitted; use FailVideo for failures.
func (s *Store) AdvanceVideo(ctx context.Context, id string, next VideoStatus) (*Video, error) {
	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAdvance(video.Status, next) {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"catalog", "advance video",
			fmt.Sprintf("%s -> %s not permitted", video.Status, next),
			nil,
		)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE videos SET status = ?, error_message = NULL, updated_at = ? WHERE id = ? AND status = ?`,
		next,
		nowTimestamp(),
		id,
		video.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("advance video: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"catalog", "advance video",
			fmt.Sprintf("video %s changed status concurrently", id),
			nil,
		)
	}

	return s.GetVideo(ctx, id)
}

// FailVideo marks a video failed with the given message. Permitted from any
// non-terminal status; the message must be non-empty.
func (s *Store) FailVideo(ctx context.Context, id, message string) (*Video, error) {
	if strings.TrimSpace(message) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "fail video", "error message is required", nil)
	}

	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if video.Status.Terminal() {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"catalog", "fail video",
			fmt.Sprintf("%s -> %s not permitted", video.Status, VideoFailed),
			nil,
		)
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE videos SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		VideoFailed,
		message,
		nowTimestamp(),
		id,
	); err != nil {
		return nil, fmt.Errorf("fail video: %w", err)
	}

	return s.GetVideo(ctx, id)
}

// SetVideoMedia records the metadata and storage reference produced by the
// acquisition stage.
func (s *Store) SetVideoMedia(ctx context.Context, id, title string, durationSeconds float64, storageRef string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE videos SET title = COALESCE(?, title), duration_seconds = ?, storage_ref = ?, updated_at = ? WHERE id = ?`,
		nullableString(title),
		durationSeconds,
		nullableString(storageRef),
		nowTimestamp(),
		id,
	); err != nil {
		return fmt.Errorf("set video media: %w", err)
	}
	return nil
}

// SetVideoLanguage records the transcript language reported by the transcriber.
func (s *Store) SetVideoLanguage(ctx context.Context, id, language string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE videos SET language = ?, updated_at = ? WHERE id = ?`,
		nullableString(language),
		nowTimestamp(),
		id,
	); err != nil {
		return fmt.Errorf("set video language: %w", err)
	}
	return nil
}

// ResetForRetry returns a failed video to the uploaded status and clears the
// work products of the failed run (jobs, chunks, embedding refs). Manual
// recovery only; the pipeline never calls this.
func (s *Store) ResetForRetry(ctx context.Context, id string) (*Video, error) {
	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if video.Status != VideoFailed {
		return nil, services.Wrap(
			services.ErrInvalidTransition,
			"catalog", "reset for retry",
			fmt.Sprintf("video %s is %s, not %s", id, video.Status, VideoFailed),
			nil,
		)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		txCtx := ensureContext(ctx)
		if _, err := tx.ExecContext(txCtx, `DELETE FROM jobs WHERE video_id = ?`, id); err != nil {
			return fmt.Errorf("clear jobs: %w", err)
		}
		if _, err := tx.ExecContext(txCtx, `DELETE FROM chunks WHERE video_id = ?`, id); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		if _, err := tx.ExecContext(
			txCtx,
			`UPDATE videos SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
			VideoUploaded,
			nowTimestamp(),
			id,
		); err != nil {
			return fmt.Errorf("reset video status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetVideo(ctx, id)
}

// HealthSummary aggregates lifecycle counts across the catalog.
func (s *Store) HealthSummary(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM videos GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health summary: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch status := VideoStatus(statusStr); {
		case status == VideoUploaded:
			summary.Uploaded += count
		case status.Processing():
			summary.Processing += count
		case status == VideoComplete:
			summary.Complete += count
		case status == VideoFailed:
			summary.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, fmt.Errorf("iterate health rows: %w", err)
	}
	return summary, nil
}

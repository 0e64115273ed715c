package catalog

import (
	"database/sql"
	"strings"
	"time"
)

const videoColumns = "id, title, source_ref, storage_ref, duration_seconds, language, status, error_message, created_at, updated_at"

const jobColumns = "id, video_id, stage, status, progress, error_message, metadata_json, created_at, updated_at"

const chunkColumns = "id, video_id, ordinal, text, start_time, end_time, token_estimate, created_at"

const embeddingRefColumns = "chunk_id, video_id, vector_id, model, dimensions, created_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanVideo(scanner rowScanner) (*Video, error) {
	var (
		id         string
		title      sql.NullString
		sourceRef  string
		storageRef sql.NullString
		duration   sql.NullFloat64
		language   sql.NullString
		statusStr  string
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&id,
		&title,
		&sourceRef,
		&storageRef,
		&duration,
		&language,
		&statusStr,
		&errMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:              id,
		Title:           title.String,
		SourceRef:       sourceRef,
		StorageRef:      storageRef.String,
		DurationSeconds: duration.Float64,
		Language:        language.String,
		Status:          VideoStatus(statusStr),
		ErrorMessage:    errMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		id         string
		videoID    string
		stageStr   string
		statusStr  string
		progress   sql.NullInt64
		errMessage sql.NullString
		metadata   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&id,
		&videoID,
		&stageStr,
		&statusStr,
		&progress,
		&errMessage,
		&metadata,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		VideoID:      videoID,
		Stage:        StageType(stageStr),
		Status:       JobStatus(statusStr),
		Progress:     int(progress.Int64),
		ErrorMessage: errMessage.String,
		MetadataJSON: metadata.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanChunk(scanner rowScanner) (*Chunk, error) {
	var (
		id         string
		videoID    string
		ordinal    int
		text       string
		startTime  float64
		endTime    float64
		tokens     int
		createdRaw string
	)
	if err := scanner.Scan(
		&id,
		&videoID,
		&ordinal,
		&text,
		&startTime,
		&endTime,
		&tokens,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	chunk := &Chunk{
		ID:            id,
		VideoID:       videoID,
		Ordinal:       ordinal,
		Text:          text,
		StartTime:     startTime,
		EndTime:       endTime,
		TokenEstimate: tokens,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		chunk.CreatedAt = created
	}
	return chunk, nil
}

func scanEmbeddingRef(scanner rowScanner) (*EmbeddingRef, error) {
	var (
		chunkID    string
		videoID    string
		vectorID   string
		model      string
		dimensions int
		createdRaw string
	)
	if err := scanner.Scan(
		&chunkID,
		&videoID,
		&vectorID,
		&model,
		&dimensions,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	ref := &EmbeddingRef{
		ChunkID:    chunkID,
		VideoID:    videoID,
		VectorID:   vectorID,
		Model:      model,
		Dimensions: dimensions,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		ref.CreatedAt = created
	}
	return ref, nil
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

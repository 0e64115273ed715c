package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chyron/internal/services"
)

// ChunkInput is the caller-supplied shape for ReplaceChunks. Ordinals are
// assigned by the store from slice position.
type ChunkInput struct {
	Text          string
	StartTime     float64
	EndTime       float64
	TokenEstimate int
}

// ReplaceChunks swaps a video's entire chunk set in one transaction. Existing
// chunks and their embedding refs are deleted; the new chunks receive
// contiguous ordinals 0..N-1. Readers never observe a partial set.
func (s *Store) ReplaceChunks(ctx context.Context, videoID string, inputs []ChunkInput) ([]*Chunk, error) {
	if _, err := s.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}
	for i, input := range inputs {
		if input.StartTime > input.EndTime {
			return nil, services.Wrap(
				services.ErrValidation,
				"catalog", "replace chunks",
				fmt.Sprintf("chunk %d start %.3f after end %.3f", i, input.StartTime, input.EndTime),
				nil,
			)
		}
	}

	timestamp := nowTimestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txCtx := ensureContext(ctx)
		if _, err := tx.ExecContext(txCtx, `DELETE FROM chunks WHERE video_id = ?`, videoID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		for ordinal, input := range inputs {
			if _, err := tx.ExecContext(
				txCtx,
				`INSERT INTO chunks (
                    id, video_id, ordinal, text, start_time, end_time, token_estimate, created_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(),
				videoID,
				ordinal,
				input.Text,
				input.StartTime,
				input.EndTime,
				input.TokenEstimate,
				timestamp,
			); err != nil {
				return fmt.Errorf("insert chunk %d: %w", ordinal, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ChunksForVideo(ctx, videoID)
}

// ChunksForVideo returns a video's chunks in ordinal order.
func (s *Store) ChunksForVideo(ctx context.Context, videoID string) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+chunkColumns+` FROM chunks WHERE video_id = ? ORDER BY ordinal`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk fetches a chunk by identifier.
func (s *Store) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get chunk", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return chunk, nil
}

// CountChunks returns the number of chunks stored for a video.
func (s *Store) CountChunks(ctx context.Context, videoID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM chunks WHERE video_id = ?`,
		videoID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// PutEmbeddingRef records that a chunk's vector was stored in the index.
// At most one ref per chunk; re-embedding overwrites the prior ref.
func (s *Store) PutEmbeddingRef(ctx context.Context, ref EmbeddingRef) error {
	if ref.ChunkID == "" || ref.VectorID == "" {
		return services.Wrap(services.ErrValidation, "catalog", "put embedding ref", "chunk id and vector id are required", nil)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO embedding_refs (chunk_id, video_id, vector_id, model, dimensions, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(chunk_id) DO UPDATE SET
             vector_id = excluded.vector_id,
             model = excluded.model,
             dimensions = excluded.dimensions,
             created_at = excluded.created_at`,
		ref.ChunkID,
		ref.VideoID,
		ref.VectorID,
		ref.Model,
		ref.Dimensions,
		nowTimestamp(),
	); err != nil {
		return fmt.Errorf("put embedding ref: %w", err)
	}
	return nil
}

// EmbeddingRefForChunk fetches the embedding ref for a chunk, if any.
func (s *Store) EmbeddingRefForChunk(ctx context.Context, chunkID string) (*EmbeddingRef, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+embeddingRefColumns+` FROM embedding_refs WHERE chunk_id = ?`,
		chunkID,
	)
	ref, err := scanEmbeddingRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get embedding ref", chunkID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding ref: %w", err)
	}
	return ref, nil
}

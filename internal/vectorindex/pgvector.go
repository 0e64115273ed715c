package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"chyron/internal/services"
)

// PgVector stores vectors in a Postgres table with the pgvector extension,
// queried with the cosine distance operator.
type PgVector struct {
	pool *pgxpool.Pool
	dims int
}

// NewPgVector connects to Postgres, ensures the extension, table, and
// ivfflat index, and returns the backend.
func NewPgVector(ctx context.Context, dsn string, dims int) (*PgVector, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "pgvector connect", dsn, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "pgvector ping", "", err)
	}

	index := &PgVector{pool: pool, dims: dims}
	if err := index.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return index, nil
}

func (p *PgVector) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunk_vectors (
            id TEXT PRIMARY KEY,
            video_id TEXT NOT NULL,
            ordinal INTEGER NOT NULL DEFAULT 0,
            text TEXT NOT NULL DEFAULT '',
            start_time DOUBLE PRECISION NOT NULL DEFAULT 0,
            end_time DOUBLE PRECISION NOT NULL DEFAULT 0,
            embedding vector(%d)
        )`, p.dims),
		`CREATE INDEX IF NOT EXISTS idx_chunk_vectors_video_id ON chunk_vectors (video_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_vectors_embedding ON chunk_vectors
            USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	}
	for _, statement := range statements {
		if _, err := p.pool.Exec(ctx, statement); err != nil {
			return services.Wrap(services.ErrExternal, "vectorindex", "pgvector schema", statement, err)
		}
	}
	return nil
}

func (p *PgVector) Upsert(ctx context.Context, entries []Entry) error {
	for _, entry := range entries {
		_, err := p.pool.Exec(ctx, `
            INSERT INTO chunk_vectors (id, video_id, ordinal, text, start_time, end_time, embedding)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (id) DO UPDATE SET
                video_id = EXCLUDED.video_id,
                ordinal = EXCLUDED.ordinal,
                text = EXCLUDED.text,
                start_time = EXCLUDED.start_time,
                end_time = EXCLUDED.end_time,
                embedding = EXCLUDED.embedding`,
			entry.ID,
			entry.Metadata.VideoID,
			entry.Metadata.Ordinal,
			entry.Metadata.Text,
			entry.Metadata.StartTime,
			entry.Metadata.EndTime,
			pgvector.NewVector(entry.Vector),
		)
		if err != nil {
			return services.Wrap(services.ErrExternal, "vectorindex", "pgvector upsert", entry.ID, err)
		}
	}
	return nil
}

func (p *PgVector) Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	query := `
        SELECT id, video_id, ordinal, text, start_time, end_time,
               1 - (embedding <=> $1) AS similarity
        FROM chunk_vectors`
	args := []any{pgvector.NewVector(vector)}
	if filter != nil && filter.VideoID != "" {
		query += ` WHERE video_id = $2 ORDER BY embedding <=> $1 LIMIT $3`
		args = append(args, filter.VideoID, topK)
	} else {
		query += ` ORDER BY embedding <=> $1 LIMIT $2`
		args = append(args, topK)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "pgvector query", "", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		if err := rows.Scan(
			&match.ID,
			&match.Metadata.VideoID,
			&match.Metadata.Ordinal,
			&match.Metadata.Text,
			&match.Metadata.StartTime,
			&match.Metadata.EndTime,
			&match.Score,
		); err != nil {
			return nil, services.Wrap(services.ErrExternal, "vectorindex", "pgvector scan", "", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "pgvector rows", "", err)
	}
	return matches, nil
}

func (p *PgVector) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM chunk_vectors WHERE id = ANY($1)`, ids); err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "pgvector delete", "", err)
	}
	return nil
}

func (p *PgVector) Close() error {
	p.pool.Close()
	return nil
}

// Package vectorindex stores chunk embeddings and answers similarity
// queries. Three backends are provided: an in-process memory index, a
// Postgres pgvector index, and a Milvus collection. The catalog remains the
// canonical chunk store; index metadata is a denormalized cache used as a
// hydration fallback.
package vectorindex

import (
	"context"
	"fmt"

	"chyron/internal/config"
	"chyron/internal/services"
)

// Metadata is the denormalized chunk payload carried alongside each vector.
type Metadata struct {
	VideoID   string
	Ordinal   int
	Text      string
	StartTime float64
	EndTime   float64
}

// Entry is one vector to upsert, keyed by chunk id.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is one query result. Results arrive ranked by score, descending.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Filter narrows a query to one video when VideoID is non-empty.
type Filter struct {
	VideoID string
}

// Index is the vector store contract consumed by the embed stage and the
// retrieval assembler.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	Close() error
}

// New selects and connects the backend named by cfg.
func New(ctx context.Context, cfg *config.Config) (Index, error) {
	switch cfg.VectorIndex.Backend {
	case "memory", "":
		return NewMemory(), nil
	case "pgvector":
		return NewPgVector(ctx, cfg.VectorIndex.PostgresDSN, cfg.VectorIndex.Dimensions)
	case "milvus":
		return NewMilvus(ctx, MilvusConfig{
			Address:    cfg.VectorIndex.MilvusAddr,
			Username:   cfg.VectorIndex.MilvusUsername,
			Password:   cfg.VectorIndex.MilvusPassword,
			APIKey:     cfg.VectorIndex.MilvusAPIKey,
			Collection: cfg.VectorIndex.MilvusCollection,
			Dimensions: cfg.VectorIndex.Dimensions,
		})
	default:
		return nil, services.Wrap(
			services.ErrConfiguration,
			"vectorindex", "new",
			fmt.Sprintf("unknown backend %q", cfg.VectorIndex.Backend),
			nil,
		)
	}
}

package stages

import (
	"context"
	"log/slog"

	"chyron/internal/catalog"
	"chyron/internal/logging"
	"chyron/internal/services"
	"chyron/internal/vectorindex"
)

const defaultEmbedBatchSize = 32

// Embedder turns text into vectors. Batch output order matches input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Embed vectorizes a video's chunks, upserts them into the vector index, and
// records an embedding ref per chunk.
type Embed struct {
	store     *catalog.Store
	embedder  Embedder
	index     vectorindex.Index
	model     string
	batchSize int
	logger    *slog.Logger
}

// NewEmbed builds the embedding stage.
func NewEmbed(store *catalog.Store, embedder Embedder, index vectorindex.Index, model string, logger *slog.Logger) *Embed {
	return &Embed{
		store:     store,
		embedder:  embedder,
		index:     index,
		model:     model,
		batchSize: defaultEmbedBatchSize,
		logger:    logging.WithComponent(logger, "stage.embed"),
	}
}

func (e *Embed) Name() string             { return "embed chunks" }
func (e *Embed) Stage() catalog.StageType { return catalog.StageEmbedChunks }

func (e *Embed) Run(ctx context.Context, video *catalog.Video, job *catalog.Job) error {
	reportProgress(ctx, e.store, e.logger, job.ID, 5)

	chunks, err := e.store.ChunksForVideo(ctx, video.ID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return services.Wrap(services.ErrNotReady, e.Name(), "run", "video has no chunks", nil)
	}

	for offset := 0; offset < len(chunks); offset += e.batchSize {
		end := offset + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, chunk.Text)
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return services.Wrap(services.ErrExternal, e.Name(), "embed batch", "vector count mismatch", nil)
		}

		entries := make([]vectorindex.Entry, 0, len(batch))
		for i, chunk := range batch {
			entries = append(entries, vectorindex.Entry{
				ID:     chunk.ID,
				Vector: vectors[i],
				Metadata: vectorindex.Metadata{
					VideoID:   chunk.VideoID,
					Ordinal:   chunk.Ordinal,
					Text:      chunk.Text,
					StartTime: chunk.StartTime,
					EndTime:   chunk.EndTime,
				},
			})
		}
		if err := e.index.Upsert(ctx, entries); err != nil {
			return err
		}

		for i, chunk := range batch {
			if err := e.store.PutEmbeddingRef(ctx, catalog.EmbeddingRef{
				ChunkID:    chunk.ID,
				VideoID:    chunk.VideoID,
				VectorID:   chunk.ID,
				Model:      e.model,
				Dimensions: len(vectors[i]),
			}); err != nil {
				return err
			}
		}

		// 5 at start, remainder spread across batches.
		progress := 5 + (95*end)/len(chunks)
		reportProgress(ctx, e.store, e.logger, job.ID, progress)
	}

	e.logger.InfoContext(ctx, "chunks embedded",
		logging.Int("chunks", len(chunks)),
		logging.String("model", e.model),
	)
	return nil
}

package stages

import (
	"context"
	"log/slog"

	"chyron/internal/catalog"
	"chyron/internal/chunking"
	"chyron/internal/logging"
	"chyron/internal/services"
)

// ChunkTranscript merges the raw per-segment chunks into overlapping
// semantic chunks and replaces the video's chunk set with them.
type ChunkTranscript struct {
	store  *catalog.Store
	opts   chunking.Options
	logger *slog.Logger
}

// NewChunkTranscript builds the chunking stage.
func NewChunkTranscript(store *catalog.Store, opts chunking.Options, logger *slog.Logger) *ChunkTranscript {
	return &ChunkTranscript{
		store:  store,
		opts:   opts,
		logger: logging.WithComponent(logger, "stage.chunk"),
	}
}

func (c *ChunkTranscript) Name() string             { return "chunk transcript" }
func (c *ChunkTranscript) Stage() catalog.StageType { return catalog.StageChunkTranscript }

func (c *ChunkTranscript) Run(ctx context.Context, video *catalog.Video, job *catalog.Job) error {
	reportProgress(ctx, c.store, c.logger, job.ID, 10)

	raw, err := c.store.ChunksForVideo(ctx, video.ID)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return services.Wrap(services.ErrNotReady, c.Name(), "run", "video has no transcript", nil)
	}

	segments := make([]chunking.Segment, 0, len(raw))
	for _, chunk := range raw {
		segments = append(segments, chunking.Segment{
			Text:      chunk.Text,
			StartTime: chunk.StartTime,
			EndTime:   chunk.EndTime,
		})
	}
	reportProgress(ctx, c.store, c.logger, job.ID, 40)

	pieces := chunking.Chunk(segments, c.opts)
	inputs := make([]catalog.ChunkInput, 0, len(pieces))
	for _, piece := range pieces {
		inputs = append(inputs, catalog.ChunkInput{
			Text:          piece.Text,
			StartTime:     piece.StartTime,
			EndTime:       piece.EndTime,
			TokenEstimate: piece.TokenEstimate,
		})
	}
	if _, err := c.store.ReplaceChunks(ctx, video.ID, inputs); err != nil {
		return err
	}

	reportProgress(ctx, c.store, c.logger, job.ID, 100)
	c.logger.InfoContext(ctx, "transcript chunked",
		logging.Int("segments", len(segments)),
		logging.Int("chunks", len(inputs)),
	)
	return nil
}

// Package retrieval answers natural-language questions over embedded
// transcripts. The assembler is a pure read path: it embeds the query,
// pulls ranked matches from the vector index, hydrates them against the
// catalog, and hands the assembled context to the answer generator.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chyron/internal/catalog"
	"chyron/internal/logging"
	"chyron/internal/services"
	"chyron/internal/vectorindex"
)

// NoMatchAnswer is returned verbatim when the index yields no matches.
const NoMatchAnswer = "No relevant content found for your query."

const defaultMaxChunks = 5

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the final answer from the query and assembled context.
type Generator interface {
	Answer(ctx context.Context, query, contextText string) (string, error)
}

// Source is one transcript chunk backing an answer, in ranked order.
type Source struct {
	ChunkID   string
	VideoID   string
	Text      string
	StartTime float64
	EndTime   float64
	Score     float64
}

// Result is the outcome of one query.
type Result struct {
	Answer  string
	Sources []Source
}

// Assembler wires the retrieval collaborators together.
type Assembler struct {
	store     *catalog.Store
	embedder  Embedder
	index     vectorindex.Index
	generator Generator
	logger    *slog.Logger
}

// NewAssembler builds a retrieval assembler.
func NewAssembler(store *catalog.Store, embedder Embedder, index vectorindex.Index, generator Generator, logger *slog.Logger) *Assembler {
	return &Assembler{
		store:     store,
		embedder:  embedder,
		index:     index,
		generator: generator,
		logger:    logging.WithComponent(logger, "retrieval"),
	}
}

// AnswerQuery answers a question over the embedded corpus, optionally
// scoped to one video. A scoped query requires the video to be complete.
// maxChunks <= 0 selects the default.
func (a *Assembler) AnswerQuery(ctx context.Context, query, videoID string, maxChunks int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, services.Wrap(services.ErrValidation, "retrieval", "answer query", "query must not be empty", nil)
	}
	if videoID != "" {
		video, err := a.store.GetVideo(ctx, videoID)
		if err != nil {
			return nil, err
		}
		if video.Status != catalog.VideoComplete {
			return nil, services.Wrap(
				services.ErrNotReady,
				"retrieval", "answer query",
				fmt.Sprintf("video %s is %s, not complete", videoID, video.Status),
				nil,
			)
		}
	}
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var filter *vectorindex.Filter
	if videoID != "" {
		filter = &vectorindex.Filter{VideoID: videoID}
	}
	matches, err := a.index.Query(ctx, vector, maxChunks, filter)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &Result{Answer: NoMatchAnswer, Sources: []Source{}}, nil
	}

	sources, err := a.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}

	answer, err := a.generator.Answer(ctx, query, buildContext(sources))
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "query answered",
		logging.String(logging.FieldEventType, logging.EventQueryAnswered),
		logging.Int("sources", len(sources)),
	)
	return &Result{Answer: answer, Sources: sources}, nil
}

// hydrate resolves each match against the catalog, keeping the index's
// ranking order. A chunk missing from the catalog falls back to the
// denormalized index metadata.
func (a *Assembler) hydrate(ctx context.Context, matches []vectorindex.Match) ([]Source, error) {
	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		source := Source{
			ChunkID:   match.ID,
			VideoID:   match.Metadata.VideoID,
			Text:      match.Metadata.Text,
			StartTime: match.Metadata.StartTime,
			EndTime:   match.Metadata.EndTime,
			Score:     match.Score,
		}
		chunk, err := a.store.GetChunk(ctx, match.ID)
		switch {
		case err == nil:
			source.VideoID = chunk.VideoID
			source.Text = chunk.Text
			source.StartTime = chunk.StartTime
			source.EndTime = chunk.EndTime
		case errors.Is(err, services.ErrNotFound):
			// Index holds a vector the catalog no longer knows about.
		default:
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}

func buildContext(sources []Source) string {
	var b strings.Builder
	for i, source := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s - %s] %s", formatTimestamp(source.StartTime), formatTimestamp(source.EndTime), source.Text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

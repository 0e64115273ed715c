package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chyron/internal/catalog"
	"chyron/internal/logging"
	"chyron/internal/retrieval"
	"chyron/internal/services"
	"chyron/internal/testsupport"
	"chyron/internal/vectorindex"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeGenerator struct {
	answer  string
	err     error
	calls   int
	context string
	query   string
}

func (f *fakeGenerator) Answer(_ context.Context, query, contextText string) (string, error) {
	f.calls++
	f.query = query
	f.context = contextText
	return f.answer, f.err
}

func completeVideo(t *testing.T, store *catalog.Store, id string) {
	t.Helper()
	chain := []catalog.VideoStatus{
		catalog.VideoDownloading,
		catalog.VideoTranscribing,
		catalog.VideoChunking,
		catalog.VideoEmbedding,
		catalog.VideoComplete,
	}
	for _, status := range chain {
		if _, err := store.AdvanceVideo(context.Background(), id, status); err != nil {
			t.Fatalf("AdvanceVideo(%s): %v", status, err)
		}
	}
}

func TestAnswerQueryReturnsRankedSources(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, store, "https://example.com/watch?v=r", "Ranked")
	completeVideo(t, store, video.ID)

	chunks, err := store.ReplaceChunks(context.Background(), video.ID, []catalog.ChunkInput{
		{Text: "the sky is blue", StartTime: 0, EndTime: 5, TokenEstimate: 4},
		{Text: "grass is green", StartTime: 5, EndTime: 125, TokenEstimate: 4},
	})
	if err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	index := vectorindex.NewMemory()
	if err := index.Upsert(context.Background(), []vectorindex.Entry{
		{ID: chunks[0].ID, Vector: []float32{1, 0}, Metadata: vectorindex.Metadata{VideoID: video.ID}},
		{ID: chunks[1].ID, Vector: []float32{0, 1}, Metadata: vectorindex.Metadata{VideoID: video.ID}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	embedder := &fakeEmbedder{vector: []float32{0.1, 1}}
	generator := &fakeGenerator{answer: "grass is green."}
	assembler := retrieval.NewAssembler(store, embedder, index, generator, logging.NewNop())

	result, err := assembler.AnswerQuery(context.Background(), "what color is grass?", video.ID, 2)
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if result.Answer != "grass is green." {
		t.Fatalf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("sources = %+v", result.Sources)
	}
	// Query vector is nearest the second chunk's vector.
	if result.Sources[0].ChunkID != chunks[1].ID {
		t.Fatalf("top source = %s, want %s", result.Sources[0].ChunkID, chunks[1].ID)
	}
	if result.Sources[0].Text != "grass is green" {
		t.Fatalf("top source text = %q", result.Sources[0].Text)
	}
	if result.Sources[0].Score < result.Sources[1].Score {
		t.Fatal("sources not in ranked order")
	}
	if !strings.Contains(generator.context, "[00:05 - 02:05] grass is green") {
		t.Fatalf("context = %q", generator.context)
	}
	if generator.query != "what color is grass?" {
		t.Fatalf("query = %q", generator.query)
	}
}

func TestAnswerQueryRejectsEmptyQuery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	embedder := &fakeEmbedder{}
	assembler := retrieval.NewAssembler(store, embedder, vectorindex.NewMemory(), &fakeGenerator{}, logging.NewNop())

	_, err := assembler.AnswerQuery(context.Background(), "   ", "", 5)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if embedder.calls != 0 {
		t.Fatal("embedder called for invalid query")
	}
}

func TestAnswerQueryRequiresCompleteVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewVideo(t, store, "https://example.com/watch?v=p", "")

	embedder := &fakeEmbedder{vector: []float32{1}}
	generator := &fakeGenerator{}
	assembler := retrieval.NewAssembler(store, embedder, vectorindex.NewMemory(), generator, logging.NewNop())

	_, err := assembler.AnswerQuery(context.Background(), "anything", video.ID, 5)
	if !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if embedder.calls != 0 || generator.calls != 0 {
		t.Fatal("collaborators called before readiness check")
	}
}

func TestAnswerQueryUnknownVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	assembler := retrieval.NewAssembler(store, &fakeEmbedder{}, vectorindex.NewMemory(), &fakeGenerator{}, logging.NewNop())
	_, err := assembler.AnswerQuery(context.Background(), "anything", "no-such-video", 5)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnswerQueryNoMatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	generator := &fakeGenerator{answer: "should not be used"}
	assembler := retrieval.NewAssembler(store, &fakeEmbedder{vector: []float32{1, 0}}, vectorindex.NewMemory(), generator, logging.NewNop())

	result, err := assembler.AnswerQuery(context.Background(), "anything", "", 5)
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if result.Answer != retrieval.NoMatchAnswer {
		t.Fatalf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("sources = %+v", result.Sources)
	}
	if generator.calls != 0 {
		t.Fatal("generator called despite zero matches")
	}
}

func TestAnswerQueryHydrationFallsBackToIndexMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	index := vectorindex.NewMemory()
	if err := index.Upsert(context.Background(), []vectorindex.Entry{
		{ID: "orphan-chunk", Vector: []float32{1, 0}, Metadata: vectorindex.Metadata{
			VideoID:   "gone-video",
			Text:      "cached text",
			StartTime: 10,
			EndTime:   20,
		}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	generator := &fakeGenerator{answer: "answer from cache"}
	assembler := retrieval.NewAssembler(store, &fakeEmbedder{vector: []float32{1, 0}}, index, generator, logging.NewNop())

	result, err := assembler.AnswerQuery(context.Background(), "anything", "", 5)
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("sources = %+v", result.Sources)
	}
	source := result.Sources[0]
	if source.Text != "cached text" || source.VideoID != "gone-video" || source.StartTime != 10 {
		t.Fatalf("source = %+v", source)
	}
	if !strings.Contains(generator.context, "[00:10 - 00:20] cached text") {
		t.Fatalf("context = %q", generator.context)
	}
}

func TestAnswerQueryPropagatesEmbedderFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	assembler := retrieval.NewAssembler(store, &fakeEmbedder{
		err: services.Wrap(services.ErrExternal, "retrieval", "embed", "quota exceeded", nil),
	}, vectorindex.NewMemory(), &fakeGenerator{}, logging.NewNop())

	_, err := assembler.AnswerQuery(context.Background(), "anything", "", 5)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected ErrExternal, got %v", err)
	}
}

package catalog_test

import (
	"context"
	"errors"
	"testing"

	"chyron/internal/catalog"
	"chyron/internal/services"
	"chyron/internal/testsupport"
)

func TestInsertVideoStartsUploaded(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	video, err := store.InsertVideo(ctx, "https://example.com/watch?v=abc", "Intro Lecture")
	if err != nil {
		t.Fatalf("InsertVideo: %v", err)
	}
	if video.Status != catalog.VideoUploaded {
		t.Fatalf("status = %s, want %s", video.Status, catalog.VideoUploaded)
	}
	if video.ID == "" {
		t.Fatal("expected generated id")
	}
	if video.Title != "Intro Lecture" {
		t.Fatalf("title = %q", video.Title)
	}
	if video.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", video.ErrorMessage)
	}
}

func TestInsertVideoRequiresSource(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := store.InsertVideo(context.Background(), "   ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetVideoMissing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := store.GetVideo(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdvanceVideoWalksChain(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "file:///tmp/talk.mp4", "")

	chain := []catalog.VideoStatus{
		catalog.VideoDownloading,
		catalog.VideoTranscribing,
		catalog.VideoChunking,
		catalog.VideoEmbedding,
		catalog.VideoComplete,
	}
	for _, next := range chain {
		updated, err := store.AdvanceVideo(ctx, video.ID, next)
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("status = %s, want %s", updated.Status, next)
		}
	}
}

func TestAdvanceVideoRejectsSkips(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	cases := []catalog.VideoStatus{
		catalog.VideoTranscribing,
		catalog.VideoEmbedding,
		catalog.VideoComplete,
		catalog.VideoUploaded,
		catalog.VideoFailed,
	}
	for _, target := range cases {
		if _, err := store.AdvanceVideo(ctx, video.ID, target); !errors.Is(err, services.ErrInvalidTransition) {
			t.Fatalf("advance uploaded -> %s: expected ErrInvalidTransition, got %v", target, err)
		}
	}
}

func TestFailVideoRequiresMessage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	if _, err := store.FailVideo(ctx, video.ID, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty message, got %v", err)
	}

	failed, err := store.FailVideo(ctx, video.ID, "quota exceeded")
	if err != nil {
		t.Fatalf("FailVideo: %v", err)
	}
	if failed.Status != catalog.VideoFailed || failed.ErrorMessage != "quota exceeded" {
		t.Fatalf("got status %s message %q", failed.Status, failed.ErrorMessage)
	}
}

func TestFailVideoFromAnyProcessingState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	if _, err := store.AdvanceVideo(ctx, video.ID, catalog.VideoDownloading); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := store.AdvanceVideo(ctx, video.ID, catalog.VideoTranscribing); err != nil {
		t.Fatalf("advance: %v", err)
	}

	failed, err := store.FailVideo(ctx, video.ID, "whisper server unreachable")
	if err != nil {
		t.Fatalf("FailVideo: %v", err)
	}
	if failed.Status != catalog.VideoFailed {
		t.Fatalf("status = %s", failed.Status)
	}
}

func TestFailVideoRejectedWhenTerminal(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	if _, err := store.FailVideo(ctx, video.ID, "first failure"); err != nil {
		t.Fatalf("FailVideo: %v", err)
	}
	if _, err := store.FailVideo(ctx, video.ID, "second failure"); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestJobLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	job, err := store.NewJob(ctx, video.ID, catalog.StageAcquireAudio)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != catalog.JobPending || job.Progress != 0 {
		t.Fatalf("new job status %s progress %d", job.Status, job.Progress)
	}

	processing := catalog.JobProcessing
	job, err = store.UpdateJobProgress(ctx, job.ID, 10, catalog.JobUpdate{Status: &processing})
	if err != nil {
		t.Fatalf("to processing: %v", err)
	}

	job, err = store.UpdateJobProgress(ctx, job.ID, 60, catalog.JobUpdate{})
	if err != nil {
		t.Fatalf("progress update: %v", err)
	}
	if job.Progress != 60 || job.Status != catalog.JobProcessing {
		t.Fatalf("job progress %d status %s", job.Progress, job.Status)
	}

	completed := catalog.JobCompleted
	job, err = store.UpdateJobProgress(ctx, job.ID, 100, catalog.JobUpdate{Status: &completed})
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if job.Progress != 100 || job.Status != catalog.JobCompleted {
		t.Fatalf("job progress %d status %s", job.Progress, job.Status)
	}

	if _, err := store.UpdateJobProgress(ctx, job.ID, 100, catalog.JobUpdate{}); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("terminal job accepted update: %v", err)
	}
}

func TestJobFailureResetsProgress(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	job, err := store.NewJob(ctx, video.ID, catalog.StageEmbedChunks)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	processing := catalog.JobProcessing
	if _, err := store.UpdateJobProgress(ctx, job.ID, 45, catalog.JobUpdate{Status: &processing}); err != nil {
		t.Fatalf("to processing: %v", err)
	}

	failed := catalog.JobFailed
	message := "quota exceeded"
	job, err = store.UpdateJobProgress(ctx, job.ID, 45, catalog.JobUpdate{Status: &failed, ErrorMessage: &message})
	if err != nil {
		t.Fatalf("to failed: %v", err)
	}
	if job.Status != catalog.JobFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Progress != 0 {
		t.Fatalf("failed job progress = %d, want 0", job.Progress)
	}
	if job.ErrorMessage != "quota exceeded" {
		t.Fatalf("error message = %q", job.ErrorMessage)
	}
}

func TestNewJobRejectsActiveDuplicate(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	first, err := store.NewJob(ctx, video.ID, catalog.StageTranscribe)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.NewJob(ctx, video.ID, catalog.StageTranscribe); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	failed := catalog.JobFailed
	msg := "boom"
	if _, err := store.UpdateJobProgress(ctx, first.ID, 0, catalog.JobUpdate{Status: &failed, ErrorMessage: &msg}); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	if _, err := store.NewJob(ctx, video.ID, catalog.StageTranscribe); err != nil {
		t.Fatalf("new job after terminal prior: %v", err)
	}
}

func TestReplaceChunksAssignsContiguousOrdinals(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	first, err := store.ReplaceChunks(ctx, video.ID, []catalog.ChunkInput{
		{Text: "hello there", StartTime: 0, EndTime: 2, TokenEstimate: 3},
		{Text: "general kenobi", StartTime: 2, EndTime: 4, TokenEstimate: 4},
		{Text: "you are bold", StartTime: 4, EndTime: 6, TokenEstimate: 3},
	})
	if err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	for i, chunk := range first {
		if chunk.Ordinal != i {
			t.Fatalf("chunk %d ordinal = %d", i, chunk.Ordinal)
		}
	}

	second, err := store.ReplaceChunks(ctx, video.ID, []catalog.ChunkInput{
		{Text: "hello there general kenobi", StartTime: 0, EndTime: 4, TokenEstimate: 7},
	})
	if err != nil {
		t.Fatalf("second ReplaceChunks: %v", err)
	}
	if len(second) != 1 || second[0].Ordinal != 0 {
		t.Fatalf("replacement set %+v", second)
	}

	count, err := store.CountChunks(ctx, video.ID)
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if count != 1 {
		t.Fatalf("chunk count = %d, want 1", count)
	}
}

func TestReplaceChunksRejectsInvertedTimes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	_, err := store.ReplaceChunks(ctx, video.ID, []catalog.ChunkInput{
		{Text: "backwards", StartTime: 5, EndTime: 1, TokenEstimate: 2},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestReplaceChunksDropsEmbeddingRefs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	chunks, err := store.ReplaceChunks(ctx, video.ID, []catalog.ChunkInput{
		{Text: "alpha", StartTime: 0, EndTime: 1, TokenEstimate: 2},
	})
	if err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	ref := catalog.EmbeddingRef{
		ChunkID:    chunks[0].ID,
		VideoID:    video.ID,
		VectorID:   chunks[0].ID,
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	}
	if err := store.PutEmbeddingRef(ctx, ref); err != nil {
		t.Fatalf("PutEmbeddingRef: %v", err)
	}
	if _, err := store.EmbeddingRefForChunk(ctx, chunks[0].ID); err != nil {
		t.Fatalf("EmbeddingRefForChunk: %v", err)
	}

	if _, err := store.ReplaceChunks(ctx, video.ID, []catalog.ChunkInput{
		{Text: "beta", StartTime: 0, EndTime: 1, TokenEstimate: 2},
	}); err != nil {
		t.Fatalf("second ReplaceChunks: %v", err)
	}
	if _, err := store.EmbeddingRefForChunk(ctx, chunks[0].ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("stale embedding ref survived replacement: %v", err)
	}
}

func TestResetForRetry(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, store, "https://example.com/v", "")

	if _, err := store.ResetForRetry(ctx, video.ID); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("reset of non-failed video: %v", err)
	}

	if _, err := store.NewJob(ctx, video.ID, catalog.StageAcquireAudio); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.ReplaceChunks(ctx, video.ID, []catalog.ChunkInput{
		{Text: "stale", StartTime: 0, EndTime: 1, TokenEstimate: 2},
	}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	if _, err := store.FailVideo(ctx, video.ID, "downloader crashed"); err != nil {
		t.Fatalf("FailVideo: %v", err)
	}

	reset, err := store.ResetForRetry(ctx, video.ID)
	if err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}
	if reset.Status != catalog.VideoUploaded || reset.ErrorMessage != "" {
		t.Fatalf("reset video status %s message %q", reset.Status, reset.ErrorMessage)
	}

	jobs, err := store.ListJobsForVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("ListJobsForVideo: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected jobs cleared, got %d", len(jobs))
	}
	count, err := store.CountChunks(ctx, video.ID)
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected chunks cleared, got %d", count)
	}
}

func TestHealthSummary(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	uploaded := testsupport.NewVideo(t, store, "https://example.com/a", "")
	_ = uploaded
	processing := testsupport.NewVideo(t, store, "https://example.com/b", "")
	if _, err := store.AdvanceVideo(ctx, processing.ID, catalog.VideoDownloading); err != nil {
		t.Fatalf("advance: %v", err)
	}
	failed := testsupport.NewVideo(t, store, "https://example.com/c", "")
	if _, err := store.FailVideo(ctx, failed.ID, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	summary, err := store.HealthSummary(ctx)
	if err != nil {
		t.Fatalf("HealthSummary: %v", err)
	}
	want := catalog.HealthSummary{Total: 3, Uploaded: 1, Processing: 1, Failed: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

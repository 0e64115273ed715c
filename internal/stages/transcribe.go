package stages

import (
	"context"
	"io"
	"log/slog"

	"chyron/internal/blob"
	"chyron/internal/catalog"
	"chyron/internal/chunking"
	"chyron/internal/logging"
	"chyron/internal/services"
	"chyron/internal/services/whisper"
)

// Transcriber turns stored audio into timestamped transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*whisper.Result, error)
}

// Transcribe runs stored audio through the transcription server and persists
// the raw transcript as one chunk per segment.
type Transcribe struct {
	store       *catalog.Store
	blobs       *blob.Store
	transcriber Transcriber
	logger      *slog.Logger
}

// NewTranscribe builds the transcription stage.
func NewTranscribe(store *catalog.Store, blobs *blob.Store, transcriber Transcriber, logger *slog.Logger) *Transcribe {
	return &Transcribe{
		store:       store,
		blobs:       blobs,
		transcriber: transcriber,
		logger:      logging.WithComponent(logger, "stage.transcribe"),
	}
}

func (t *Transcribe) Name() string             { return "transcribe" }
func (t *Transcribe) Stage() catalog.StageType { return catalog.StageTranscribe }

func (t *Transcribe) Run(ctx context.Context, video *catalog.Video, job *catalog.Job) error {
	if video.StorageRef == "" {
		return services.Wrap(services.ErrNotReady, t.Name(), "run", "video has no stored audio", nil)
	}
	reportProgress(ctx, t.store, t.logger, job.ID, 10)

	audio, err := t.blobs.Open(video.StorageRef)
	if err != nil {
		return services.Wrap(services.ErrExternal, t.Name(), "open audio", video.StorageRef, err)
	}
	defer audio.Close()

	result, err := t.transcriber.Transcribe(ctx, audio, video.StorageRef)
	if err != nil {
		return err
	}
	reportProgress(ctx, t.store, t.logger, job.ID, 70)

	if result.Language != "" {
		if err := t.store.SetVideoLanguage(ctx, video.ID, result.Language); err != nil {
			return err
		}
		video.Language = result.Language
	}

	// One chunk per segment; the chunking stage merges them later.
	inputs := make([]catalog.ChunkInput, 0, len(result.Segments))
	for _, segment := range result.Segments {
		inputs = append(inputs, catalog.ChunkInput{
			Text:          segment.Text,
			StartTime:     segment.Start,
			EndTime:       segment.End,
			TokenEstimate: chunking.EstimateTokens(segment.Text),
		})
	}
	if _, err := t.store.ReplaceChunks(ctx, video.ID, inputs); err != nil {
		return err
	}

	reportProgress(ctx, t.store, t.logger, job.ID, 100)
	t.logger.InfoContext(ctx, "transcription stored",
		logging.Int("segments", len(inputs)),
		logging.String("language", result.Language),
	)
	return nil
}

// HealthCheck probes the transcription server if the client supports it.
func (t *Transcribe) HealthCheck(ctx context.Context) error {
	type prober interface {
		HealthCheck(ctx context.Context) (*whisper.Health, error)
	}
	if checker, ok := t.transcriber.(prober); ok {
		_, err := checker.HealthCheck(ctx)
		return err
	}
	return nil
}

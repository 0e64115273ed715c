package stages

import (
	"context"
	"io"
	"log/slog"

	"chyron/internal/blob"
	"chyron/internal/catalog"
	"chyron/internal/logging"
	"chyron/internal/services"
	"chyron/internal/services/ytdlp"
)

// SourceResolver yields metadata and an audio stream for a video source.
type SourceResolver interface {
	Info(ctx context.Context, sourceRef string) (ytdlp.Info, error)
	FetchAudio(ctx context.Context, sourceRef string) (io.ReadCloser, string, error)
}

// Acquire downloads a video's audio into the blob store and records the
// storage reference plus source metadata.
type Acquire struct {
	store    *catalog.Store
	blobs    *blob.Store
	resolver SourceResolver
	logger   *slog.Logger
}

// NewAcquire builds the acquisition stage.
func NewAcquire(store *catalog.Store, blobs *blob.Store, resolver SourceResolver, logger *slog.Logger) *Acquire {
	return &Acquire{
		store:    store,
		blobs:    blobs,
		resolver: resolver,
		logger:   logging.WithComponent(logger, "stage.acquire"),
	}
}

func (a *Acquire) Name() string             { return "acquire audio" }
func (a *Acquire) Stage() catalog.StageType { return catalog.StageAcquireAudio }

func (a *Acquire) Run(ctx context.Context, video *catalog.Video, job *catalog.Job) error {
	reportProgress(ctx, a.store, a.logger, job.ID, 10)

	info, err := a.resolver.Info(ctx, video.SourceRef)
	if err != nil {
		return err
	}
	title := video.Title
	if title == "" {
		title = info.Title
	}
	reportProgress(ctx, a.store, a.logger, job.ID, 40)

	audio, filename, err := a.resolver.FetchAudio(ctx, video.SourceRef)
	if err != nil {
		return err
	}
	defer audio.Close()
	reportProgress(ctx, a.store, a.logger, job.ID, 80)

	storageRef, err := a.blobs.Put(audio, video.ID, filename)
	if err != nil {
		return services.Wrap(services.ErrExternal, a.Name(), "store audio", "", err)
	}

	if err := a.store.SetVideoMedia(ctx, video.ID, title, info.DurationSeconds, storageRef); err != nil {
		return err
	}
	video.Title = title
	video.DurationSeconds = info.DurationSeconds
	video.StorageRef = storageRef

	reportProgress(ctx, a.store, a.logger, job.ID, 100)
	a.logger.InfoContext(ctx, "audio acquired",
		logging.String("storage_ref", storageRef),
		logging.Float64("duration_seconds", info.DurationSeconds),
	)
	return nil
}

// HealthCheck probes the resolver if it supports probing.
func (a *Acquire) HealthCheck(ctx context.Context) error {
	if checker, ok := a.resolver.(HealthChecker); ok {
		return checker.HealthCheck(ctx)
	}
	return nil
}

// Package stages implements the four pipeline stage processors: audio
// acquisition, transcription, chunking, and embedding. Each processor owns
// the job record created for it and persists its outputs through the catalog
// before reporting success.
package stages

import (
	"context"
	"log/slog"

	"chyron/internal/catalog"
	"chyron/internal/logging"
)

// Handler is one pipeline stage. Run receives the video and the job record
// created for this execution; it must persist its outputs before returning.
// A non-nil error means the stage failed and nothing downstream may run.
type Handler interface {
	Name() string
	Stage() catalog.StageType
	Run(ctx context.Context, video *catalog.Video, job *catalog.Job) error
}

// HealthChecker is implemented by handlers whose collaborator can be probed.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// reportProgress ratchets a job's progress, leaving status untouched. Stages
// only ever move progress forward, which keeps the monotonicity invariant
// without a comparison here. Progress write failures are logged, not fatal;
// losing a progress tick must not fail the stage.
func reportProgress(ctx context.Context, store *catalog.Store, logger *slog.Logger, jobID string, progress int) {
	if _, err := store.UpdateJobProgress(ctx, jobID, progress, catalog.JobUpdate{}); err != nil {
		logger.WarnContext(ctx, "progress update failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("progress", progress),
			logging.Error(err),
		)
	}
}

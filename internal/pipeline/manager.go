// Package pipeline drives videos through the fixed stage chain. A polling
// loop picks up uploaded videos and submits each one to a bounded worker
// pool, which walks the routing table stage by stage until the video is
// complete or a stage fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"chyron/internal/catalog"
	"chyron/internal/config"
	"chyron/internal/logging"
	"chyron/internal/services"
	"chyron/internal/stages"
)

// stageRoute binds a stage handler to the video status it owns. The route
// table is ordered; each entry hands the video to the next one directly.
type stageRoute struct {
	stage      catalog.StageType
	processing catalog.VideoStatus
	handler    stages.Handler
}

var processingStatusFor = map[catalog.StageType]catalog.VideoStatus{
	catalog.StageAcquireAudio:    catalog.VideoDownloading,
	catalog.StageTranscribe:      catalog.VideoTranscribing,
	catalog.StageChunkTranscript: catalog.VideoChunking,
	catalog.StageEmbedChunks:     catalog.VideoEmbedding,
}

// Manager coordinates pipeline processing for uploaded videos.
type Manager struct {
	cfg           *config.Config
	store         *catalog.Store
	logger        *slog.Logger
	routes        []stageRoute
	pool          *ants.Pool
	pollInterval  time.Duration
	retryInterval time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight map[string]struct{}
	lastErr  error
}

// NewManager builds a manager from the handlers in chain order. Handler
// order must match the video status chain; a handler for an unknown stage is
// a configuration error.
func NewManager(cfg *config.Config, store *catalog.Store, logger *slog.Logger, handlers ...stages.Handler) (*Manager, error) {
	if len(handlers) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new manager", "no stage handlers", nil)
	}
	routes := make([]stageRoute, 0, len(handlers))
	for _, handler := range handlers {
		processing, ok := processingStatusFor[handler.Stage()]
		if !ok {
			return nil, services.Wrap(
				services.ErrConfiguration,
				"pipeline", "new manager",
				fmt.Sprintf("unknown stage %s", handler.Stage()),
				nil,
			)
		}
		routes = append(routes, stageRoute{
			stage:      handler.Stage(),
			processing: processing,
			handler:    handler,
		})
	}

	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new manager", "worker pool", err)
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.WithComponent(logger, "pipeline"),
		routes:        routes,
		pool:          pool,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		inFlight:      make(map[string]struct{}),
	}, nil
}

// Start begins background polling. It returns immediately; processing stops
// when Stop is called or ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop halts polling and waits for in-flight chains to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Close stops the manager and releases the worker pool.
func (m *Manager) Close() {
	m.Stop()
	m.pool.Release()
}

// Running reports whether the polling loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent chain failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// InFlight returns how many videos are currently being processed.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		if err := m.dispatch(ctx); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.retryInterval):
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dispatch submits every uploaded video not already in flight to the pool.
// A returned error means the catalog could not be polled.
func (m *Manager) dispatch(ctx context.Context) error {
	videos, err := m.store.ListVideosByStatus(ctx, catalog.VideoUploaded)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		m.setLastError(err)
		m.logger.ErrorContext(ctx, "failed to list uploaded videos",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
		)
		return err
	}

	for _, video := range videos {
		if !m.claim(video.ID) {
			continue
		}
		video := video
		m.wg.Add(1)
		if err := m.pool.Submit(func() {
			defer m.wg.Done()
			defer m.release(video.ID)
			m.runChain(ctx, video)
		}); err != nil {
			m.wg.Done()
			m.release(video.ID)
			if errors.Is(err, ants.ErrPoolClosed) {
				return nil
			}
			m.setLastError(err)
			m.logger.ErrorContext(ctx, "worker pool submit failed", logging.Error(err))
		}
	}
	return nil
}

// claim marks a video as in flight. It returns false when another worker
// already owns the video, which keeps at most one chain per video running.
func (m *Manager) claim(videoID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[videoID]; busy {
		return false
	}
	m.inFlight[videoID] = struct{}{}
	return true
}

func (m *Manager) release(videoID string) {
	m.mu.Lock()
	delete(m.inFlight, videoID)
	m.mu.Unlock()
}

// runChain walks the routing table for one video. Each stage gets its own
// job record; a stage failure fails both the job and the video with the same
// message and stops the chain.
func (m *Manager) runChain(ctx context.Context, video *catalog.Video) {
	ctx = services.WithVideoID(ctx, video.ID)
	ctx = services.WithCorrelationID(ctx, uuid.NewString())

	for _, route := range m.routes {
		if err := m.runStage(ctx, video, route); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			return
		}
	}

	completed, err := m.store.AdvanceVideo(ctx, video.ID, catalog.VideoComplete)
	if err != nil {
		m.setLastError(err)
		logging.WithContext(ctx, m.logger).ErrorContext(ctx, "failed to mark video complete", logging.Error(err))
		return
	}
	*video = *completed
	logging.WithContext(ctx, m.logger).InfoContext(ctx, "video complete",
		logging.String(logging.FieldEventType, logging.EventVideoComplete),
		logging.String("title", video.Title),
	)
}

func (m *Manager) runStage(ctx context.Context, video *catalog.Video, route stageRoute) error {
	job, err := m.store.NewJob(ctx, video.ID, route.stage)
	if err != nil {
		m.failVideo(ctx, logging.WithContext(ctx, m.logger), video, err)
		return err
	}

	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithStage(ctx, string(route.stage))
	logger := logging.WithContext(ctx, m.logger)

	advanced, err := m.store.AdvanceVideo(ctx, video.ID, route.processing)
	if err != nil {
		m.failStage(ctx, logger, video, job, err)
		return err
	}
	*video = *advanced

	processing := catalog.JobProcessing
	job, err = m.store.UpdateJobProgress(ctx, job.ID, job.Progress, catalog.JobUpdate{Status: &processing})
	if err != nil {
		m.failStage(ctx, logger, video, job, err)
		return err
	}

	start := time.Now()
	logger.InfoContext(ctx, "stage started",
		logging.String(logging.FieldEventType, logging.EventStageStarted),
	)

	if err := route.handler.Run(ctx, video, job); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.ErrorContext(ctx, "stage failed",
			logging.String(logging.FieldEventType, logging.EventStageFailed),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.Duration(logging.FieldDuration, time.Since(start)),
		)
		m.failStage(ctx, logger, video, job, err)
		return err
	}

	completed := catalog.JobCompleted
	if _, err := m.store.UpdateJobProgress(ctx, job.ID, 100, catalog.JobUpdate{Status: &completed}); err != nil {
		m.failStage(ctx, logger, video, job, err)
		return err
	}

	logger.InfoContext(ctx, "stage completed",
		logging.String(logging.FieldEventType, logging.EventStageCompleted),
		logging.Duration(logging.FieldDuration, time.Since(start)),
	)
	return nil
}

// failStage records a stage failure on both the job and the video. The two
// records carry the same message so operators see one story.
func (m *Manager) failStage(ctx context.Context, logger *slog.Logger, video *catalog.Video, job *catalog.Job, cause error) {
	message := cause.Error()

	if job != nil && !job.Status.Terminal() {
		failed := catalog.JobFailed
		if _, err := m.store.UpdateJobProgress(ctx, job.ID, 0, catalog.JobUpdate{
			Status:       &failed,
			ErrorMessage: &message,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to record job failure", logging.Error(err))
		}
	}

	m.failVideo(ctx, logger, video, cause)
}

func (m *Manager) failVideo(ctx context.Context, logger *slog.Logger, video *catalog.Video, cause error) {
	failed, err := m.store.FailVideo(ctx, video.ID, cause.Error())
	if err != nil {
		logger.ErrorContext(ctx, "failed to record video failure", logging.Error(err))
		return
	}
	*video = *failed
	logger.WarnContext(ctx, "video failed",
		logging.String(logging.FieldEventType, logging.EventVideoFailed),
		logging.String(logging.FieldError, cause.Error()),
	)
}

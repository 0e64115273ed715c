package testsupport

import (
	"path/filepath"
	"testing"

	"chyron/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.OpenAI.APIKey = "test"
	cfg.Workflow.Workers = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithChunking overrides chunk size and overlap on the test config.
func WithChunking(size, overlap int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Chunking.ChunkSize = size
		cfg.Chunking.ChunkOverlap = overlap
	}
}

// WithTranscriberURL points the test config at a transcription server,
// usually an httptest instance.
func WithTranscriberURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcriber.BaseURL = url
	}
}

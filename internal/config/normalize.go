package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeChunking()
	c.normalizeTranscriber()
	c.normalizeOpenAI()
	c.normalizeVectorIndex()
	c.normalizeSources()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeChunking() {
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = defaultChunkSize
	}
	if c.Chunking.ChunkOverlap < 0 {
		c.Chunking.ChunkOverlap = defaultChunkOverlap
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcriber.BaseURL), "/")
	if c.Transcriber.BaseURL == "" {
		c.Transcriber.BaseURL = defaultTranscriberBaseURL
	}
	if c.Transcriber.TimeoutSeconds <= 0 {
		c.Transcriber.TimeoutSeconds = defaultTranscriberTimeout
	}
	c.Transcriber.Language = strings.TrimSpace(c.Transcriber.Language)
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	if strings.TrimSpace(c.OpenAI.EmbeddingModel) == "" {
		c.OpenAI.EmbeddingModel = defaultEmbeddingModel
	}
	if strings.TrimSpace(c.OpenAI.ChatModel) == "" {
		c.OpenAI.ChatModel = defaultChatModel
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
}

func (c *Config) normalizeVectorIndex() {
	c.VectorIndex.Backend = strings.ToLower(strings.TrimSpace(c.VectorIndex.Backend))
	if c.VectorIndex.Backend == "" {
		c.VectorIndex.Backend = defaultVectorBackend
	}
	if c.VectorIndex.Dimensions <= 0 {
		c.VectorIndex.Dimensions = defaultVectorDimensions
	}
	if strings.TrimSpace(c.VectorIndex.MilvusCollection) == "" {
		c.VectorIndex.MilvusCollection = defaultMilvusCollection
	}
}

func (c *Config) normalizeSources() {
	if strings.TrimSpace(c.Sources.YtDlpBinary) == "" {
		c.Sources.YtDlpBinary = defaultYtDlpBinary
	}
	if c.Sources.FetchTimeout <= 0 {
		c.Sources.FetchTimeout = defaultFetchTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

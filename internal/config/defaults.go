package config

const (
	defaultDataDir            = "~/.local/share/chyron"
	defaultLogDir             = "~/.local/share/chyron/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultWorkers            = 2
	defaultChunkSize          = 500
	defaultChunkOverlap       = 50
	defaultTranscriberBaseURL = "http://127.0.0.1:5000"
	defaultTranscriberTimeout = 600
	defaultOpenAITimeout      = 60
	defaultEmbeddingModel     = "text-embedding-3-small"
	defaultChatModel          = "gpt-4o-mini"
	defaultVectorBackend      = "memory"
	defaultVectorDimensions   = 1536
	defaultMilvusCollection   = "chyron_chunks"
	defaultYtDlpBinary        = "yt-dlp"
	defaultFetchTimeout       = 1800
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			Workers:            defaultWorkers,
		},
		Chunking: Chunking{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		OpenAI: OpenAI{
			EmbeddingModel: defaultEmbeddingModel,
			ChatModel:      defaultChatModel,
			TimeoutSeconds: defaultOpenAITimeout,
		},
		VectorIndex: VectorIndex{
			Backend:          defaultVectorBackend,
			Dimensions:       defaultVectorDimensions,
			MilvusCollection: defaultMilvusCollection,
		},
		Sources: Sources{
			YtDlpBinary:  defaultYtDlpBinary,
			FetchTimeout: defaultFetchTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

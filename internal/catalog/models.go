package catalog

import "time"

// VideoStatus represents the lifecycle of a video.
type VideoStatus string

const (
	VideoUploaded     VideoStatus = "uploaded"
	VideoDownloading  VideoStatus = "downloading"
	VideoTranscribing VideoStatus = "transcribing"
	VideoChunking     VideoStatus = "chunking"
	VideoEmbedding    VideoStatus = "embedding"
	VideoComplete     VideoStatus = "complete"
	VideoFailed       VideoStatus = "failed"
)

// videoChain is the only permitted forward path. Failed is reachable from
// every non-terminal state via FailVideo.
var videoChain = []VideoStatus{
	VideoUploaded,
	VideoDownloading,
	VideoTranscribing,
	VideoChunking,
	VideoEmbedding,
	VideoComplete,
}

var videoSuccessor = func() map[VideoStatus]VideoStatus {
	next := make(map[VideoStatus]VideoStatus, len(videoChain)-1)
	for i := 0; i < len(videoChain)-1; i++ {
		next[videoChain[i]] = videoChain[i+1]
	}
	return next
}()

// AllVideoStatuses returns the ordered list of known video statuses.
func AllVideoStatuses() []VideoStatus {
	statuses := make([]VideoStatus, 0, len(videoChain)+1)
	statuses = append(statuses, videoChain...)
	return append(statuses, VideoFailed)
}

// Terminal reports whether the status admits no further automatic transition.
func (s VideoStatus) Terminal() bool {
	return s == VideoComplete || s == VideoFailed
}

// Processing reports whether a stage currently owns the video.
func (s VideoStatus) Processing() bool {
	switch s {
	case VideoDownloading, VideoTranscribing, VideoChunking, VideoEmbedding:
		return true
	default:
		return false
	}
}

// CanAdvance reports whether next is the immediate chain successor of s.
func CanAdvance(current, next VideoStatus) bool {
	successor, ok := videoSuccessor[current]
	return ok && successor == next
}

// JobStatus represents the lifecycle of a stage job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job status admits no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// StageType names one of the four pipeline stages.
type StageType string

const (
	StageAcquireAudio    StageType = "acquire_audio"
	StageTranscribe      StageType = "transcribe"
	StageChunkTranscript StageType = "chunk_transcript"
	StageEmbedChunks     StageType = "embed_chunks"
)

// AllStages returns the stages in pipeline order.
func AllStages() []StageType {
	return []StageType{StageAcquireAudio, StageTranscribe, StageChunkTranscript, StageEmbedChunks}
}

// Video is one source item persisted in SQLite.
type Video struct {
	ID              string
	Title           string
	SourceRef       string
	StorageRef      string
	DurationSeconds float64
	Language        string
	Status          VideoStatus
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Job is one (video, stage) execution record.
type Job struct {
	ID           string
	VideoID      string
	Stage        StageType
	Status       JobStatus
	Progress     int
	ErrorMessage string
	MetadataJSON string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is one semantic text unit of a video's transcript.
type Chunk struct {
	ID            string
	VideoID       string
	Ordinal       int
	Text          string
	StartTime     float64
	EndTime       float64
	TokenEstimate int
	CreatedAt     time.Time
}

// EmbeddingRef records that a chunk's vector lives in the vector index.
type EmbeddingRef struct {
	ChunkID    string
	VideoID    string
	VectorID   string
	Model      string
	Dimensions int
	CreatedAt  time.Time
}

// HealthSummary aggregates catalog counts per lifecycle bucket.
type HealthSummary struct {
	Total      int
	Uploaded   int
	Processing int
	Complete   int
	Failed     int
}

package logging

// Standardized structured logging field keys. Using these constants keeps log
// queries stable across the daemon, pipeline, and CLI surfaces.
const (
	FieldComponent     = "component"
	FieldVideoID       = "video_id"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldStatus        = "status"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldDuration      = "duration"
	FieldError         = "error"
	FieldErrorHint     = "error_hint"
)

// Event type values used with FieldEventType.
const (
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"
	EventVideoAdded     = "video_added"
	EventVideoComplete  = "video_complete"
	EventVideoFailed    = "video_failed"
	EventQueryAnswered  = "query_answered"
)

// Package logging configures structured slog loggers for the daemon and CLI.
//
// It provides console and JSON handlers, standardized field keys for pipeline
// events, typed attribute helpers, and context-derived logger augmentation so
// every log line produced while a stage runs carries the video, job, stage,
// and correlation identifiers.
package logging

// Package catalog persists the processing state of the system: videos, their
// per-stage jobs, transcript chunks, and embedding references, all backed by
// SQLite. It also owns the video and job lifecycle rules; stage processors
// and the pipeline manager mutate rows exclusively through this package.
package catalog

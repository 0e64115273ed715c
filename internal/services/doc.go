// Package services holds the shared error taxonomy and context plumbing used
// by the pipeline stages and the external collaborators (transcriber,
// embedding provider, audio resolver). Subpackages wrap concrete backends;
// this package defines what every caller can rely on regardless of backend.
package services

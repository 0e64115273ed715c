// Package progress computes read-side progress figures from job records.
package progress

import "chyron/internal/catalog"

// Overall returns the rounded mean progress across jobs, or 0 when no jobs
// exist. Jobs in any status contribute their last recorded progress; failed
// jobs typically contribute 0.
func Overall(jobs []*catalog.Job) int {
	if len(jobs) == 0 {
		return 0
	}
	total := 0
	for _, job := range jobs {
		total += job.Progress
	}
	// round half up
	return (total*2 + len(jobs)) / (2 * len(jobs))
}

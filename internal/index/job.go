// Package index coordinates the scan, chunk, embed, store pipeline that
// turns a registered source directory into searchable chunks.
package index

import (
	"time"
)

// JobStatus tracks the lifecycle of an indexing run.
type JobStatus string

const (
	// JobPending means the job has been created but not started.
	JobPending JobStatus = "pending"
	// JobRunning means files are being processed.
	JobRunning JobStatus = "running"
	// JobComplete means the run finished, possibly with per-file errors.
	JobComplete JobStatus = "complete"
	// JobFailed means the run aborted before completion.
	JobFailed JobStatus = "failed"
)

// Job is a snapshot of one indexing run. Observers receive copies, so
// callers may retain them without racing the running job.
type Job struct {
	ID       string
	SourceID string
	Status   JobStatus

	StartedAt   time.Time
	CompletedAt time.Time

	FilesTotal     int
	FilesProcessed int

	// ChunksTotal accumulates chunks produced by the chunker, while
	// ChunksProcessed counts chunks that made it into the store. The two
	// diverge when embedding or storage fails for a file.
	ChunksTotal         int
	ChunksProcessed     int
	EmbeddingsGenerated int

	// Errors holds one "path: reason" entry per failed file.
	Errors []string

	// Provider identity captured at job start.
	Provider   string
	Model      string
	Dimensions int
}

// snapshot returns a copy safe to hand to observers.
func (j *Job) snapshot() Job {
	out := *j
	if j.Errors != nil {
		out.Errors = make([]string, len(j.Errors))
		copy(out.Errors, j.Errors)
	}
	return out
}

// Observer receives job snapshots after every state change: job
// transitions, per-file completions, and per-file failures.
type Observer interface {
	JobUpdated(job Job)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(job Job)

// JobUpdated implements Observer.
func (f ObserverFunc) JobUpdated(job Job) { f(job) }

type nopObserver struct{}

func (nopObserver) JobUpdated(Job) {}

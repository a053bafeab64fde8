// Package watch coalesces filesystem change events for watched sources
// and flushes them through the indexer in batches.
package watch

import (
	"time"
)

// Op is the kind of change a file event reports.
type Op int

const (
	// OpAdd indicates a new file appeared.
	OpAdd Op = iota
	// OpUpdate indicates an existing file changed.
	OpUpdate
	// OpDelete indicates a file disappeared.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "ADD"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one pending change for a watched source. Path may be
// absolute or source-root relative; it is resolved against the source
// root when the queue flushes.
type FileEvent struct {
	Path      string
	SourceID  string
	Op        Op
	Timestamp time.Time
}

package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/docdexhq/docdex/internal/chunk"
	"github.com/docdexhq/docdex/internal/errors"
	"github.com/docdexhq/docdex/internal/fsys"
	"github.com/docdexhq/docdex/internal/source"
)

const (
	// DefaultMaxQueueSize bounds distinct pending files across all
	// watched sources.
	DefaultMaxQueueSize = 1000

	// DefaultFlushInterval is how often Run flushes the queue.
	DefaultFlushInterval = 2 * time.Second
)

// Indexer is the slice of the indexing engine the watch service drives.
// *index.Indexer satisfies it.
type Indexer interface {
	IndexFile(ctx context.Context, sourceID, path string) ([]chunk.Chunk, error)
	RemoveFile(ctx context.Context, sourceID, path string) (int, error)
	IndexedPaths(ctx context.Context, sourceID string) ([]string, error)
}

// Dependencies holds the collaborators required to construct a Service.
type Dependencies struct {
	// Registry resolves sources and their policies. Required.
	Registry *source.Registry

	// Indexer applies queued changes to the chunk store. Required.
	Indexer Indexer

	// Snapshotter lists files for restart reconciliation. Optional;
	// RecoverFromRestart fails without it.
	Snapshotter fsys.Snapshotter
}

// Service tracks which sources are watched and coalesces their file
// change events until ProcessQueue flushes them through the indexer.
// Safe for concurrent use.
type Service struct {
	registry  *source.Registry
	indexer   Indexer
	snapshots fsys.Snapshotter

	mu      sync.Mutex
	watched map[string]bool
	queue   *eventQueue

	flushInterval time.Duration
	logger        *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMaxQueueSize caps the number of distinct pending files. Values
// below 1 are ignored.
func WithMaxQueueSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.queue = newEventQueue(n)
		}
	}
}

// WithFlushInterval sets how often Run flushes the queue.
func WithFlushInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a watch service after validating dependencies.
func NewService(deps Dependencies, opts ...ServiceOption) (*Service, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}

	s := &Service{
		registry:      deps.Registry,
		indexer:       deps.Indexer,
		snapshots:     deps.Snapshotter,
		watched:       make(map[string]bool),
		queue:         newEventQueue(DefaultMaxQueueSize),
		flushInterval: DefaultFlushInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WatchSource starts tracking changes for a registered source.
func (s *Service) WatchSource(id string) error {
	src, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if src.Status == source.StatusRemoved {
		return errors.ErrSourceRemoved
	}

	s.mu.Lock()
	s.watched[id] = true
	s.mu.Unlock()

	s.logger.Info("watch_started",
		slog.String("source_id", id),
		slog.String("root", src.RootPath))
	return nil
}

// UnwatchSource stops tracking a source and purges its queued events.
func (s *Service) UnwatchSource(id string) error {
	s.mu.Lock()
	if !s.watched[id] {
		s.mu.Unlock()
		return errors.ErrSourceNotWatched
	}
	delete(s.watched, id)
	purged := s.queue.removeSource(id)
	s.mu.Unlock()

	s.logger.Info("watch_stopped",
		slog.String("source_id", id),
		slog.Int("purged", purged))
	return nil
}

// IsWatched reports whether a source is currently watched.
func (s *Service) IsWatched(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched[id]
}

// WatchedSources returns the watched source ids, sorted.
func (s *Service) WatchedSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.watched))
	for id := range s.watched {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// QueueLen returns the number of distinct pending files.
func (s *Service) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// HandleFileChange queues one change event. Events for unwatched sources
// are rejected with ErrSourceNotWatched; a new file at capacity is
// rejected with ErrQueueFull, but replacements of already-queued files
// always land.
func (s *Service) HandleFileChange(ev FileEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.watched[ev.SourceID] {
		return errors.ErrSourceNotWatched
	}
	return s.queue.upsert(ev)
}

// Result summarizes one queue flush.
type Result struct {
	// Processed counts events applied to the index.
	Processed int

	// Skipped counts events dropped without processing: the source was
	// unwatched or removed in the meantime, or the path no longer
	// matches its policy.
	Skipped int

	// Errors holds one entry per event that failed to apply.
	Errors []string
}

// ProcessQueue drains the queue and applies each event: deletes drop the
// file's stored chunks, adds and updates re-index the file if it still
// matches the source policy. Per-event failures are collected in the
// result; only context cancellation aborts the flush, re-queueing the
// unprocessed remainder.
func (s *Service) ProcessQueue(ctx context.Context) (Result, error) {
	s.mu.Lock()
	events := s.queue.drain()
	s.mu.Unlock()

	var res Result
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			s.requeue(events[i:])
			return res, err
		}
		s.apply(ctx, ev, &res)
	}

	if len(events) > 0 {
		s.logger.Info("queue_flushed",
			slog.Int("events", len(events)),
			slog.Int("processed", res.Processed),
			slog.Int("skipped", res.Skipped),
			slog.Int("errors", len(res.Errors)))
	}
	return res, nil
}

func (s *Service) apply(ctx context.Context, ev FileEvent, res *Result) {
	if !s.IsWatched(ev.SourceID) {
		res.Skipped++
		return
	}

	switch ev.Op {
	case OpDelete:
		if _, err := s.indexer.RemoveFile(ctx, ev.SourceID, ev.Path); err != nil {
			res.Errors = append(res.Errors, eventError(ev, err))
			return
		}
		res.Processed++

	case OpAdd, OpUpdate:
		src, err := s.registry.Get(ev.SourceID)
		if err != nil || src.Status == source.StatusRemoved {
			res.Skipped++
			return
		}
		if !src.Policy.Matches(ev.Path, src.RootPath) {
			res.Skipped++
			return
		}
		if _, err := s.indexer.IndexFile(ctx, ev.SourceID, ev.Path); err != nil {
			res.Errors = append(res.Errors, eventError(ev, err))
			return
		}
		res.Processed++

	default:
		res.Skipped++
	}
}

// eventError formats a per-event failure. Containment rejections keep
// their fixed message and are never prefixed with the attempted path.
func eventError(ev FileEvent, err error) string {
	if errors.GetCode(err) == errors.ErrCodePathOutsideRoot {
		return err.Error()
	}
	return fmt.Sprintf("%s: %v", ev.Path, err)
}

func (s *Service) requeue(events []FileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if err := s.queue.upsert(ev); err != nil {
			return
		}
	}
}

// RecoverFromRestart reconciles a source's stored chunks with the
// filesystem after a process restart. It marks the source watched, lists
// the files on disk, and queues delete events for indexed files that
// disappeared, update events for files present on both sides, and add
// events for new files. It returns how many events were queued; events
// that do not fit are dropped with a warning, which is safe because the
// next recovery pass regenerates them.
func (s *Service) RecoverFromRestart(ctx context.Context, sourceID string) (int, error) {
	if s.snapshots == nil {
		return 0, errors.New(errors.ErrCodeSnapshotUnavailable, "no filesystem snapshotter configured", nil)
	}

	src, err := s.registry.Get(sourceID)
	if err != nil {
		return 0, err
	}
	if src.Status == source.StatusRemoved {
		return 0, errors.ErrSourceRemoved
	}

	if err := s.WatchSource(sourceID); err != nil {
		return 0, err
	}

	listing, err := s.snapshots.ListFiles(ctx, src.RootPath, src.Policy.MaxDepth)
	if err != nil {
		return 0, err
	}

	onDisk := make(map[string]bool, len(listing))
	for _, f := range listing {
		if !src.Policy.Matches(f.Path, src.RootPath) {
			continue
		}
		if src.Policy.MaxFileSize > 0 && f.Size > src.Policy.MaxFileSize {
			continue
		}
		abs, _, rerr := source.ResolveWithinRoot(f.Path, src.RootPath)
		if rerr != nil {
			continue
		}
		onDisk[abs] = true
	}

	indexedPaths, err := s.indexer.IndexedPaths(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	indexed := make(map[string]bool, len(indexedPaths))
	for _, p := range indexedPaths {
		indexed[p] = true
	}

	var deletes, updates, adds []string
	for p := range indexed {
		if !onDisk[p] {
			deletes = append(deletes, p)
		}
	}
	for p := range onDisk {
		if indexed[p] {
			updates = append(updates, p)
		} else {
			adds = append(adds, p)
		}
	}
	sort.Strings(deletes)
	sort.Strings(updates)
	sort.Strings(adds)

	now := time.Now().UTC()
	queued, dropped := 0, 0
	s.mu.Lock()
	for _, batch := range []struct {
		paths []string
		op    Op
	}{
		{deletes, OpDelete},
		{updates, OpUpdate},
		{adds, OpAdd},
	} {
		for _, p := range batch.paths {
			ev := FileEvent{Path: p, SourceID: sourceID, Op: batch.op, Timestamp: now}
			if err := s.queue.upsert(ev); err != nil {
				dropped++
				continue
			}
			queued++
		}
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("recovery_events_dropped",
			slog.String("source_id", sourceID),
			slog.Int("dropped", dropped))
	}
	s.logger.Info("recovery_queued",
		slog.String("source_id", sourceID),
		slog.Int("deletes", len(deletes)),
		slog.Int("updates", len(updates)),
		slog.Int("adds", len(adds)),
		slog.Int("queued", queued))
	return queued, nil
}

// Run flushes the queue on the configured interval until ctx is
// cancelled. Queued events surviving shutdown are regenerated by the next
// RecoverFromRestart.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res, err := s.ProcessQueue(ctx)
			if err != nil {
				return err
			}
			for _, msg := range res.Errors {
				s.logger.Warn("flush_error", slog.String("error", msg))
			}
		}
	}
}

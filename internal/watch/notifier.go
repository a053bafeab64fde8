package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docdexhq/docdex/internal/source"
)

// Notifier bridges operating system file notifications into the watch
// service queue. It maps event paths to source ids by longest matching
// registered root and translates fsnotify operations: Create becomes
// ADD, Write becomes UPDATE, Remove and Rename become DELETE, Chmod is
// ignored.
type Notifier struct {
	service *Service
	logger  *slog.Logger

	mu    sync.Mutex
	roots map[string]string // root path -> source id
}

// NotifierOption customizes a Notifier.
type NotifierOption func(*Notifier)

// WithNotifierLogger sets the logger.
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNotifier creates a notifier feeding the given service.
func NewNotifier(service *Service, opts ...NotifierOption) (*Notifier, error) {
	if service == nil {
		return nil, fmt.Errorf("service is required")
	}

	n := &Notifier{
		service: service,
		logger:  slog.Default(),
		roots:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// AddSource registers a source root for path-to-source resolution. Call
// before Run; roots added later are not watched until the next Run.
func (n *Notifier) AddSource(src source.Source) {
	n.mu.Lock()
	n.roots[src.RootPath] = src.ID
	n.mu.Unlock()
}

// Run watches all registered roots until ctx is cancelled. Directories
// created under a watched root are added to the watch as they appear.
func (n *Notifier) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	defer watcher.Close()

	n.mu.Lock()
	roots := make([]string, 0, len(n.roots))
	for root := range n.roots {
		roots = append(roots, root)
	}
	n.mu.Unlock()

	for _, root := range roots {
		if err := addRecursive(watcher, root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
	n.logger.Info("notifier_started", slog.Int("roots", len(roots)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			n.handle(watcher, ev)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			n.logger.Warn("watch_error", slog.String("error", werr.Error()))
		}
	}
}

func (n *Notifier) handle(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	sourceID := n.lookup(ev.Name)
	if sourceID == "" {
		return
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Op
	switch {
	case ev.Op&fsnotify.Create != 0:
		if isDir {
			// New subtree: watch it, its files arrive as events.
			_ = addRecursive(watcher, ev.Name)
			return
		}
		op = OpAdd
	case ev.Op&fsnotify.Write != 0:
		op = OpUpdate
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		op = OpDelete
	default:
		// Chmod and anything else fsnotify grows.
		return
	}
	if isDir {
		return
	}

	err := n.service.HandleFileChange(FileEvent{
		Path:      ev.Name,
		SourceID:  sourceID,
		Op:        op,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Warn("event_dropped",
			slog.String("op", op.String()),
			slog.String("source_id", sourceID),
			slog.String("error", err.Error()))
	}
}

// lookup resolves a path to a source id by longest matching root.
func (n *Notifier) lookup(path string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	best, bestID := -1, ""
	for root, id := range n.roots {
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		if len(root) > best {
			best, bestID = len(root), id
		}
	}
	return bestID
}

// addRecursive adds root and every directory below it to the watcher.
// Bookkeeping directories never hold indexable documents and are skipped
// wholesale.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip entries we cannot access
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			switch filepath.Base(path) {
			case ".git", ".docdex", "node_modules":
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}

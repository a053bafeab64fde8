package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdexhq/docdex/internal/chunk"
	"github.com/docdexhq/docdex/internal/embed"
	dexerrors "github.com/docdexhq/docdex/internal/errors"
	"github.com/docdexhq/docdex/internal/fsys"
	"github.com/docdexhq/docdex/internal/index"
	"github.com/docdexhq/docdex/internal/source"
	"github.com/docdexhq/docdex/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type harness struct {
	service  *Service
	registry *source.Registry
	indexer  *index.Indexer
	store    *store.MemoryStore
}

func newHarness(t *testing.T, opts ...ServiceOption) *harness {
	t.Helper()

	registry := source.NewRegistry()
	memStore := store.NewMemoryStore()
	osfs := fsys.NewOSFS()

	idx, err := index.New(index.Dependencies{
		Registry: registry,
		Chunker:  chunk.NewChunker(),
		Provider: embed.NewHashProvider(),
		FS:       osfs,
		Store:    memStore,
	},
		index.WithLogger(discardLogger()),
		index.WithRetryConfig(dexerrors.RetryConfig{Attempts: 0, Delay: time.Millisecond, Multiplier: 1.0}),
	)
	require.NoError(t, err)

	base := []ServiceOption{WithLogger(discardLogger())}
	svc, err := NewService(Dependencies{
		Registry:    registry,
		Indexer:     idx,
		Snapshotter: osfs,
	}, append(base, opts...)...)
	require.NoError(t, err)

	return &harness{service: svc, registry: registry, indexer: idx, store: memStore}
}

func (h *harness) register(t *testing.T, root string, opts ...source.RegisterOption) source.Source {
	t.Helper()
	src, err := h.registry.Register(root, opts...)
	require.NoError(t, err)
	return src
}

func (h *harness) chunkCount(t *testing.T) int {
	t.Helper()
	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestNewService_RequiresDependencies(t *testing.T) {
	registry := source.NewRegistry()
	h := newHarness(t)

	_, err := NewService(Dependencies{Indexer: h.indexer})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry is required")

	_, err = NewService(Dependencies{Registry: registry})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer is required")
}

func TestWatchSource_Lifecycle(t *testing.T) {
	h := newHarness(t)
	rootA := t.TempDir()
	rootB := t.TempDir()
	srcA := h.register(t, rootA)
	srcB := h.register(t, rootB)

	require.NoError(t, h.service.WatchSource(srcA.ID))
	require.NoError(t, h.service.WatchSource(srcB.ID))
	assert.True(t, h.service.IsWatched(srcA.ID))

	watched := h.service.WatchedSources()
	assert.Len(t, watched, 2)
	assert.True(t, watched[0] < watched[1])

	require.NoError(t, h.service.UnwatchSource(srcA.ID))
	assert.False(t, h.service.IsWatched(srcA.ID))

	err := h.service.UnwatchSource(srcA.ID)
	assert.True(t, errors.Is(err, dexerrors.ErrSourceNotWatched))

	err = h.service.WatchSource("missing")
	assert.True(t, errors.Is(err, dexerrors.ErrSourceNotFound))

	require.NoError(t, h.registry.Unregister(srcB.ID))
	err = h.service.WatchSource(srcB.ID)
	assert.True(t, errors.Is(err, dexerrors.ErrSourceRemoved))
}

func TestHandleFileChange_RequiresWatchedSource(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)

	err := h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpAdd})
	assert.True(t, errors.Is(err, dexerrors.ErrSourceNotWatched))
}

func TestHandleFileChange_DedupAndCapacity(t *testing.T) {
	h := newHarness(t, WithMaxQueueSize(2))
	root := t.TempDir()
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpAdd}))
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "b.md", SourceID: src.ID, Op: OpAdd}))

	// Full for new files, open for replacements.
	err := h.service.HandleFileChange(FileEvent{Path: "c.md", SourceID: src.ID, Op: OpAdd})
	assert.True(t, errors.Is(err, dexerrors.ErrQueueFull))
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpUpdate}))

	assert.Equal(t, 2, h.service.QueueLen())
}

func TestUnwatchSource_PurgesQueuedEvents(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpAdd}))
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "b.md", SourceID: src.ID, Op: OpAdd}))
	require.NoError(t, h.service.UnwatchSource(src.ID))

	assert.Equal(t, 0, h.service.QueueLen())
}

func TestProcessQueue_AppliesAddsUpdatesAndDeletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := t.TempDir()
	path := writeDoc(t, root, "a.md", "# A\n\nbravo original text.\n")
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	// Add by relative path.
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpAdd}))
	res, err := h.service.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, h.chunkCount(t))

	// Update by absolute path replaces the stored chunk.
	require.NoError(t, os.WriteFile(path, []byte("# A\n\nbravo revised text.\n"), 0o644))
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: path, SourceID: src.ID, Op: OpUpdate}))
	res, err = h.service.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, h.chunkCount(t))

	fresh, err := h.indexer.SearchByContent(ctx, "revised", 0)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
	stale, err := h.indexer.SearchByContent(ctx, "original", 0)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// Delete drops the file's chunks.
	require.NoError(t, os.Remove(path))
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpDelete}))
	res, err = h.service.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, h.chunkCount(t))

	// An empty queue flushes to an empty result.
	res, err = h.service.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestProcessQueue_PolicyMismatchSkipped(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	writeDoc(t, root, "notes.txt", "plain text")
	src := h.register(t, root, source.WithPolicy(source.Policy{
		IncludePaths: []string{"**/*.md"},
	}))
	require.NoError(t, h.service.WatchSource(src.ID))

	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "notes.txt", SourceID: src.ID, Op: OpAdd}))
	res, err := h.service.ProcessQueue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, h.chunkCount(t))
}

func TestProcessQueue_CollectsPerEventErrors(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	// The file never existed, so indexing it fails.
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "ghost.md", SourceID: src.ID, Op: OpUpdate}))
	res, err := h.service.ProcessQueue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Processed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "ghost.md")
}

func TestProcessQueue_ContainmentErrorStaysOpaque(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "../outside.md", SourceID: src.ID, Op: OpDelete}))
	res, err := h.service.ProcessQueue(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], dexerrors.PathRejectedMessage)
	assert.NotContains(t, res.Errors[0], "outside.md")
}

func TestProcessQueue_CancelledContextRequeues(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpAdd}))
	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "b.md", SourceID: src.ID, Op: OpAdd}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.service.ProcessQueue(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	// Nothing was lost.
	assert.Equal(t, 2, h.service.QueueLen())
}

func TestRecoverFromRestart_ReconcilesDiskAndIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := t.TempDir()
	aPath := writeDoc(t, root, "a.md", "# A\n\nalpha secret phrase.\n")
	bPath := writeDoc(t, root, "b.md", "# B\n\nbravo original text.\n")
	writeDoc(t, root, "c.md", "# C\n\ncharlie steady text.\n")
	src := h.register(t, root)

	_, err := h.indexer.IndexSource(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, 3, h.chunkCount(t))

	// While the process was down: a removed, b rewritten, d added.
	require.NoError(t, os.Remove(aPath))
	require.NoError(t, os.WriteFile(bPath, []byte("# B\n\nbravo revised text.\n"), 0o644))
	writeDoc(t, root, "d.md", "# D\n\ndelta fresh arrival.\n")

	queued, err := h.service.RecoverFromRestart(ctx, src.ID)
	require.NoError(t, err)
	// One delete, two updates, one add.
	assert.Equal(t, 4, queued)
	assert.Equal(t, 4, h.service.QueueLen())
	assert.True(t, h.service.IsWatched(src.ID))

	res, err := h.service.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, h.chunkCount(t))

	gone, err := h.indexer.SearchByContent(ctx, "alpha secret", 0)
	require.NoError(t, err)
	assert.Empty(t, gone)

	revised, err := h.indexer.SearchByContent(ctx, "bravo revised", 0)
	require.NoError(t, err)
	assert.Len(t, revised, 1)

	arrived, err := h.indexer.SearchByContent(ctx, "delta fresh", 0)
	require.NoError(t, err)
	assert.Len(t, arrived, 1)
}

func TestRecoverFromRestart_RequiresSnapshotter(t *testing.T) {
	registry := source.NewRegistry()
	h := newHarness(t)

	svc, err := NewService(Dependencies{
		Registry: registry,
		Indexer:  h.indexer,
	}, WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = svc.RecoverFromRestart(context.Background(), "any")
	require.Error(t, err)
	assert.Equal(t, dexerrors.ErrCodeSnapshotUnavailable, dexerrors.GetCode(err))
}

func TestRecoverFromRestart_MissingAndRemovedSources(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)

	_, err := h.service.RecoverFromRestart(context.Background(), "missing")
	assert.True(t, errors.Is(err, dexerrors.ErrSourceNotFound))

	require.NoError(t, h.registry.Unregister(src.ID))
	_, err = h.service.RecoverFromRestart(context.Background(), src.ID)
	assert.True(t, errors.Is(err, dexerrors.ErrSourceRemoved))
}

func TestRun_FlushesOnInterval(t *testing.T) {
	h := newHarness(t, WithFlushInterval(20*time.Millisecond))
	root := t.TempDir()
	writeDoc(t, root, "a.md", "# A\n\nalpha text.\n")
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.service.Run(ctx) }()

	require.NoError(t, h.service.HandleFileChange(FileEvent{Path: "a.md", SourceID: src.ID, Op: OpAdd}))

	require.Eventually(t, func() bool {
		n, err := h.store.Count(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

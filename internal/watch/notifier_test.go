package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdexhq/docdex/internal/source"
)

func TestNewNotifier_RequiresService(t *testing.T) {
	_, err := NewNotifier(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service is required")
}

func TestNotifier_LookupLongestRoot(t *testing.T) {
	h := newHarness(t)
	n, err := NewNotifier(h.service, WithNotifierLogger(discardLogger()))
	require.NoError(t, err)

	outer := t.TempDir()
	inner := filepath.Join(outer, "nested")
	require.NoError(t, os.MkdirAll(inner, 0o755))

	n.AddSource(source.Source{ID: "outer", RootPath: outer})
	n.AddSource(source.Source{ID: "inner", RootPath: inner})

	assert.Equal(t, "inner", n.lookup(filepath.Join(inner, "doc.md")))
	assert.Equal(t, "outer", n.lookup(filepath.Join(outer, "doc.md")))
	assert.Equal(t, "outer", n.lookup(outer))
	assert.Equal(t, "", n.lookup("/somewhere/else/doc.md"))

	// Sibling prefixes do not match: /root/nested-x is not under
	// /root/nested.
	assert.Equal(t, "outer", n.lookup(inner+"-x/doc.md"))
}

func TestNotifier_QueuesFilesystemEvents(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	src := h.register(t, root)
	require.NoError(t, h.service.WatchSource(src.ID))

	n, err := NewNotifier(h.service, WithNotifierLogger(discardLogger()))
	require.NoError(t, err)
	n.AddSource(src)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- n.Run(ctx) }()

	// Give the watcher a moment to register the root.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Doc\n\nhello.\n"), 0o644))

	require.Eventually(t, func() bool {
		return h.service.QueueLen() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	h.service.mu.Lock()
	events := h.service.queue.drain()
	h.service.mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, src.ID, events[0].SourceID)

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop after cancellation")
	}
}

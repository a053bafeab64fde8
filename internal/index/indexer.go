package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/docdexhq/docdex/internal/chunk"
	"github.com/docdexhq/docdex/internal/embed"
	"github.com/docdexhq/docdex/internal/errors"
	"github.com/docdexhq/docdex/internal/fsys"
	"github.com/docdexhq/docdex/internal/source"
	"github.com/docdexhq/docdex/internal/store"
)

const (
	// CurrentIndexVersion is stamped on embedding metadata. Bump it when
	// the pipeline changes in a way that invalidates stored chunks.
	CurrentIndexVersion = 1

	// DefaultMaxConcurrent bounds the file worker pool.
	DefaultMaxConcurrent = 5

	// DefaultBatchSize is the number of chunks embedded per provider call.
	DefaultBatchSize = 10
)

// Dependencies holds the collaborators required to construct an Indexer.
// All fields are required.
type Dependencies struct {
	// Registry tracks registered sources and their lifecycle state.
	Registry *source.Registry

	// Chunker splits document content into chunks.
	Chunker *chunk.Chunker

	// Provider generates embeddings for chunk content.
	Provider embed.Provider

	// FS scans source roots and reads file content.
	FS fsys.FS

	// Store persists indexed chunks.
	Store store.Store
}

// Indexer runs the scan, chunk, embed, store pipeline for registered
// sources. Safe for concurrent use.
type Indexer struct {
	registry *source.Registry
	chunker  *chunk.Chunker
	provider embed.Provider
	fs       fsys.FS
	store    store.Store

	maxConcurrent int
	batchSize     int
	retryCfg      errors.RetryConfig
	observer      Observer
	logger        *slog.Logger
}

// Option customizes an Indexer.
type Option func(*Indexer)

// WithMaxConcurrent sets the file worker pool size. Values below 1 are
// ignored.
func WithMaxConcurrent(n int) Option {
	return func(i *Indexer) {
		if n > 0 {
			i.maxConcurrent = n
		}
	}
}

// WithBatchSize sets the embedding batch size. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(i *Indexer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithRetryConfig overrides the retry policy applied to file reads and
// embedding calls.
func WithRetryConfig(cfg errors.RetryConfig) Option {
	return func(i *Indexer) {
		i.retryCfg = cfg
	}
}

// WithObserver registers a job progress observer.
func WithObserver(o Observer) Option {
	return func(i *Indexer) {
		if o != nil {
			i.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Indexer) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an Indexer after validating dependencies.
func New(deps Dependencies, opts ...Option) (*Indexer, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if deps.FS == nil {
		return nil, fmt.Errorf("fs is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	idx := &Indexer{
		registry:      deps.Registry,
		chunker:       deps.Chunker,
		provider:      deps.Provider,
		fs:            deps.FS,
		store:         deps.Store,
		maxConcurrent: DefaultMaxConcurrent,
		batchSize:     DefaultBatchSize,
		retryCfg:      errors.DefaultRetryConfig(),
		observer:      nopObserver{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// tracker serializes job mutations across workers. Observer snapshots are
// taken under the lock and delivered outside it.
type tracker struct {
	mu       sync.Mutex
	job      *Job
	observer Observer
}

func (t *tracker) update(fn func(*Job)) {
	t.mu.Lock()
	fn(t.job)
	snap := t.job.snapshot()
	t.mu.Unlock()
	t.observer.JobUpdated(snap)
}

func (t *tracker) emit() {
	t.mu.Lock()
	snap := t.job.snapshot()
	t.mu.Unlock()
	t.observer.JobUpdated(snap)
}

func (t *tracker) fileFailed(path string, err error) {
	t.update(func(j *Job) {
		j.Errors = append(j.Errors, fmt.Sprintf("%s: %v", path, err))
	})
}

func (t *tracker) final() Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job.snapshot()
}

// IndexSource runs the full pipeline for a registered source: scan the
// root, select files by policy, then read, chunk, embed, and store each
// one on a bounded worker pool. Per-file failures are recorded on the job
// and do not abort the run; scan failures and registry update failures do.
// On success the source transitions to indexed with a fresh checkpoint.
func (i *Indexer) IndexSource(ctx context.Context, sourceID string) (Job, error) {
	src, err := i.registry.Get(sourceID)
	if err != nil {
		return Job{}, err
	}
	if src.Status == source.StatusRemoved {
		return Job{}, errors.ErrSourceRemoved
	}

	t := &tracker{
		job: &Job{
			ID:         uuid.NewString(),
			SourceID:   sourceID,
			Status:     JobPending,
			StartedAt:  time.Now().UTC(),
			Provider:   i.provider.ID(),
			Model:      i.provider.ModelName(),
			Dimensions: i.provider.Dimensions(),
		},
		observer: i.observer,
	}
	t.emit()

	i.logger.Info("index_start",
		slog.String("source_id", sourceID),
		slog.String("root", src.RootPath),
		slog.String("job_id", t.job.ID))

	if err := i.registry.UpdateStatus(sourceID, source.StatusIndexing); err != nil {
		return i.fail(t, sourceID, err)
	}
	t.update(func(j *Job) { j.Status = JobRunning })

	files, err := i.fs.ScanDirectory(ctx, src.RootPath, src.Policy.MaxDepth)
	if err != nil {
		return i.fail(t, sourceID, err)
	}

	targets := selectFiles(src, files)
	t.update(func(j *Job) { j.FilesTotal = len(targets) })
	i.logger.Debug("scan_complete",
		slog.String("source_id", sourceID),
		slog.Int("scanned", len(files)),
		slog.Int("selected", len(targets)))

	if err := i.runPool(ctx, &src, targets, t); err != nil {
		return i.fail(t, sourceID, err)
	}

	done := t.final()
	errMsg := ""
	if len(done.Errors) > 0 {
		errMsg = strings.Join(done.Errors, "; ")
	}
	checkpoint := fmt.Sprintf("%d:%d", time.Now().Unix(), done.ChunksProcessed)

	if err := i.registry.UpdateStatus(sourceID, source.StatusIndexed,
		source.WithLastIndexedAt(time.Now().UTC()),
		source.WithFileCount(done.FilesProcessed),
		source.WithErrorMessage(errMsg),
	); err != nil {
		return i.fail(t, sourceID, err)
	}
	if err := i.registry.SaveCheckpoint(sourceID, checkpoint); err != nil {
		return i.fail(t, sourceID, err)
	}

	t.update(func(j *Job) {
		j.Status = JobComplete
		j.CompletedAt = time.Now().UTC()
	})

	done = t.final()
	i.logger.Info("index_complete",
		slog.String("source_id", sourceID),
		slog.Int("files", done.FilesProcessed),
		slog.Int("chunks", done.ChunksProcessed),
		slog.Int("embeddings", done.EmbeddingsGenerated),
		slog.Int("file_errors", len(done.Errors)),
		slog.Int64("duration_ms", time.Since(done.StartedAt).Milliseconds()))
	return done, nil
}

// fail marks the source errored and the job failed, then returns cause.
func (i *Indexer) fail(t *tracker, sourceID string, cause error) (Job, error) {
	if err := i.registry.UpdateStatus(sourceID, source.StatusError,
		source.WithErrorMessage(cause.Error()),
	); err != nil {
		i.logger.Warn("status_update_failed",
			slog.String("source_id", sourceID),
			slog.String("error", err.Error()))
	}
	t.update(func(j *Job) {
		j.Status = JobFailed
		j.CompletedAt = time.Now().UTC()
		j.Errors = append(j.Errors, cause.Error())
	})
	i.logger.Error("index_failed",
		slog.String("source_id", sourceID),
		slog.String("error", cause.Error()))
	return t.final(), cause
}

// selectFiles applies the source policy and size cutoff to scan results.
func selectFiles(src source.Source, files []fsys.FileInfo) []fsys.FileInfo {
	out := make([]fsys.FileInfo, 0, len(files))
	for _, f := range files {
		if !src.Policy.Matches(f.Path, src.RootPath) {
			continue
		}
		if src.Policy.MaxFileSize > 0 && f.Size > src.Policy.MaxFileSize {
			continue
		}
		out = append(out, f)
	}
	return out
}

// runPool processes files on up to maxConcurrent workers pulling from a
// shared cursor.
func (i *Indexer) runPool(ctx context.Context, src *source.Source, files []fsys.FileInfo, t *tracker) error {
	if len(files) == 0 {
		return nil
	}

	workers := min(i.maxConcurrent, len(files))
	var cursor atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				n := int(cursor.Add(1)) - 1
				if n >= len(files) {
					return nil
				}
				i.processFile(gctx, src, files[n], t)
			}
		})
	}
	return g.Wait()
}

// processFile runs read, chunk, delete-prior, embed, store for one file.
// Errors are recorded on the job and the pool moves on.
func (i *Indexer) processFile(ctx context.Context, src *source.Source, f fsys.FileInfo, t *tracker) {
	abs, rel, err := source.ResolveWithinRoot(f.Path, src.RootPath)
	if err != nil {
		t.fileFailed(f.Path, err)
		return
	}

	content, err := errors.RetryWithResult(ctx, i.retryCfg, func() (string, error) {
		return i.fs.ReadFile(ctx, abs)
	})
	if err != nil {
		t.fileFailed(rel, err)
		return
	}

	chunks, err := i.chunker.Chunk(content, abs, src.ID)
	if err != nil {
		t.fileFailed(rel, err)
		return
	}
	if len(chunks) > 0 {
		t.update(func(j *Job) { j.ChunksTotal += len(chunks) })
	}

	// Prior chunks for this path go first so a shrunk or emptied file
	// leaves no stale entries behind.
	if _, err := i.store.DeleteByPath(ctx, src.ID, abs); err != nil {
		t.fileFailed(rel, err)
		return
	}
	if len(chunks) == 0 {
		t.update(func(j *Job) { j.FilesProcessed++ })
		return
	}

	indexed, err := i.embedChunks(ctx, chunks)
	if err != nil {
		t.fileFailed(rel, err)
		return
	}
	if err := i.store.Put(ctx, indexed); err != nil {
		t.fileFailed(rel, err)
		return
	}

	t.update(func(j *Job) {
		j.FilesProcessed++
		j.ChunksProcessed += len(chunks)
		j.EmbeddingsGenerated += len(indexed)
	})
}

// embedChunks turns chunks into storable records, embedding content in
// batches. The vector count is validated after the retry loop: a mismatch
// is deterministic and fails the file outright.
func (i *Indexer) embedChunks(ctx context.Context, chunks []chunk.Chunk) ([]*store.IndexedChunk, error) {
	meta := store.EmbeddingMeta{
		Provider:     i.provider.ID(),
		Model:        i.provider.ModelName(),
		Dimensions:   i.provider.Dimensions(),
		Version:      i.provider.Version(),
		IndexVersion: CurrentIndexVersion,
		IndexedAt:    time.Now().UTC(),
	}

	out := make([]*store.IndexedChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += i.batchSize {
		end := min(start+i.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		vectors, err := errors.RetryWithResult(ctx, i.retryCfg, func() ([][]float32, error) {
			return i.provider.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, errors.New(errors.ErrCodeBatchMismatch, "embedding batch returned wrong vector count", nil).
				WithDetail("want", strconv.Itoa(len(texts))).
				WithDetail("got", strconv.Itoa(len(vectors)))
		}

		for j := range batch {
			out = append(out, &store.IndexedChunk{
				Chunk:         batch[j],
				Embedding:     vectors[j],
				FTSIndexed:    true,
				EmbeddingMeta: meta,
			})
		}
	}
	return out, nil
}

// IndexFile indexes a single file of a registered source. The path may be
// absolute or root-relative but must resolve inside the source root. A
// file that yields no chunks succeeds with an empty slice after clearing
// previously stored chunks for that path.
func (i *Indexer) IndexFile(ctx context.Context, sourceID, path string) ([]chunk.Chunk, error) {
	src, err := i.registry.Get(sourceID)
	if err != nil {
		return nil, err
	}
	if src.Status == source.StatusRemoved {
		return nil, errors.ErrSourceRemoved
	}

	abs, _, err := source.ResolveWithinRoot(path, src.RootPath)
	if err != nil {
		// The path stays out of the log line for the same reason it
		// stays out of the error.
		i.logger.Warn("path_rejected", slog.String("source_id", sourceID))
		return nil, err
	}

	content, err := errors.RetryWithResult(ctx, i.retryCfg, func() (string, error) {
		return i.fs.ReadFile(ctx, abs)
	})
	if err != nil {
		return nil, err
	}

	chunks, err := i.chunker.Chunk(content, abs, src.ID)
	if err != nil {
		return nil, err
	}

	if _, err := i.store.DeleteByPath(ctx, src.ID, abs); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []chunk.Chunk{}, nil
	}

	indexed, err := i.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if err := i.store.Put(ctx, indexed); err != nil {
		return nil, err
	}
	return chunks, nil
}

// RemoveFile deletes stored chunks for one file of a source and reports
// how many were removed. The path is containment-checked like IndexFile.
// Removed sources are accepted; cleanup must stay possible.
func (i *Indexer) RemoveFile(ctx context.Context, sourceID, path string) (int, error) {
	src, err := i.registry.Get(sourceID)
	if err != nil {
		return 0, err
	}

	abs, _, err := source.ResolveWithinRoot(path, src.RootPath)
	if err != nil {
		return 0, err
	}
	return i.store.DeleteByPath(ctx, src.ID, abs)
}

// RemoveSource deletes every stored chunk for a source and reports how
// many were removed. Registry state is the caller's concern.
func (i *Indexer) RemoveSource(ctx context.Context, sourceID string) (int, error) {
	n, err := i.store.DeleteBySource(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		i.logger.Info("chunks_removed",
			slog.String("source_id", sourceID),
			slog.Int("count", n))
	}
	return n, nil
}

// ChunksBySource returns a source's stored chunks in document order.
func (i *Indexer) ChunksBySource(ctx context.Context, sourceID string) ([]*store.IndexedChunk, error) {
	return i.store.BySource(ctx, sourceID)
}

// Chunk returns one stored chunk by id.
func (i *Indexer) Chunk(ctx context.Context, id string) (*store.IndexedChunk, error) {
	return i.store.Get(ctx, id)
}

// IndexedPaths returns the distinct file paths a source has chunks for.
// Restart reconciliation diffs this against the filesystem.
func (i *Indexer) IndexedPaths(ctx context.Context, sourceID string) ([]string, error) {
	return i.store.PathsBySource(ctx, sourceID)
}

// SearchByContent returns chunks containing the query as a
// case-insensitive substring, in document order. Ranked retrieval lives
// in the search package.
func (i *Indexer) SearchByContent(ctx context.Context, query string, limit int) ([]*store.IndexedChunk, error) {
	all, err := i.store.All(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	out := make([]*store.IndexedChunk, 0)
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Content), q) {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

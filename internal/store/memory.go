package store

import (
	"context"
	"sort"
	"sync"

	"github.com/docdexhq/docdex/internal/errors"
)

// MemoryStore keeps indexed chunks in a map keyed by chunk id, with a
// secondary index from source id to the chunk ids it owns. All access is
// guarded by a single RWMutex; indexer workers write concurrently.
type MemoryStore struct {
	mu       sync.RWMutex
	chunks   map[string]*IndexedChunk
	bySource map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:   make(map[string]*IndexedChunk),
		bySource: make(map[string]map[string]struct{}),
	}
}

// Put upserts chunks keyed by chunk id.
func (m *MemoryStore) Put(_ context.Context, chunks []*IndexedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range chunks {
		if ch == nil || ch.ID == "" {
			continue
		}

		// An upsert may move a chunk id between sources if the same
		// file was re-registered under a different root; drop the old
		// secondary-index entry first.
		if old, ok := m.chunks[ch.ID]; ok && old.SourceID != ch.SourceID {
			m.removeFromSource(old.SourceID, ch.ID)
		}

		m.chunks[ch.ID] = ch

		ids, ok := m.bySource[ch.SourceID]
		if !ok {
			ids = make(map[string]struct{})
			m.bySource[ch.SourceID] = ids
		}
		ids[ch.ID] = struct{}{}
	}
	return nil
}

// Get returns a chunk by id.
func (m *MemoryStore) Get(_ context.Context, id string) (*IndexedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.chunks[id]
	if !ok {
		return nil, errors.ErrChunkNotFound
	}
	return ch, nil
}

// BySource returns a source's chunks in document order.
func (m *MemoryStore) BySource(_ context.Context, sourceID string) ([]*IndexedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.bySource[sourceID]
	out := make([]*IndexedChunk, 0, len(ids))
	for id := range ids {
		if ch, ok := m.chunks[id]; ok {
			out = append(out, ch)
		}
	}

	sortDocumentOrder(out)
	return out, nil
}

// PathsBySource returns the distinct indexed paths of a source, sorted.
func (m *MemoryStore) PathsBySource(_ context.Context, sourceID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for id := range m.bySource[sourceID] {
		if ch, ok := m.chunks[id]; ok {
			seen[ch.SourcePath] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// DeleteByPath removes all chunks for one file of a source.
func (m *MemoryStore) DeleteByPath(_ context.Context, sourceID, sourcePath string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id := range m.bySource[sourceID] {
		ch, ok := m.chunks[id]
		if !ok || ch.SourcePath != sourcePath {
			continue
		}
		delete(m.chunks, id)
		m.removeFromSource(sourceID, id)
		removed++
	}
	return removed, nil
}

// DeleteBySource removes every chunk of a source.
func (m *MemoryStore) DeleteBySource(_ context.Context, sourceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.bySource[sourceID]
	for id := range ids {
		delete(m.chunks, id)
	}
	delete(m.bySource, sourceID)
	return len(ids), nil
}

// All returns every stored chunk in document order across sources.
func (m *MemoryStore) All(_ context.Context) ([]*IndexedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*IndexedChunk, 0, len(m.chunks))
	for _, ch := range m.chunks {
		out = append(out, ch)
	}

	sortDocumentOrder(out)
	return out, nil
}

// Count reports the number of stored chunks.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Close drops all stored chunks.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]*IndexedChunk)
	m.bySource = make(map[string]map[string]struct{})
	return nil
}

// removeFromSource must be called with the write lock held.
func (m *MemoryStore) removeFromSource(sourceID, id string) {
	ids, ok := m.bySource[sourceID]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(m.bySource, sourceID)
	}
}

// sortDocumentOrder orders chunks by source path, then position in the
// document, with id as the final tie-break for full determinism.
func sortDocumentOrder(chunks []*IndexedChunk) {
	sort.Slice(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.SourcePath != b.SourcePath {
			return a.SourcePath < b.SourcePath
		}
		if a.StartOffset != b.StartOffset {
			return a.StartOffset < b.StartOffset
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.ID < b.ID
	})
}

var _ Store = (*MemoryStore)(nil)

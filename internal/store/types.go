// Package store holds indexed chunks. The shipped implementation is an
// in-memory map; the interface is the seam a durable backend would
// implement.
package store

import (
	"context"
	"time"

	"github.com/docdexhq/docdex/internal/chunk"
)

// EmbeddingMeta records which provider produced a chunk's vector and
// when.
type EmbeddingMeta struct {
	Provider     string
	Model        string
	Dimensions   int
	Version      string
	IndexVersion int
	IndexedAt    time.Time
}

// IndexedChunk is a document chunk with its embedding attached.
type IndexedChunk struct {
	chunk.Chunk

	// Embedding is the fixed-dimension vector for the chunk content.
	Embedding []float32

	// FTSIndexed marks the chunk as available to keyword scans.
	FTSIndexed bool

	EmbeddingMeta EmbeddingMeta
}

// Store is the chunk storage contract. Implementations must be safe for
// concurrent use; indexer workers write from multiple goroutines.
type Store interface {
	// Put upserts chunks keyed by chunk id.
	Put(ctx context.Context, chunks []*IndexedChunk) error

	// Get returns a chunk by id, or ErrChunkNotFound.
	Get(ctx context.Context, id string) (*IndexedChunk, error)

	// BySource returns a source's chunks in document order: by source
	// path, then start offset.
	BySource(ctx context.Context, sourceID string) ([]*IndexedChunk, error)

	// PathsBySource returns the distinct source paths with indexed
	// chunks, sorted.
	PathsBySource(ctx context.Context, sourceID string) ([]string, error)

	// DeleteByPath removes all chunks for one file of a source and
	// reports how many were removed.
	DeleteByPath(ctx context.Context, sourceID, sourcePath string) (int, error)

	// DeleteBySource removes every chunk of a source.
	DeleteBySource(ctx context.Context, sourceID string) (int, error)

	// All returns every stored chunk in document order across sources.
	All(ctx context.Context) ([]*IndexedChunk, error)

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases storage resources.
	Close() error
}

package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docdexhq/docdex/internal/errors"
)

// DefaultCacheSize is the default number of cached embeddings. At 256
// dimensions * 4 bytes * 1000 entries this is about 1MB.
const DefaultCacheSize = 1000

// CachedProvider wraps a Provider with an LRU cache keyed by text and
// model, so re-indexing unchanged content and repeated queries skip the
// underlying provider.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCachedProvider wraps inner with a cache of the given capacity.
// Non-positive sizes fall back to DefaultCacheSize.
func NewCachedProvider(inner Provider, cacheSize int) *CachedProvider {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedProvider{
		inner: inner,
		cache: cache,
	}
}

// cacheKey hashes text together with the model name so a model change
// never serves stale vectors.
func (c *CachedProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached embedding when present, otherwise computes
// and caches it.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch checks the cache per text and forwards only the misses to
// the inner provider in a single batch, preserving input order.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIndices := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
			continue
		}
		missIndices = append(missIndices, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, errors.New(errors.ErrCodeBatchMismatch,
				"provider returned wrong vector count", nil)
		}
		for j, vec := range vecs {
			idx := missIndices[j]
			results[idx] = vec
			c.cache.Add(c.cacheKey(texts[idx]), vec)
		}
	}

	return results, nil
}

// ID returns the inner provider's identifier.
func (c *CachedProvider) ID() string {
	return c.inner.ID()
}

// ModelName returns the inner provider's model identifier.
func (c *CachedProvider) ModelName() string {
	return c.inner.ModelName()
}

// Dimensions returns the inner provider's embedding dimension.
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// Version returns the inner provider's version.
func (c *CachedProvider) Version() string {
	return c.inner.Version()
}

// Available reports the inner provider's readiness.
func (c *CachedProvider) Available(ctx context.Context) bool {
	return c.inner.Available(ctx)
}

// Close purges the cache and closes the inner provider.
func (c *CachedProvider) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// Len reports the current number of cached embeddings.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

var _ Provider = (*CachedProvider)(nil)

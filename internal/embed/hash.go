package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/docdexhq/docdex/internal/errors"
)

// HashProvider generates embeddings with a hash-based approach: no
// network, no model download, fully deterministic. Semantic quality is
// reduced compared to a real model, but identical text always produces
// identical vectors, which keeps re-indexing idempotent.
type HashProvider struct {
	dimensions int

	mu     sync.RWMutex
	closed bool
}

// DefaultHashDimensions is the vector length used when none is configured.
const DefaultHashDimensions = 256

// Feature weights for vector generation.
const (
	tokenWeight   = 0.7
	trigramWeight = 0.3
	trigramSize   = 3
)

// englishStopWords are dropped before token hashing so common filler does
// not dominate document vectors.
var englishStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "of": true, "to": true, "in": true, "on": true,
	"for": true, "with": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true,
	"as": true, "at": true, "by": true, "from": true, "not": true,
}

// tokenPattern matches letter/digit runs, Unicode-aware.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// NewHashProvider creates a hash provider with the default dimension.
func NewHashProvider() *HashProvider {
	return NewHashProviderWithDimensions(DefaultHashDimensions)
}

// NewHashProviderWithDimensions creates a hash provider with a custom
// vector length. Non-positive values fall back to the default.
func NewHashProviderWithDimensions(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashProvider{dimensions: dimensions}
}

// ID returns the provider identifier.
func (p *HashProvider) ID() string {
	return "hash"
}

// ModelName returns the model identifier.
func (p *HashProvider) ModelName() string {
	return "hash-fnv64"
}

// Dimensions returns the embedding dimension.
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}

// Version identifies the vector derivation scheme.
func (p *HashProvider) Version() string {
	return "1"
}

// Available reports readiness; the hash provider is always ready until
// closed.
func (p *HashProvider) Available(_ context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// Embed generates an embedding for a single text. Empty or
// whitespace-only input maps to the zero vector.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, errors.New(errors.ErrCodeProviderUnavailable,
			"embedding provider is closed", nil)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, p.dimensions), nil
	}

	return normalizeVector(p.generateVector(trimmed)), nil
}

// EmbedBatch generates embeddings for multiple texts, one vector per
// input in input order.
func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEmbedFailed, err).
				WithDetail("batch_index", strconv.Itoa(i))
		}
		results[i] = vec
	}
	return results, nil
}

// Close marks the provider closed. Subsequent calls fail.
func (p *HashProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// generateVector accumulates token features (weight 0.7) and character
// trigram features (weight 0.3) into hash-addressed buckets.
func (p *HashProvider) generateVector(text string) []float32 {
	vector := make([]float32, p.dimensions)

	for _, token := range tokenizeText(text) {
		vector[hashToIndex(token, p.dimensions)] += tokenWeight
	}

	normalized := normalizeForTrigrams(text)
	for _, trigram := range extractTrigrams(normalized) {
		vector[hashToIndex(trigram, p.dimensions)] += trigramWeight
	}

	return vector
}

// tokenizeText lowercases and splits text into letter/digit runs, then
// drops stop words.
func tokenizeText(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := words[:0]
	for _, w := range words {
		if !englishStopWords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// normalizeForTrigrams keeps only lowercase letters and digits so trigram
// features ignore punctuation and spacing.
func normalizeForTrigrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractTrigrams yields sliding character windows of length three.
func extractTrigrams(text string) []string {
	if len(text) < trigramSize {
		return nil
	}
	out := make([]string, 0, len(text)-trigramSize+1)
	for i := 0; i+trigramSize <= len(text); i++ {
		out = append(out, text[i:i+trigramSize])
	}
	return out
}

// hashToIndex maps a string feature to a vector bucket with FNV-64.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

var _ Provider = (*HashProvider)(nil)

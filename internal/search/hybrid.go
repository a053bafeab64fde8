// Package search ranks stored chunks against a query by fusing semantic
// similarity with keyword frequency.
package search

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/docdexhq/docdex/internal/embed"
	"github.com/docdexhq/docdex/internal/errors"
	"github.com/docdexhq/docdex/internal/store"
)

const (
	// DefaultSemanticWeight is the share of the final score carried by
	// vector similarity.
	DefaultSemanticWeight = 0.7

	// DefaultKeywordWeight is the share carried by keyword frequency.
	DefaultKeywordWeight = 0.3

	// DefaultTopK caps the result list when the caller does not.
	DefaultTopK = 10
)

// queryTokenPattern splits queries and chunk text into letter and digit
// runs, which keeps tokenization consistent with the embedding provider.
var queryTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Options narrows and caps a ranking pass.
type Options struct {
	// TopK caps the number of results. Zero means DefaultTopK; negative
	// means unlimited.
	TopK int

	// MinScore drops results scoring strictly below it. Zero keeps
	// everything.
	MinScore float64

	// PathPrefix keeps only chunks whose source path equals the prefix
	// or sits beneath it.
	PathPrefix string

	// SourceIDs restricts the searched sources. Empty means every
	// indexed source. Only Searcher.Search consults it; Rank receives
	// its candidates directly.
	SourceIDs []string
}

// Result is one ranked chunk. Component scores are preserved so callers
// can show how a result earned its position.
type Result struct {
	ChunkID          string
	SourceID         string
	SourcePath       string
	Heading          string
	HeadingHierarchy []string
	ChunkIndex       int
	Content          string

	// Score is the fused ranking score in [0, 1].
	Score float64

	// SemanticScore is the cosine similarity against the query vector,
	// zero when the provider was unavailable.
	SemanticScore float64

	// KeywordScore is the normalized query-term frequency.
	KeywordScore float64

	// KeywordOnly marks results ranked without the semantic component.
	KeywordOnly bool
}

// Ranker fuses semantic and keyword scores over candidate chunks.
//
// final = semanticWeight*cosine + keywordWeight*normalizedTF
//
// When the embedding provider is unavailable the semantic component is
// skipped entirely and the keyword score becomes the final score, so a
// degraded provider narrows ranking quality instead of zeroing it.
type Ranker struct {
	provider       embed.Provider
	semanticWeight float64
	keywordWeight  float64
	logger         *slog.Logger
}

// RankerOption customizes a Ranker.
type RankerOption func(*Ranker)

// WithWeights overrides the fusion weights.
func WithWeights(semantic, keyword float64) RankerOption {
	return func(r *Ranker) {
		r.semanticWeight = semantic
		r.keywordWeight = keyword
	}
}

// WithRankerLogger sets the logger.
func WithRankerLogger(l *slog.Logger) RankerOption {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRanker creates a Ranker around an embedding provider.
func NewRanker(provider embed.Provider, opts ...RankerOption) (*Ranker, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "embedding provider is required", nil)
	}

	r := &Ranker{
		provider:       provider,
		semanticWeight: DefaultSemanticWeight,
		keywordWeight:  DefaultKeywordWeight,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.semanticWeight < 0 || r.keywordWeight < 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "search weights must not be negative", nil)
	}
	if r.semanticWeight+r.keywordWeight == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "search weights must not both be zero", nil)
	}
	return r, nil
}

// Rank scores candidates against the query and returns them best first.
// Ties break on ascending chunk id so equal-scoring results keep a
// stable order across runs.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []*store.IndexedChunk, opts Options) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "search query is empty", nil)
	}

	candidates = filterByPrefix(candidates, opts.PathPrefix)
	if len(candidates) == 0 {
		return []*Result{}, nil
	}

	keyword := keywordScores(query, candidates)

	queryVec, semanticOK := r.queryVector(ctx, query)
	if !semanticOK {
		r.logger.Warn("semantic_ranking_skipped", slog.String("provider", r.provider.ID()))
	}

	results := make([]*Result, 0, len(candidates))
	for i, c := range candidates {
		res := &Result{
			ChunkID:          c.ID,
			SourceID:         c.SourceID,
			SourcePath:       c.SourcePath,
			Heading:          c.Heading,
			HeadingHierarchy: c.HeadingHierarchy,
			ChunkIndex:       c.ChunkIndex,
			Content:          c.Content,
			KeywordScore:     keyword[i],
		}
		if semanticOK {
			res.SemanticScore = cosine(queryVec, c.Embedding)
			res.Score = r.semanticWeight*res.SemanticScore + r.keywordWeight*res.KeywordScore
		} else {
			res.KeywordOnly = true
			res.Score = res.KeywordScore
		}
		if res.Score < opts.MinScore {
			continue
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	topK := opts.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// queryVector embeds the query, reporting false when the provider cannot
// serve it.
func (r *Ranker) queryVector(ctx context.Context, query string) ([]float32, bool) {
	if !r.provider.Available(ctx) {
		return nil, false
	}
	vec, err := r.provider.Embed(ctx, query)
	if err != nil {
		return nil, false
	}
	return vec, true
}

// filterByPrefix keeps chunks whose source path equals prefix or lies
// under it. Sibling prefixes ("/docs" vs "/docs-old") do not match.
func filterByPrefix(chunks []*store.IndexedChunk, prefix string) []*store.IndexedChunk {
	if prefix == "" {
		return chunks
	}
	prefix = strings.TrimRight(prefix, "/")

	out := make([]*store.IndexedChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.SourcePath == prefix || strings.HasPrefix(c.SourcePath, prefix+"/") {
			out = append(out, c)
		}
	}
	return out
}

// keywordScores returns one normalized term-frequency score per chunk:
// the total occurrences of query tokens in the chunk, scaled by the
// highest total in the candidate set. A query with no token overlap
// anywhere yields all zeros.
func keywordScores(query string, chunks []*store.IndexedChunk) []float64 {
	terms := tokenize(query)
	scores := make([]float64, len(chunks))
	if len(terms) == 0 {
		return scores
	}

	querySet := make(map[string]bool, len(terms))
	for _, t := range terms {
		querySet[t] = true
	}

	maxScore := 0.0
	for i, c := range chunks {
		count := 0
		for _, tok := range tokenize(c.Content) {
			if querySet[tok] {
				count++
			}
		}
		scores[i] = float64(count)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	if maxScore == 0 {
		return scores
	}
	for i := range scores {
		scores[i] /= maxScore
	}
	return scores
}

func tokenize(text string) []string {
	return queryTokenPattern.FindAllString(strings.ToLower(text), -1)
}

// cosine returns the cosine similarity of two vectors, clamped to zero
// from below so scores stay in [0, 1]. Mismatched lengths compare over
// the shorter span.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	return sim
}

// Package chunk splits normalized document text into bounded, overlapping,
// heading-aware chunks with deterministic, content-addressed ids.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Strategy selects how a document is segmented.
type Strategy string

const (
	// StrategyHeading builds sections bounded by markdown headings and
	// splits oversized sections at paragraph, then sentence, boundaries.
	StrategyHeading Strategy = "heading"

	// StrategyFixed uses a sliding character window with no heading
	// metadata.
	StrategyFixed Strategy = "fixed"

	// StrategyParagraph greedily packs blank-line-separated paragraphs.
	StrategyParagraph Strategy = "paragraph"
)

// Default sizing, in characters.
const (
	DefaultMaxChunkSize = 1500
	DefaultOverlapSize  = 200
)

// Options configures a Chunker.
type Options struct {
	// Strategy is the segmentation strategy. Empty means heading.
	Strategy Strategy

	// MaxChunkSize bounds the pre-overlap length of any chunk.
	MaxChunkSize int

	// OverlapSize is the number of trailing characters of the previous
	// chunk prefixed to each chunk after the first.
	OverlapSize int
}

// DefaultOptions returns the heading strategy with default sizing.
func DefaultOptions() Options {
	return Options{
		Strategy:     StrategyHeading,
		MaxChunkSize: DefaultMaxChunkSize,
		OverlapSize:  DefaultOverlapSize,
	}
}

// Metadata carries signals derived from a chunk's content.
type Metadata struct {
	// WordCount is the whitespace-token count.
	WordCount int `yaml:"word_count"`

	// HasCode is set when the content carries fenced or inline code.
	HasCode bool `yaml:"has_code"`

	// HasLinks is set when the content carries a markdown link or bare
	// URL.
	HasLinks bool `yaml:"has_links"`
}

// Chunk is a bounded span of a document with position and heading context.
type Chunk struct {
	// ID is content-addressed: identical content at the same offset of
	// the same sourcePath always derives the same id.
	ID string

	// SourcePath is the document's path as given to the chunker.
	SourcePath string

	// SourceID identifies the registered source the document belongs to.
	SourceID string

	// Heading is the markdown heading line governing this chunk, hash
	// markers included. Empty for headingless content and for the fixed
	// and paragraph strategies.
	Heading string

	// HeadingHierarchy is the ordered chain of enclosing headings, root
	// to leaf, the chunk's own heading last.
	HeadingHierarchy []string

	// Content is the chunk text, overlap prefix included.
	Content string

	// StartOffset and EndOffset locate the chunk in the original
	// document. StartOffset accounts for the overlap prefix.
	StartOffset int
	EndOffset   int

	// ChunkIndex and TotalChunks place the chunk in document order.
	ChunkIndex  int
	TotalChunks int

	Metadata Metadata
}

// ID derives the content-addressed chunk id: a truncated hash over
// sourcePath, start offset, and the content's own hash. Re-chunking
// unchanged content reproduces the same ids, which is what makes
// re-indexing idempotent and embedding caches effective.
func ID(sourcePath string, startOffset int, content string) string {
	contentSum := sha256.Sum256([]byte(content))
	seed := fmt.Sprintf("%s:%d:%s", sourcePath, startOffset, hex.EncodeToString(contentSum[:]))
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}

package chunk

import (
	"regexp"
	"strings"

	"github.com/docdexhq/docdex/internal/errors"
)

// Regex patterns for markdown segmentation and metadata.
var (
	// Heading lines, levels 1-4. Deeper headings stay inside body text.
	headingPattern = regexp.MustCompile(`(?m)^(#{1,4})[ \t]+.+$`)

	// Blank-line paragraph separators.
	paragraphBreakPattern = regexp.MustCompile(`\n[ \t]*\n`)

	// Sentences: any run of text up to terminal punctuation.
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

	// Inline code spans. Fenced blocks are detected by their marker so a
	// fence split across chunks still counts.
	inlineCodePattern = regexp.MustCompile("`[^`\n]+`")

	// Markdown links and bare URLs.
	linkPattern = regexp.MustCompile(`\[[^\]]*\]\([^)]+\)|https?://[^\s)]+`)
)

// Chunker splits markdown documents according to a fixed strategy.
// It is stateless and safe for concurrent use.
type Chunker struct {
	opts Options
}

// NewChunker creates a chunker with the default heading strategy.
func NewChunker() *Chunker {
	return &Chunker{opts: DefaultOptions()}
}

// NewChunkerWithOptions creates a chunker with custom options. Zero
// MaxChunkSize falls back to the default; OverlapSize zero is a valid
// no-overlap configuration.
func NewChunkerWithOptions(opts Options) (*Chunker, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyHeading
	}
	switch opts.Strategy {
	case StrategyHeading, StrategyFixed, StrategyParagraph:
	default:
		return nil, errors.New(errors.ErrCodeUnknownStrategy,
			"unknown chunking strategy", nil).
			WithDetail("strategy", string(opts.Strategy))
	}

	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.OverlapSize < 0 || opts.OverlapSize >= opts.MaxChunkSize {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			"overlap size must be in [0, max chunk size)", nil)
	}

	return &Chunker{opts: opts}, nil
}

// Options returns the chunker's effective options.
func (c *Chunker) Options() Options {
	return c.opts
}

// span is a half-open [start, end) slice of the document, tagged with the
// heading context it falls under.
type span struct {
	start, end int
	heading    string
	hierarchy  []string
}

// Chunk splits content into chunks. Empty or whitespace-only input yields
// no chunks and no error.
func (c *Chunker) Chunk(content, sourcePath, sourceID string) ([]Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var spans []span
	switch c.opts.Strategy {
	case StrategyHeading:
		spans = c.headingSpans(content)
	case StrategyFixed:
		spans = c.fixedSpans(content)
	case StrategyParagraph:
		spans = c.packParagraphs(content, span{start: 0, end: len(content)})
	default:
		return nil, errors.New(errors.ErrCodeUnknownStrategy,
			"unknown chunking strategy", nil).
			WithDetail("strategy", string(c.opts.Strategy))
	}

	return c.finalize(content, sourcePath, sourceID, spans), nil
}

// headingSpans builds sections bounded by consecutive headings, carrying
// the live ancestor chain for each, then splits oversized sections.
func (c *Chunker) headingSpans(content string) []span {
	marks := headingPattern.FindAllStringIndex(content, -1)
	if len(marks) == 0 {
		// No headings at all: the whole document is one headingless
		// section.
		return c.sectionSpans(content, span{start: 0, end: len(content)})
	}

	var spans []span

	// Content before the first heading is its own headingless section.
	if marks[0][0] > 0 {
		spans = append(spans, c.sectionSpans(content, span{start: 0, end: marks[0][0]})...)
	}

	// Hierarchy stack of still-open headings. A new heading pops every
	// entry at the same or deeper level before being pushed.
	type openHeading struct {
		level int
		text  string
	}
	var stack []openHeading

	for i, m := range marks {
		line := content[m[0]:m[1]]
		level := headingLevel(line)
		text := strings.TrimSpace(line)

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, openHeading{level: level, text: text})

		hierarchy := make([]string, len(stack))
		for j, h := range stack {
			hierarchy[j] = h.text
		}

		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}

		sec := span{start: m[0], end: end, heading: text, hierarchy: hierarchy}
		spans = append(spans, c.sectionSpans(content, sec)...)
	}

	return spans
}

func headingLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	return level
}

// sectionSpans trims a section and, when it exceeds the chunk bound,
// splits it at paragraph boundaries. Every sub-span inherits the
// section's heading context.
func (c *Chunker) sectionSpans(content string, sec span) []span {
	trimmed, ok := trimSpan(content, sec)
	if !ok {
		return nil
	}
	if trimmed.end-trimmed.start <= c.opts.MaxChunkSize {
		return []span{trimmed}
	}

	parts := c.packParagraphs(content, trimmed)
	for i := range parts {
		parts[i].heading = sec.heading
		parts[i].hierarchy = sec.hierarchy
	}
	return parts
}

// packParagraphs splits a span at blank-line boundaries and greedily packs
// consecutive paragraphs up to the chunk bound. An oversized paragraph is
// split at sentence boundaries.
func (c *Chunker) packParagraphs(content string, sec span) []span {
	trimmed, ok := trimSpan(content, sec)
	if !ok {
		return nil
	}

	text := content[trimmed.start:trimmed.end]
	breaks := paragraphBreakPattern.FindAllStringIndex(text, -1)

	var paragraphs []span
	prev := 0
	for _, b := range breaks {
		if p, ok := trimSpan(content, span{start: trimmed.start + prev, end: trimmed.start + b[0]}); ok {
			paragraphs = append(paragraphs, p)
		}
		prev = b[1]
	}
	if p, ok := trimSpan(content, span{start: trimmed.start + prev, end: trimmed.end}); ok {
		paragraphs = append(paragraphs, p)
	}

	max := c.opts.MaxChunkSize
	var out []span
	packStart, packEnd := -1, -1
	flush := func() {
		if packStart >= 0 {
			out = append(out, span{start: packStart, end: packEnd})
			packStart, packEnd = -1, -1
		}
	}

	for _, p := range paragraphs {
		// Pack length is measured across the document span, separator
		// whitespace included.
		if packStart >= 0 && p.end-packStart <= max {
			packEnd = p.end
			continue
		}
		flush()
		if p.end-p.start <= max {
			packStart, packEnd = p.start, p.end
			continue
		}
		out = append(out, c.splitSentences(content, p)...)
	}
	flush()

	return out
}

// splitSentences splits an oversized paragraph at sentence boundaries and
// packs the sentences greedily. A single sentence beyond the bound is kept
// whole; there is no finer boundary to cut at.
func (c *Chunker) splitSentences(content string, p span) []span {
	text := content[p.start:p.end]
	matches := sentencePattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []span{p}
	}

	var sentences []span
	last := 0
	for _, m := range matches {
		if s, ok := trimSpan(content, span{start: p.start + m[0], end: p.start + m[1]}); ok {
			sentences = append(sentences, s)
		}
		last = m[1]
	}
	// Trailing text without terminal punctuation still belongs to the
	// paragraph.
	if s, ok := trimSpan(content, span{start: p.start + last, end: p.end}); ok {
		sentences = append(sentences, s)
	}

	max := c.opts.MaxChunkSize
	var out []span
	packStart, packEnd := -1, -1
	flush := func() {
		if packStart >= 0 {
			out = append(out, span{start: packStart, end: packEnd})
			packStart, packEnd = -1, -1
		}
	}

	for _, s := range sentences {
		if packStart >= 0 && s.end-packStart <= max {
			packEnd = s.end
			continue
		}
		flush()
		packStart, packEnd = s.start, s.end
	}
	flush()

	return out
}

// fixedSpans slices the document into consecutive windows. The window
// step leaves room for the overlap prefix, so after overlap is applied
// every chunk beyond the first has exactly MaxChunkSize characters.
func (c *Chunker) fixedSpans(content string) []span {
	step := c.opts.MaxChunkSize - c.opts.OverlapSize
	var spans []span
	for start := 0; start < len(content); start += step {
		end := start + step
		if end > len(content) {
			end = len(content)
		}
		if s, ok := trimSpan(content, span{start: start, end: end}); ok {
			spans = append(spans, s)
		}
	}
	return spans
}

// finalize applies the overlap prefix, assigns positions, and computes
// metadata and ids. Chunk 0 never carries a prefix.
func (c *Chunker) finalize(content, sourcePath, sourceID string, spans []span) []Chunk {
	if len(spans) == 0 {
		return nil
	}

	k := c.opts.OverlapSize
	chunks := make([]Chunk, 0, len(spans))

	for i, s := range spans {
		text := content[s.start:s.end]
		startOffset := s.start

		if i > 0 && k > 0 {
			prev := spans[i-1]
			prevText := content[prev.start:prev.end]
			overlap := prevText
			if len(prevText) > k {
				overlap = prevText[len(prevText)-k:]
			}
			text = overlap + text
			startOffset -= len(overlap)
		}

		chunks = append(chunks, Chunk{
			ID:               ID(sourcePath, startOffset, text),
			SourcePath:       sourcePath,
			SourceID:         sourceID,
			Heading:          s.heading,
			HeadingHierarchy: s.hierarchy,
			Content:          text,
			StartOffset:      startOffset,
			EndOffset:        s.end,
			ChunkIndex:       i,
			TotalChunks:      len(spans),
			Metadata:         buildMetadata(text),
		})
	}

	return chunks
}

func buildMetadata(content string) Metadata {
	return Metadata{
		WordCount: len(strings.Fields(content)),
		HasCode:   strings.Contains(content, "```") || inlineCodePattern.MatchString(content),
		HasLinks:  linkPattern.MatchString(content),
	}
}

// trimSpan narrows a span to exclude surrounding whitespace. The second
// return is false when nothing remains.
func trimSpan(content string, s span) (span, bool) {
	start, end := s.start, s.end
	for start < end && isSpace(content[start]) {
		start++
	}
	for end > start && isSpace(content[end-1]) {
		end--
	}
	if start >= end {
		return span{}, false
	}
	s.start, s.end = start, end
	return s, true
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

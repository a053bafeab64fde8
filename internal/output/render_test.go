package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchResults_NumbersHitsWithSnippets(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.SearchResults("docker", []SearchHit{
		{
			Path:    "docs/setup.md",
			Heading: "Installation",
			Score:   0.87,
			Content: "Install docker first.\nThen configure the daemon.\n\n\n",
		},
		{
			Path:    "docs/faq.md",
			Score:   0.41,
			Content: "Can I run docker in docker?",
		},
	})

	output := buf.String()
	assert.Contains(t, output, `Found 2 results for "docker":`)
	assert.Contains(t, output, "1. docs/setup.md › Installation (score: 0.87)")
	assert.Contains(t, output, "2. docs/faq.md (score: 0.41)")
	assert.Contains(t, output, "Install docker first.")
	assert.Contains(t, output, "Then configure the daemon.")
	// Trailing blank lines of the snippet are trimmed
	assert.NotContains(t, output, "   \n")
}

func TestSearchResults_NoResults(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.SearchResults("nothing here", nil)

	assert.Contains(t, buf.String(), `No results found for "nothing here"`)
}

func TestSearchResults_KeywordOnlyWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.SearchResults("docker", []SearchHit{
		{Path: "a.md", Score: 0.5, Content: "docker", KeywordOnly: true},
	})

	assert.Contains(t, buf.String(), "keyword matches only")
}

func TestSourceStatus_RendersDetailBlock(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.SourceStatus(StatusInfo{
		Name:        "handbook",
		ID:          "src-1a2b3c4d",
		RootPath:    "/home/dev/handbook",
		Status:      "indexed",
		Files:       12,
		Chunks:      87,
		LastIndexed: time.Now().Add(-2 * time.Minute),
		Watched:     true,
		Provider:    "hash",
		Model:       "hash-fnv64",
		Dimensions:  256,
	})

	output := buf.String()
	assert.Contains(t, output, "Source: handbook")
	assert.Contains(t, output, "src-1a2b3c4d")
	assert.Contains(t, output, "/home/dev/handbook")
	assert.Contains(t, output, "indexed")
	assert.Contains(t, output, "Files:        12")
	assert.Contains(t, output, "Chunks:       87")
	assert.Contains(t, output, "2 minutes ago")
	assert.Contains(t, output, "Watched:      yes")
	assert.Contains(t, output, "hash-fnv64")
	assert.NotContains(t, output, "Last error")
}

func TestSourceStatus_ShowsLastError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.SourceStatus(StatusInfo{
		Name:         "handbook",
		Status:       "error",
		ErrorMessage: "scan failed: permission denied",
	})

	assert.Contains(t, buf.String(), "scan failed: permission denied")
}

func TestSummary_ReportsCountsAndErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Summary(IndexSummary{
		Files:      3,
		Chunks:     14,
		Duration:   1234 * time.Millisecond,
		Errors:     []string{"bad.md: read failed"},
		Provider:   "hash",
		Model:      "hash-fnv64",
		Dimensions: 256,
	})

	output := buf.String()
	assert.Contains(t, output, "Indexed 3 files, 14 chunks in 1.2s")
	assert.Contains(t, output, "(1 errors)")
	assert.Contains(t, output, "embedder: hash (hash-fnv64, 256 dims)")
	assert.Contains(t, output, "bad.md: read failed")
}

func TestRenderStatus_MapsKnownStatuses(t *testing.T) {
	w := New(&bytes.Buffer{})

	// Plain rendering on a buffer: the text passes through untouched.
	for _, status := range []string{"registered", "indexing", "indexed", "error", "removed", "weird"} {
		assert.Equal(t, status, w.RenderStatus(status))
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero time", t: time.Time{}, want: "never"},
		{name: "seconds", t: now.Add(-10 * time.Second), want: "just now"},
		{name: "one minute", t: now.Add(-70 * time.Second), want: "1 minute ago"},
		{name: "minutes", t: now.Add(-5 * time.Minute), want: "5 minutes ago"},
		{name: "one hour", t: now.Add(-61 * time.Minute), want: "1 hour ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3 hours ago"},
		{name: "one day", t: now.Add(-25 * time.Hour), want: "1 day ago"},
		{name: "days", t: now.Add(-3 * 24 * time.Hour), want: "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeAgo(tt.t))
		})
	}

	// Older than a week falls back to an absolute date.
	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Format("2006-01-02 15:04"), FormatTimeAgo(old))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, snippet("a\nb\nc\nd", 3))
	assert.Equal(t, []string{"a"}, snippet("a\n\n\n", 3))
	assert.Empty(t, snippet("", 3))
}

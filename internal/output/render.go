package output

import (
	"fmt"
	"strings"
	"time"
)

// SearchHit is the rendered view of one search result.
type SearchHit struct {
	Path        string   `json:"path"`
	Heading     string   `json:"heading,omitempty"`
	Hierarchy   []string `json:"hierarchy,omitempty"`
	Score       float64  `json:"score"`
	Semantic    float64  `json:"semantic_score"`
	Keyword     float64  `json:"keyword_score"`
	KeywordOnly bool     `json:"keyword_only,omitempty"`
	Content     string   `json:"content"`
	SourceID    string   `json:"source_id"`
}

// SearchResults prints numbered hits with a short content snippet each.
func (w *Writer) SearchResults(query string, hits []SearchHit) {
	if len(hits) == 0 {
		w.Status("", fmt.Sprintf("No results found for %q", query))
		return
	}

	w.Statusf("", "Found %d results for %q:", len(hits), query)
	if hits[0].KeywordOnly {
		w.Warning("embedding provider unavailable, showing keyword matches only")
	}
	w.Newline()

	for i, h := range hits {
		location := w.styles.Path.Render(h.Path)
		if h.Heading != "" {
			location += " " + w.styles.Heading.Render("› "+h.Heading)
		}

		score := fmt.Sprintf("(score: %.2f)", h.Score)
		w.Statusf("", "%d. %s %s", i+1, location, w.styles.Score.Render(score))

		for _, line := range snippet(h.Content, 3) {
			w.Status("", "   "+w.styles.Dim.Render(line))
		}
		w.Newline()
	}
}

// StatusInfo is the status view of one registered source.
type StatusInfo struct {
	Name         string    `json:"name"`
	ID           string    `json:"id"`
	RootPath     string    `json:"root_path"`
	Status       string    `json:"status"`
	Files        int       `json:"files"`
	Chunks       int       `json:"chunks"`
	LastIndexed  time.Time `json:"last_indexed"`
	Checkpoint   string    `json:"checkpoint,omitempty"`
	Watched      bool      `json:"watched"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// Embedder backend details
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// SourceStatus renders a detail block for one source.
func (w *Writer) SourceStatus(info StatusInfo) {
	w.Header("Source: " + info.Name)
	w.Newline()

	_, _ = fmt.Fprintf(w.out, "  ID:           %s\n", info.ID)
	_, _ = fmt.Fprintf(w.out, "  Path:         %s\n", info.RootPath)
	_, _ = fmt.Fprintf(w.out, "  Status:       %s\n", w.RenderStatus(info.Status))
	_, _ = fmt.Fprintf(w.out, "  Files:        %d\n", info.Files)
	_, _ = fmt.Fprintf(w.out, "  Chunks:       %d\n", info.Chunks)
	_, _ = fmt.Fprintf(w.out, "  Last indexed: %s\n", FormatTimeAgo(info.LastIndexed))
	_, _ = fmt.Fprintf(w.out, "  Watched:      %s\n", yesNo(info.Watched))

	if info.Provider != "" {
		_, _ = fmt.Fprintln(w.out)
		_, _ = fmt.Fprintln(w.out, "  Embedder:")
		_, _ = fmt.Fprintf(w.out, "    Provider:   %s\n", info.Provider)
		_, _ = fmt.Fprintf(w.out, "    Model:      %s\n", info.Model)
		_, _ = fmt.Fprintf(w.out, "    Dimensions: %d\n", info.Dimensions)
	}

	if info.ErrorMessage != "" {
		_, _ = fmt.Fprintln(w.out)
		_, _ = fmt.Fprintf(w.out, "  Last error:   %s\n", w.styles.Error.Render(info.ErrorMessage))
	}
}

// IndexSummary is the completion view of an index run.
type IndexSummary struct {
	Files      int           `json:"files"`
	Chunks     int           `json:"chunks"`
	Embeddings int           `json:"embeddings"`
	Duration   time.Duration `json:"duration"`
	Errors     []string      `json:"errors,omitempty"`

	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// Summary prints the end-of-run report for an index job.
func (w *Writer) Summary(s IndexSummary) {
	line := fmt.Sprintf("Indexed %d files, %d chunks in %s",
		s.Files, s.Chunks, s.Duration.Round(100*time.Millisecond))
	if len(s.Errors) > 0 {
		line += fmt.Sprintf(" (%d errors)", len(s.Errors))
	}
	w.Success(line)

	if s.Provider != "" {
		w.Status("", w.styles.Label.Render(
			fmt.Sprintf("embedder: %s (%s, %d dims)", s.Provider, s.Model, s.Dimensions)))
	}

	for _, e := range s.Errors {
		w.Warning(e)
	}
}

// RenderStatus formats a source lifecycle status with its color.
func (w *Writer) RenderStatus(status string) string {
	switch status {
	case "indexed":
		return w.styles.Success.Render(status)
	case "indexing":
		return w.styles.Warning.Render(status)
	case "error":
		return w.styles.Error.Render(status)
	case "registered", "removed":
		return w.styles.Dim.Render(status)
	default:
		return status
	}
}

// FormatTimeAgo formats a time relative to now for display.
func FormatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// snippet returns up to n leading lines of content, with trailing blank
// lines trimmed.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

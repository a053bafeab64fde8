//go:build ignore

// Package main generates a synthetic markdown corpus for exercising docdex.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/corpus
//
// The generated tree mixes heading-structured documents, frontmatter, code
// fences, and a few non-markdown files so register/index/search runs see
// realistic input. Generation is deterministic for a given seed.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 500, "Number of markdown files to generate")
	outputDir = flag.String("output", "testdata/corpus", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	maxNest   = flag.Int("nest", 3, "Maximum directory nesting depth")
)

var topics = []string{
	"installation", "configuration", "authentication", "deployment",
	"monitoring", "troubleshooting", "migration", "networking",
	"storage", "caching", "scheduling", "logging",
}

var sections = []string{
	"Overview", "Prerequisites", "Quick Start", "Examples",
	"Advanced Usage", "Limitations", "Reference", "FAQ",
}

var sentenceParts = [][]string{
	{"The service", "Each worker", "The scheduler", "A client", "The daemon", "Every replica"},
	{"reads", "validates", "persists", "streams", "retries", "coalesces"},
	{"incoming requests", "configuration changes", "queued events", "batch payloads", "index segments", "snapshot diffs"},
	{"before acknowledging the caller.", "until the queue drains.", "whenever the watch interval fires.", "unless the policy rejects the path.", "and records the checkpoint.", "while holding the source lock."},
}

var codeSamples = []string{
	"docdex register ./docs --name handbook\ndocdex index handbook",
	"docdex search \"connection timeout\" --top-k 5",
	"curl -fsSL https://example.com/install.sh | sh",
	"export DOCDEX_LOG_LEVEL=debug\ndocdex watch",
	"policy:\n  exclude:\n    - \"**/drafts/**\"",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		dir := *outputDir
		for d := 0; d < rng.Intn(*maxNest+1); d++ {
			dir = filepath.Join(dir, topics[rng.Intn(len(topics))])
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating dir: %v\n", err)
			os.Exit(1)
		}

		name := fmt.Sprintf("%s-%03d.md", topics[rng.Intn(len(topics))], i)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(document(rng, i)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	// A few non-markdown files; the default policy should skip them.
	for _, extra := range []string{"notes.txt", "diagram.svg", "archive.bin"} {
		path := filepath.Join(*outputDir, extra)
		if err := os.WriteFile(path, []byte("not markdown\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d markdown files under %s (seed %d)\n", *numFiles, *outputDir, *seed)
}

// document builds one markdown file: optional frontmatter, an H1, and a
// random walk of H2/H3 sections with paragraphs, lists, and code fences.
func document(rng *rand.Rand, n int) string {
	var b strings.Builder

	if rng.Intn(3) == 0 {
		fmt.Fprintf(&b, "---\ntitle: Generated document %d\ntags: [%s]\n---\n\n", n, topics[rng.Intn(len(topics))])
	}

	topic := topics[rng.Intn(len(topics))]
	fmt.Fprintf(&b, "# %s%s guide %d\n\n%s\n\n", strings.ToUpper(topic[:1]), topic[1:], n, paragraph(rng))

	for _, name := range pick(rng, sections, 2+rng.Intn(4)) {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", name, paragraph(rng))

		switch rng.Intn(4) {
		case 0:
			fmt.Fprintf(&b, "```\n%s\n```\n\n", codeSamples[rng.Intn(len(codeSamples))])
		case 1:
			for j := 0; j < 2+rng.Intn(3); j++ {
				fmt.Fprintf(&b, "- %s\n", sentence(rng))
			}
			b.WriteString("\n")
		case 2:
			fmt.Fprintf(&b, "### Details\n\n%s\n\n", paragraph(rng))
		}
	}

	return b.String()
}

func paragraph(rng *rand.Rand) string {
	out := make([]string, 2+rng.Intn(4))
	for i := range out {
		out[i] = sentence(rng)
	}
	return strings.Join(out, " ")
}

func sentence(rng *rand.Rand) string {
	parts := make([]string, len(sentenceParts))
	for i, choices := range sentenceParts {
		parts[i] = choices[rng.Intn(len(choices))]
	}
	return strings.Join(parts, " ")
}

func pick(rng *rand.Rand, from []string, n int) []string {
	idx := rng.Perm(len(from))
	if n > len(from) {
		n = len(from)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = from[idx[i]]
	}
	return out
}

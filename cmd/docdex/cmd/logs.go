package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		lines   int
		level   string
		filter  string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the tail of the docdex log file.

Logs are structured JSON lines under <data-dir>/logs/docdex.log. Rotated
files are included when the current file holds fewer lines than requested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, lines, level, filter, logFile)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Filter by log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter by pattern (regex)")
	cmd.Flags().StringVar(&logFile, "file", "", "Path to log file (overrides data dir)")

	return cmd
}

func runLogs(cmd *cobra.Command, lines int, level, filter, logFile string) error {
	path := logFile
	if path == "" {
		dir, err := resolveDataDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "logs", "docdex.log")
	}

	var pattern *regexp.Regexp
	if filter != "" {
		re, err := regexp.Compile(filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
		pattern = re
	}

	entries, err := tailEntries(path, lines, level, pattern)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No log entries.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintln(out, e.format())
	}
	return nil
}

// logEntry is the subset of a slog JSON line the viewer renders. Unknown
// attributes are kept raw and appended as key=value pairs.
type logEntry struct {
	Time  string
	Level string
	Msg   string
	Attrs []string
	raw   string
}

func (e logEntry) format() string {
	if e.Time == "" && e.Level == "" {
		return e.raw
	}
	parts := []string{e.Time, fmt.Sprintf("%-5s", e.Level), e.Msg}
	if len(e.Attrs) > 0 {
		parts = append(parts, strings.Join(e.Attrs, " "))
	}
	return strings.Join(parts, " ")
}

// tailEntries reads the last n matching entries of the log file, pulling
// in rotated predecessors when the live file comes up short.
func tailEntries(path string, n int, level string, pattern *regexp.Regexp) ([]logEntry, error) {
	var entries []logEntry
	for _, p := range logFilesFor(path) {
		read, err := readEntries(p, level, pattern)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, read...)
		if len(entries) >= n {
			break
		}
	}

	// Files are visited newest first; restore chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// logFilesFor returns the live log file followed by its rotated
// predecessors, newest first.
func logFilesFor(path string) []string {
	out := []string{path}

	rotated, err := filepath.Glob(path + ".*")
	if err != nil {
		return out
	}
	sort.Sort(sort.Reverse(sort.StringSlice(rotated)))
	return append(out, rotated...)
}

// readEntries parses one file and returns matching entries newest first.
func readEntries(path string, level string, pattern *regexp.Regexp) ([]logEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	want := ""
	if level != "" {
		want = logging.ParseLevel(level).String()
	}

	var entries []logEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := parseEntry(line)
		if want != "" && !strings.EqualFold(e.Level, want) {
			continue
		}
		if pattern != nil && !pattern.MatchString(line) {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func parseEntry(line string) logEntry {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return logEntry{raw: line}
	}

	e := logEntry{raw: line}
	if v, ok := fields["time"].(string); ok {
		e.Time = v
		delete(fields, "time")
	}
	if v, ok := fields["level"].(string); ok {
		e.Level = v
		delete(fields, "level")
	}
	if v, ok := fields["msg"].(string); ok {
		e.Msg = v
		delete(fields, "msg")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Attrs = append(e.Attrs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return e
}

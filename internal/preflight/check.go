// Package preflight validates the environment docdex runs in: data
// directory access, registry integrity, configuration, disk space, file
// descriptor limits, and the embedding provider.
package preflight

import (
	"context"

	"github.com/docdexhq/docdex/internal/embed"
)

// Status is the outcome of a single check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical problem.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Result holds the outcome of one check.
type Result struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
	Required bool   `json:"required"`
}

// IsCritical reports whether this is a required check that failed.
func (r Result) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Checker runs the preflight checks for a docdex installation.
type Checker struct {
	dataDir   string
	configDir string
	provider  embed.Provider
}

// Option configures a Checker.
type Option func(*Checker)

// WithConfigDir sets the directory searched for the project config.
// Defaults to the data directory's parent behavior is not assumed; pass
// the working directory.
func WithConfigDir(dir string) Option {
	return func(c *Checker) {
		c.configDir = dir
	}
}

// WithProvider sets the embedding provider to probe. Without one the
// provider check reports a warning.
func WithProvider(p embed.Provider) Option {
	return func(c *Checker) {
		c.provider = p
	}
}

// New creates a Checker for the given data directory.
func New(dataDir string, opts ...Option) *Checker {
	c := &Checker{dataDir: dataDir, configDir: "."}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes every check and returns the results in a fixed order.
func (c *Checker) Run(ctx context.Context) []Result {
	return []Result{
		c.CheckDataDir(),
		c.CheckRegistry(),
		c.CheckConfig(),
		c.CheckDiskSpace(c.dataDir),
		c.CheckFileDescriptors(),
		c.CheckProvider(ctx),
	}
}

// HasCriticalFailures reports whether any required check failed.
func HasCriticalFailures(results []Result) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus condenses results into "ready", "ready_with_warnings",
// or "failed".
func SummaryStatus(results []Result) string {
	warnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			warnings = true
		}
	}
	if warnings {
		return "ready_with_warnings"
	}
	return "ready"
}

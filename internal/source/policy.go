// Package source defines document sources: registered root directories,
// their ingestion policies, and the registry that tracks each source
// through its status lifecycle.
package source

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/docdexhq/docdex/internal/errors"
)

// Policy controls which files under a source root are ingested.
// A policy is immutable once attached to a source at registration.
type Policy struct {
	// IncludePaths are glob patterns a path must match to be accepted.
	// Empty means accept everything not excluded.
	IncludePaths []string `yaml:"include"`

	// ExcludePaths are glob patterns that reject a path. Exclusion wins
	// over inclusion.
	ExcludePaths []string `yaml:"exclude"`

	// MaxFileSize is the per-file size cutoff in bytes. Zero or negative
	// means no limit.
	MaxFileSize int64 `yaml:"max_file_size"`

	// MaxDepth bounds directory traversal below the root. Zero or
	// negative means unlimited.
	MaxDepth int `yaml:"max_depth"`

	// WatchForChanges marks the source for incremental updates.
	WatchForChanges bool `yaml:"watch"`
}

// defaultExcludes mirror the config package defaults so a registry used
// without a config layer still gets sane behavior.
var defaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.docdex/**",
	"**/*.min.js",
}

// DefaultPolicy returns the policy applied when registration supplies none.
func DefaultPolicy() Policy {
	return Policy{
		IncludePaths:    []string{},
		ExcludePaths:    append([]string(nil), defaultExcludes...),
		MaxFileSize:     10 * 1024 * 1024,
		MaxDepth:        10,
		WatchForChanges: true,
	}
}

// Merge fills zero-valued limits and nil pattern lists from the defaults.
// WatchForChanges is taken as given: false is a valid choice, not an
// absent one.
func (p Policy) Merge(defaults Policy) Policy {
	out := p
	if out.IncludePaths == nil {
		out.IncludePaths = defaults.IncludePaths
	}
	if out.ExcludePaths == nil {
		out.ExcludePaths = defaults.ExcludePaths
	}
	if out.MaxFileSize == 0 {
		out.MaxFileSize = defaults.MaxFileSize
	}
	if out.MaxDepth == 0 {
		out.MaxDepth = defaults.MaxDepth
	}
	return out
}

// Matches reports whether path is accepted by the policy.
//
// When sourceRoot is non-empty the path is first canonicalized against it;
// anything that resolves outside the root is rejected before any glob is
// consulted. Exclusion patterns are checked next and win over inclusion.
// An empty include list accepts every non-excluded path.
func (p Policy) Matches(path, sourceRoot string) bool {
	rel := path
	if sourceRoot != "" {
		_, r, err := ResolveWithinRoot(path, sourceRoot)
		if err != nil {
			return false
		}
		rel = r
	}

	rel = normalizeRelPath(rel)

	for _, pattern := range p.ExcludePaths {
		if matchGlob(pattern, rel) {
			return false
		}
	}

	if len(p.IncludePaths) == 0 {
		return true
	}
	for _, pattern := range p.IncludePaths {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

// ResolveWithinRoot canonicalizes path against root and enforces
// containment. Relative paths are joined to the root; absolute paths must
// already sit inside it. The returned abs is the cleaned absolute location
// and rel its root-relative form.
//
// Violations return ErrPathOutsideRoot, whose message is fixed and never
// names the offending path.
func ResolveWithinRoot(path, root string) (abs string, rel string, err error) {
	if path == "" || root == "" {
		return "", "", errors.ErrPathOutsideRoot
	}

	cleanRoot := filepath.Clean(root)
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(cleanRoot, path))
	}

	rel, relErr := filepath.Rel(cleanRoot, abs)
	if relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", errors.ErrPathOutsideRoot
	}
	return abs, rel, nil
}

// normalizeRelPath converts a path to forward slashes and strips any
// leading "./" so glob patterns see a stable shape.
func normalizeRelPath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// Glob patterns compile to anchored regular expressions. Compiled patterns
// are cached process-wide; policies are small and shared across sources.
var (
	globCacheMu sync.RWMutex
	globCache   = make(map[string]*regexp.Regexp)
)

func matchGlob(pattern, path string) bool {
	re := compileGlob(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(path)
}

func compileGlob(pattern string) *regexp.Regexp {
	globCacheMu.RLock()
	re, ok := globCache[pattern]
	globCacheMu.RUnlock()
	if ok {
		return re
	}

	compiled, err := regexp.Compile(globToRegex(pattern))
	if err != nil {
		compiled = nil
	}

	globCacheMu.Lock()
	globCache[pattern] = compiled
	globCacheMu.Unlock()
	return compiled
}

// globToRegex translates a glob into an anchored regular expression.
// Supported syntax: "**" spans zero or more path segments, "*" matches
// within a single segment, "?" matches one character; everything else is
// literal.
func globToRegex(glob string) string {
	glob = filepath.ToSlash(glob)

	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(glob); {
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			b.WriteString(`(?:[^/]+/)*`)
			i += 3
		case strings.HasPrefix(glob[i:], "**"):
			b.WriteString(`.*`)
			i += 2
		case glob[i] == '*':
			b.WriteString(`[^/]*`)
			i++
		case glob[i] == '?':
			b.WriteString(`[^/]`)
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(glob[i])))
			i++
		}
	}

	b.WriteString("$")
	return b.String()
}

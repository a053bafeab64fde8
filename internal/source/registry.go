package source

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docdexhq/docdex/internal/errors"
)

// Status is the lifecycle state of a registered source.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusIndexing   Status = "indexing"
	StatusIndexed    Status = "indexed"
	StatusError      Status = "error"
	StatusRemoved    Status = "removed"
)

// Source is a registered root directory tracked by the registry.
// Fields are snapshots; mutate only through registry methods.
type Source struct {
	ID             string    `yaml:"id"`
	RootPath       string    `yaml:"root_path"`
	Name           string    `yaml:"name"`
	Policy         Policy    `yaml:"policy"`
	Status         Status    `yaml:"status"`
	LastIndexedAt  time.Time `yaml:"last_indexed_at,omitempty"`
	LastCheckpoint string    `yaml:"last_checkpoint,omitempty"`
	FileCount      int       `yaml:"file_count"`
	ErrorMessage   string    `yaml:"error_message,omitempty"`
	RegisteredAt   time.Time `yaml:"registered_at"`
	UpdatedAt      time.Time `yaml:"updated_at"`
}

// ID derivation is content-based: the same root always maps to the same
// source id, which is what lets a removed source revive on re-register.
func SourceID(rootPath string) string {
	sum := sha256.Sum256([]byte(normalizeRoot(rootPath)))
	return hex.EncodeToString(sum[:])[:16]
}

// normalizeRoot cleans the path and strips any trailing separator so
// "/docs" and "/docs/" derive the same id.
func normalizeRoot(rootPath string) string {
	clean := filepath.Clean(rootPath)
	if len(clean) > 1 {
		clean = strings.TrimRight(clean, string(filepath.Separator))
	}
	return clean
}

// Registry tracks document sources. All operations are synchronous and
// safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*Source),
	}
}

// RegisterOption customizes registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	name   string
	policy *Policy
}

// WithName sets a display name. Default is the root's base name.
func WithName(name string) RegisterOption {
	return func(c *registerConfig) {
		c.name = name
	}
}

// WithPolicy sets the source policy. Zero-valued limits and nil pattern
// lists are filled from DefaultPolicy.
func WithPolicy(p Policy) RegisterOption {
	return func(c *registerConfig) {
		c.policy = &p
	}
}

// Register adds a root directory as a source. The root must be an
// absolute path. Registering a root whose id already exists is rejected
// unless that source is removed, in which case the same id is revived
// with a fresh lifecycle.
func (r *Registry) Register(rootPath string, opts ...RegisterOption) (Source, error) {
	if rootPath == "" || !filepath.IsAbs(rootPath) {
		return Source{}, errors.ErrInvalidRootPath
	}

	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	root := normalizeRoot(rootPath)
	id := SourceID(root)

	policy := DefaultPolicy()
	if cfg.policy != nil {
		policy = cfg.policy.Merge(DefaultPolicy())
	}

	name := cfg.name
	if name == "" {
		name = filepath.Base(root)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if existing, ok := r.sources[id]; ok {
		if existing.Status != StatusRemoved {
			return Source{}, errors.ErrSourceExists
		}
		// Revive: same id, same registration time, fresh lifecycle.
		existing.Name = name
		existing.Policy = policy
		existing.Status = StatusRegistered
		existing.LastIndexedAt = time.Time{}
		existing.LastCheckpoint = ""
		existing.FileCount = 0
		existing.ErrorMessage = ""
		existing.UpdatedAt = now
		return existing.snapshot(), nil
	}

	src := &Source{
		ID:           id,
		RootPath:     root,
		Name:         name,
		Policy:       policy,
		Status:       StatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	r.sources[id] = src
	return src.snapshot(), nil
}

// Unregister marks a source removed. The entry is kept so the id can be
// revived by a later Register of the same root.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return errors.ErrSourceNotFound
	}
	if src.Status == StatusRemoved {
		return errors.ErrSourceRemoved
	}

	src.Status = StatusRemoved
	src.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a snapshot of the source, removed ones included.
func (r *Registry) Get(id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return Source{}, errors.ErrSourceNotFound
	}
	return src.snapshot(), nil
}

// ListOption filters List results.
type ListOption func(*listConfig)

type listConfig struct {
	status         Status
	includeRemoved bool
}

// WithStatus restricts the listing to sources in the given status.
func WithStatus(status Status) ListOption {
	return func(c *listConfig) {
		c.status = status
	}
}

// WithRemoved includes removed sources, which are hidden by default.
func WithRemoved() ListOption {
	return func(c *listConfig) {
		c.includeRemoved = true
	}
}

// List returns matching sources ordered by registration time, then id.
func (r *Registry) List(opts ...ListOption) []Source {
	var cfg listConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		if src.Status == StatusRemoved && !cfg.includeRemoved && cfg.status != StatusRemoved {
			continue
		}
		if cfg.status != "" && src.Status != cfg.status {
			continue
		}
		out = append(out, src.snapshot())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// StatusOption attaches metadata to a status update.
type StatusOption func(*Source)

// WithLastIndexedAt records when the last successful index pass finished.
func WithLastIndexedAt(t time.Time) StatusOption {
	return func(s *Source) {
		s.LastIndexedAt = t
	}
}

// WithFileCount records how many files the last index pass processed.
func WithFileCount(n int) StatusOption {
	return func(s *Source) {
		s.FileCount = n
	}
}

// WithErrorMessage records accumulated failure detail. An empty string
// clears it.
func WithErrorMessage(msg string) StatusOption {
	return func(s *Source) {
		s.ErrorMessage = msg
	}
}

// UpdateStatus transitions a source and applies any metadata options.
func (r *Registry) UpdateStatus(id string, status Status, opts ...StatusOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return errors.ErrSourceNotFound
	}

	src.Status = status
	for _, opt := range opts {
		opt(src)
	}
	src.UpdatedAt = time.Now().UTC()
	return nil
}

// Checkpoint returns the last recorded checkpoint token.
func (r *Registry) Checkpoint(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return "", errors.ErrSourceNotFound
	}
	return src.LastCheckpoint, nil
}

// SaveCheckpoint records an opaque checkpoint token on the source.
func (r *Registry) SaveCheckpoint(id, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return errors.ErrSourceNotFound
	}

	src.LastCheckpoint = value
	src.UpdatedAt = time.Now().UTC()
	return nil
}

// Snapshot returns every source, removed ones included, ordered by
// registration time. Used for persistence.
func (r *Registry) Snapshot() []Source {
	return r.List(WithRemoved())
}

// Restore replaces the registry contents. Used when loading persisted
// state; entries without an id are re-derived from their root path.
func (r *Registry) Restore(sources []Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string]*Source, len(sources))
	for _, src := range sources {
		s := src
		if s.ID == "" {
			s.ID = SourceID(s.RootPath)
		}
		r.sources[s.ID] = &s
	}
}

func (s *Source) snapshot() Source {
	out := *s
	out.Policy.IncludePaths = append([]string(nil), s.Policy.IncludePaths...)
	out.Policy.ExcludePaths = append([]string(nil), s.Policy.ExcludePaths...)
	return out
}

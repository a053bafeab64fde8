package embed

import (
	"strings"

	"github.com/docdexhq/docdex/internal/errors"
)

// NewProvider builds a provider by name. "hash" (or empty, the default)
// is the built-in offline provider. A positive cacheSize wraps the
// provider with an LRU cache; dimensions overrides the provider's native
// dimension when positive.
func NewProvider(name string, dimensions, cacheSize int) (Provider, error) {
	var provider Provider

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hash":
		provider = NewHashProviderWithDimensions(dimensions)
	default:
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			"unknown embedding provider", nil).
			WithDetail("provider", name)
	}

	if cacheSize > 0 {
		return NewCachedProvider(provider, cacheSize), nil
	}
	return provider, nil
}

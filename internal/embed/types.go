// Package embed defines the embedding provider contract and the built-in
// offline providers used to turn chunk text into vectors.
package embed

import (
	"context"
	"math"
)

// Provider generates vector embeddings for text. Implementations must be
// safe for concurrent use; the indexer calls them from multiple workers.
type Provider interface {
	// ID is the stable provider identifier recorded on indexed chunks.
	ID() string

	// ModelName identifies the underlying model.
	ModelName() string

	// Dimensions is the fixed length of every returned vector.
	Dimensions() int

	// Version is the provider implementation version. Bumped when the
	// vector derivation changes in a way that invalidates stored vectors.
	Version() string

	// Available reports whether the provider can serve requests.
	Available(ctx context.Context) bool

	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. It returns
	// exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases provider resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Zero vectors are
// returned unchanged.
func normalizeVector(vector []float32) []float32 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vector
	}

	norm := float32(math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}

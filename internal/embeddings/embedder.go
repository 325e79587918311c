// Package embeddings provides the text-embedding capability behind the
// vector index: given text, return a fixed-length vector.
package embeddings

import "context"

// Embedder generates text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the embedding vectors.
	Dimensions() int

	// Name returns the identifier of the embedding model.
	Name() string
}

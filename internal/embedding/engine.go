// Package embedding turns text into vectors for the semantic index.
package embedding

import "context"

// Engine generates embeddings. Implementations must be safe for
// concurrent use; the index embeds batches in parallel.
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

// Embedder turns text into a dense vector. Both question routing and chunk
// indexing go through the same provider so vectors stay comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

const maxConcurrentEmbeds = 3

// NewFromConfig picks the provider named in config: "genai" (default) or
// "ollama".
func NewFromConfig(cfg config.Embedding, log *logger.Logger) (Embedder, error) {
	switch cfg.Provider {
	case "", "genai":
		return NewGenAIEmbedder(cfg.Model, log)
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, log)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// EmbedBatch embeds texts concurrently, bounded so a local provider is not
// flooded. Output order matches input order.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeds)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

const (
	defaultOllamaEmbedModel = "nomic-embed-text"
	ollamaEmbedTimeout      = 30 * time.Second
	ollamaEmbedRetries      = 3
)

// OllamaEmbedder generates embeddings through a local Ollama server. It is
// the offline alternative to the Gemini provider; the host comes from
// OLLAMA_HOST.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	log    *logger.Logger
}

func NewOllamaEmbedder(model string, log *logger.Logger) (*OllamaEmbedder, error) {
	if model == "" {
		model = defaultOllamaEmbedModel
	}
	client := api.NewClient(envconfig.Host(), http.DefaultClient)
	return &OllamaEmbedder{
		client: client,
		model:  model,
		log:    log.With("service", "OllamaEmbedder"),
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= ollamaEmbedRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		vec, err := e.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		e.log.Warn("ollama embed attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("ollama embed after %d retries: %w", ollamaEmbedRetries, lastErr)
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, ollamaEmbedTimeout)
	defer cancel()

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding for model %q", e.model)
	}
	return resp.Embedding, nil
}

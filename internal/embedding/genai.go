package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

const defaultGenAIEmbedModel = "gemini-embedding-001"

// GenAIEmbedder generates embeddings through the Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewGenAIEmbedder(model string, log *logger.Logger) (*GenAIEmbedder, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the genai embedding provider")
	}
	if model == "" {
		model = defaultGenAIEmbedModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIEmbedder{
		client: client,
		model:  model,
		log:    log.With("service", "GenAIEmbedder"),
	}, nil
}

func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("genai embed: no embedding returned")
	}

	values := result.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

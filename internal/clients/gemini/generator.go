package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/platform/ctxutil"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

// Generator is the text-generation surface the tutoring service depends on.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

const generateRetries = 2

// Client generates text through the Gemini API.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
	log         *logger.Logger
}

func NewClient(cfg config.Generation, log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:      gc,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:         log.With("service", "GeminiClient"),
	}, nil
}

// GenerateText runs one prompt and returns plain text. Transient failures
// are retried with linear backoff inside the configured deadline.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), c.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= generateRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
		if err != nil {
			lastErr = err
			c.log.Warn("gemini generation attempt failed", "attempt", attempt+1, "model", c.model, "error", err)
			continue
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			lastErr = fmt.Errorf("empty generation output from model %q", c.model)
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("gemini generation failed after %d attempts: %w", generateRetries+1, lastErr)
}

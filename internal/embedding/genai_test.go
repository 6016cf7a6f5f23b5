package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

type embedRoundTripper struct {
	t    *testing.T
	path string
	body []byte
}

func (rt *embedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.path = req.URL.Path
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			rt.t.Fatalf("read embed request body: %v", err)
		}
		rt.body = raw
	}
	payload, err := json.Marshal(map[string]any{
		"embeddings": []map[string]any{{"values": []float32{0.25, -0.5}}},
	})
	if err != nil {
		rt.t.Fatalf("marshal embed response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(payload)),
	}, nil
}

func TestGenAIEmbedRequestsSemanticSimilarity(t *testing.T) {
	rt := &embedRoundTripper{t: t}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     "test-key",
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("genai.NewClient: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	e := &GenAIEmbedder{client: client, model: defaultGenAIEmbedModel, log: log}

	vec, err := e.Embed(context.Background(), "النبات يحتاج الماء")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.25 || vec[1] != -0.5 {
		t.Fatalf("embedding values: %v", vec)
	}
	if !strings.Contains(rt.path, ":batchEmbedContents") {
		t.Fatalf("unexpected embed endpoint: %q", rt.path)
	}
	if !strings.Contains(string(rt.body), "SEMANTIC_SIMILARITY") {
		t.Fatalf("request is missing the similarity task type: %s", rt.body)
	}
}

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mouaalim/mouaalim-backend/internal/platform/ctxutil"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

// Reranker reorders candidate chunks by relevance to the query and keeps
// the best topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string, topN int) ([]string, error)
}

// HTTPReranker calls a cross-encoder reranking service speaking the
// text-embeddings-inference /rerank protocol.
type HTTPReranker struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewHTTPReranker(baseURL string, timeout time.Duration, log *logger.Logger) *HTTPReranker {
	return &HTTPReranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With("service", "Reranker"),
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, texts []string, topN int) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(rerankRequest{Query: query, Texts: texts}); err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, r.baseURL+"/rerank", &buf)
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rerank status=%d body=%q", resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	out := make([]string, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(texts) {
			continue
		}
		out = append(out, texts[res.Index])
	}
	return out, nil
}

package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/mouaalim/mouaalim-backend/internal/embedding"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/platform/qdrant"
)

// ChunkSearcher is the vector-store surface Retriever needs.
type ChunkSearcher interface {
	Search(ctx context.Context, q []float32, topK int, filter map[string]any) ([]qdrant.Match, error)
}

// ChunkCache keeps retrieval results for repeated queries. A nil
// implementation is a miss for every query.
type ChunkCache interface {
	GetChunks(ctx context.Context, query string) ([]string, bool)
	SetChunks(ctx context.Context, query string, chunks []string)
}

// Retriever finds the textbook chunks most relevant to a query: embed the
// query, over-fetch from the vector store, then keep the best few after
// reranking. Without a reranker the vector-store order stands.
type Retriever struct {
	embedder embedding.Embedder
	store    ChunkSearcher
	reranker Reranker
	cache    ChunkCache

	fetchK  int
	rerankK int
	timeout time.Duration
	log     *logger.Logger
}

type Option func(*Retriever)

func WithReranker(r Reranker) Option {
	return func(ret *Retriever) { ret.reranker = r }
}

func WithCache(c ChunkCache) Option {
	return func(ret *Retriever) { ret.cache = c }
}

func NewRetriever(
	embedder embedding.Embedder,
	store ChunkSearcher,
	fetchK, rerankK int,
	timeout time.Duration,
	log *logger.Logger,
	opts ...Option,
) *Retriever {
	r := &Retriever{
		embedder: embedder,
		store:    store,
		fetchK:   fetchK,
		rerankK:  rerankK,
		timeout:  timeout,
		log:      log.With("service", "Retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns chunk texts for a query, most relevant first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]string, error) {
	if r.cache != nil {
		if chunks, ok := r.cache.GetChunks(ctx, query); ok {
			return chunks, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	q := make([]float32, len(vec))
	for i, v := range vec {
		q[i] = float32(v)
	}

	matches, err := r.store.Search(ctx, q, r.fetchK, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if text, ok := m.Payload["text"].(string); ok && text != "" {
			texts = append(texts, text)
		}
	}

	if r.reranker != nil && len(texts) > 0 {
		reranked, err := r.reranker.Rerank(ctx, query, texts, r.rerankK)
		if err != nil {
			r.log.Warn("rerank failed, keeping vector order", "error", err)
		} else {
			texts = reranked
		}
	}
	if r.rerankK > 0 && len(texts) > r.rerankK {
		texts = texts[:r.rerankK]
	}

	if r.cache != nil {
		r.cache.SetChunks(ctx, query, texts)
	}
	return texts, nil
}

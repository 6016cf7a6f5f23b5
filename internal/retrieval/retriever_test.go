package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/platform/qdrant"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	f.calls++
	return []float64{0.1, 0.2, 0.3}, nil
}

type fakeSearcher struct {
	matches []qdrant.Match
	gotTopK int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, topK int, _ map[string]any) ([]qdrant.Match, error) {
	f.gotTopK = topK
	return f.matches, nil
}

type mapCache struct {
	entries map[string][]string
}

func (m *mapCache) GetChunks(_ context.Context, query string) ([]string, bool) {
	c, ok := m.entries[query]
	return c, ok
}

func (m *mapCache) SetChunks(_ context.Context, query string, chunks []string) {
	m.entries[query] = chunks
}

func chunkMatches(texts ...string) []qdrant.Match {
	out := make([]qdrant.Match, 0, len(texts))
	for i, text := range texts {
		out = append(out, qdrant.Match{
			ID:      string(rune('a' + i)),
			Score:   1.0 - float64(i)*0.1,
			Payload: map[string]any{"text": text},
		})
	}
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestRetrieverOverFetchesThenCaps(t *testing.T) {
	store := &fakeSearcher{matches: chunkMatches("أ", "ب", "ج", "د", "هـ", "و", "ز", "ح")}
	r := NewRetriever(&fakeEmbedder{}, store, 8, 3, time.Second, testLogger(t))

	chunks, err := r.Retrieve(context.Background(), "أجزاء النبتة")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.gotTopK != 8 {
		t.Fatalf("fetch_k: want=8 got=%d", store.gotTopK)
	}
	if len(chunks) != 3 {
		t.Fatalf("kept chunks: want=3 got=%d", len(chunks))
	}
	if chunks[0] != "أ" || chunks[1] != "ب" || chunks[2] != "ج" {
		t.Fatalf("chunk order: got=%v", chunks)
	}
}

func TestRetrieverSkipsEmptyPayloadText(t *testing.T) {
	store := &fakeSearcher{matches: []qdrant.Match{
		{ID: "a", Score: 0.9, Payload: map[string]any{"text": "نص"}},
		{ID: "b", Score: 0.8, Payload: map[string]any{}},
		{ID: "c", Score: 0.7, Payload: map[string]any{"text": ""}},
	}}
	r := NewRetriever(&fakeEmbedder{}, store, 8, 3, time.Second, testLogger(t))

	chunks, err := r.Retrieve(context.Background(), "سؤال")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "نص" {
		t.Fatalf("chunks: got=%v", chunks)
	}
}

func TestRetrieverUsesReranker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		// Reverse order: the last candidate is the most relevant.
		results := make([]rerankResult, len(req.Texts))
		for i := range req.Texts {
			results[i] = rerankResult{Index: i, Score: float64(i)}
		}
		_ = json.NewEncoder(w).Encode(results)
	}))
	defer srv.Close()

	store := &fakeSearcher{matches: chunkMatches("أ", "ب", "ج", "د")}
	reranker := NewHTTPReranker(srv.URL, time.Second, testLogger(t))
	r := NewRetriever(&fakeEmbedder{}, store, 8, 2, time.Second, testLogger(t), WithReranker(reranker))

	chunks, err := r.Retrieve(context.Background(), "سؤال")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("kept chunks: want=2 got=%d", len(chunks))
	}
	if chunks[0] != "د" || chunks[1] != "ج" {
		t.Fatalf("rerank order: got=%v", chunks)
	}
}

func TestRetrieverFallsBackWhenRerankerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := &fakeSearcher{matches: chunkMatches("أ", "ب", "ج", "د")}
	reranker := NewHTTPReranker(srv.URL, time.Second, testLogger(t))
	r := NewRetriever(&fakeEmbedder{}, store, 8, 3, time.Second, testLogger(t), WithReranker(reranker))

	chunks, err := r.Retrieve(context.Background(), "سؤال")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 3 || chunks[0] != "أ" {
		t.Fatalf("fallback order: got=%v", chunks)
	}
}

func TestRetrieverCacheHitSkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	store := &fakeSearcher{matches: chunkMatches("أ", "ب")}
	cache := &mapCache{entries: map[string][]string{}}
	r := NewRetriever(emb, store, 8, 3, time.Second, testLogger(t), WithCache(cache))

	first, err := r.Retrieve(context.Background(), "سؤال")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	second, err := r.Retrieve(context.Background(), "سؤال")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("embed calls: want=1 got=%d", emb.calls)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Fatalf("cache changed results: %v vs %v", first, second)
	}
}

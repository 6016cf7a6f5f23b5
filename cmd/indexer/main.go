package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/embedding"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/platform/qdrant"
)

// chunkRecord is one line of the input JSONL: a page-level text chunk
// extracted from the scanned textbook, tagged with its lesson.
type chunkRecord struct {
	Lesson string `json:"lesson"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

func main() {
	input := flag.String("input", "", "JSONL file of {lesson, page, text} chunks")
	batchSize := flag.Int("batch", 64, "upsert batch size")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *input == "" {
		log.Fatal("missing -input")
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Fatal("Qdrant config invalid", "error", err)
	}
	store, err := qdrant.NewStore(log, qcfg)
	if err != nil {
		log.Fatal("Qdrant init failed", "error", err)
	}
	embedder, err := embedding.NewFromConfig(cfg.Embedding, log)
	if err != nil {
		log.Fatal("Embedder init failed", "error", err)
	}

	records, err := readChunks(*input)
	if err != nil {
		log.Fatal("Read input failed", "error", err)
	}
	if len(records) == 0 {
		log.Fatal("input holds no chunks", "file", *input)
	}
	log.Info("Indexing chunks", "file", *input, "chunks", len(records))

	ctx := context.Background()

	// Re-ingesting a lesson replaces its previous chunks.
	seen := map[string]bool{}
	for _, rec := range records {
		if seen[rec.Lesson] {
			continue
		}
		seen[rec.Lesson] = true
		if err := store.DeleteByFilter(ctx, map[string]any{"lesson": rec.Lesson}); err != nil {
			log.Fatal("Delete existing lesson chunks failed", "lesson", rec.Lesson, "error", err)
		}
	}

	for start := 0; start < len(records); start += *batchSize {
		end := start + *batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.Text
		}
		vectors, err := embedding.EmbedBatch(ctx, embedder, texts)
		if err != nil {
			log.Fatal("Embed batch failed", "error", err)
		}

		points := make([]qdrant.Point, len(batch))
		for i, rec := range batch {
			values := make([]float32, len(vectors[i]))
			for j, v := range vectors[i] {
				values[j] = float32(v)
			}
			points[i] = qdrant.Point{
				ID:     fmt.Sprintf("%s|%d|%d", rec.Lesson, rec.Page, start+i),
				Values: values,
				Payload: map[string]any{
					"lesson": rec.Lesson,
					"page":   rec.Page,
					"text":   rec.Text,
				},
			}
		}
		if err := store.Upsert(ctx, points); err != nil {
			log.Fatal("Upsert failed", "error", err)
		}
		log.Info("Upserted batch", "from", start, "to", end)
	}

	log.Info("Indexing complete", "chunks", len(records), "lessons", len(seen))
}

func readChunks(path string) ([]chunkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []chunkRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.Lesson == "" || rec.Text == "" {
			return nil, fmt.Errorf("line %d: lesson and text are required", lineNo)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

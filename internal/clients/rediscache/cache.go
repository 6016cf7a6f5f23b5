package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

// Cache keeps retrieval results warm so repeated questions about the same
// lesson skip the embed+search round trip. It is optional: NewFromEnv
// returns nil when REDIS_ADDR is unset, and a nil cache is a no-op.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewFromEnv(ttl time.Duration, log *logger.Logger) (*Cache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("retrieval cache enabled", "addr", addr, "ttl", ttl.String())
	return &Cache{rdb: rdb, ttl: ttl, log: log.With("service", "RetrievalCache")}, nil
}

// GetChunks returns the cached chunk list for a query, or ok=false on miss.
// Cache errors degrade to a miss.
func (c *Cache) GetChunks(ctx context.Context, query string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(query)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("cache get failed", "error", err)
		}
		return nil, false
	}
	var chunks []string
	if err := json.Unmarshal([]byte(raw), &chunks); err != nil {
		c.log.Warn("cache entry corrupt, dropping", "error", err)
		_ = c.rdb.Del(ctx, c.key(query)).Err()
		return nil, false
	}
	return chunks, true
}

// SetChunks stores a chunk list under the query's key. Failures are logged
// and ignored.
func (c *Cache) SetChunks(ctx context.Context, query string, chunks []string) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(chunks)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(query), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "error", err)
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Cache) key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "retrieval:" + hex.EncodeToString(sum[:])
}

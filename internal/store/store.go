// Package store holds the single "latest analysis" slot shared by the HTTP
// handlers and the Q&A service. Writes are last-write-wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/lexiscan/internal/llm"
)

// LatestAnalysis is the most recent analysis and the text it was produced from.
type LatestAnalysis struct {
	Timestamp time.Time          `json:"timestamp"`
	Text      string             `json:"text"`
	Analysis  llm.AnalysisResult `json:"analysis"`
}

// Slot stores exactly one LatestAnalysis.
type Slot interface {
	// Get returns ok=false when nothing has been stored yet.
	Get(ctx context.Context) (LatestAnalysis, bool, error)
	Set(ctx context.Context, v LatestAnalysis) error
}

// MemorySlot keeps the value in process memory.
type MemorySlot struct {
	mu  sync.RWMutex
	val LatestAnalysis
	set bool
}

func NewMemorySlot() *MemorySlot { return &MemorySlot{} }

func (s *MemorySlot) Get(_ context.Context) (LatestAnalysis, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val, s.set, nil
}

func (s *MemorySlot) Set(_ context.Context, v LatestAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val, s.set = v, true
	return nil
}

// redisKV is the part of *redis.Client the slot uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisConfig holds the connection for a shared slot.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisSlot stores the value as JSON under one key, shared by every process
// pointing at the same Redis.
type RedisSlot struct {
	client redisKV
	key    string
}

// NewRedisSlot connects and pings Redis.
func NewRedisSlot(ctx context.Context, cfg RedisConfig) (*RedisSlot, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisSlot(client, cfg.Key), nil
}

func newRedisSlot(client redisKV, key string) *RedisSlot {
	if key == "" {
		key = "lexiscan:latest-analysis"
	}
	return &RedisSlot{client: client, key: key}
}

func (s *RedisSlot) Get(ctx context.Context) (LatestAnalysis, bool, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return LatestAnalysis{}, false, nil
	}
	if err != nil {
		return LatestAnalysis{}, false, fmt.Errorf("redis get: %w", err)
	}
	v, err := decodeLatest(b)
	if err != nil {
		return LatestAnalysis{}, false, err
	}
	return v, true, nil
}

// decodeLatest also accepts values written with the analysis wrapped twice,
// {"analysis":{"analysis":{...}}}, and flattens them.
func decodeLatest(b []byte) (LatestAnalysis, error) {
	var raw struct {
		Timestamp time.Time       `json:"timestamp"`
		Text      string          `json:"text"`
		Analysis  json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return LatestAnalysis{}, fmt.Errorf("decode latest analysis: %w", err)
	}
	v := LatestAnalysis{Timestamp: raw.Timestamp, Text: raw.Text}
	if len(raw.Analysis) > 0 {
		if err := json.Unmarshal(unwrapAnalysis(raw.Analysis), &v.Analysis); err != nil {
			return LatestAnalysis{}, fmt.Errorf("decode latest analysis: %w", err)
		}
	}
	v.Analysis.EnsureLists()
	return v, nil
}

func unwrapAnalysis(raw json.RawMessage) json.RawMessage {
	for {
		var outer map[string]json.RawMessage
		if err := json.Unmarshal(raw, &outer); err != nil {
			return raw
		}
		inner, ok := outer["analysis"]
		if !ok || len(outer) != 1 {
			return raw
		}
		raw = inner
	}
}

func (s *RedisSlot) Set(ctx context.Context, v LatestAnalysis) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode latest analysis: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisSlot) Close() error { return s.client.Close() }

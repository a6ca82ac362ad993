package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix = "refresh:"
	resetKeyPrefix   = "pwreset:"
)

// TokenStore persists opaque session and reset tokens by hash. Missing
// tokens are reported as zero values, not errors.
type TokenStore interface {
	SaveRefresh(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error
	GetRefresh(ctx context.Context, tokenHash string) (uuid.UUID, error)
	DeleteRefresh(ctx context.Context, tokenHash string) error
	SaveReset(ctx context.Context, tokenHash, utorid string, ttl time.Duration) error
	ConsumeReset(ctx context.Context, tokenHash string) (string, error)
}

// RedisTokenStore stores tokens in Redis with native TTLs
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore creates Redis-backed token store
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) SaveRefresh(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKeyPrefix+tokenHash, userID.String(), ttl).Err()
}

func (s *RedisTokenStore) GetRefresh(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, refreshKeyPrefix+tokenHash).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, nil
	}
	return id, nil
}

func (s *RedisTokenStore) DeleteRefresh(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, refreshKeyPrefix+tokenHash).Err()
}

func (s *RedisTokenStore) SaveReset(ctx context.Context, tokenHash, utorid string, ttl time.Duration) error {
	return s.client.Set(ctx, resetKeyPrefix+tokenHash, utorid, ttl).Err()
}

// ConsumeReset fetches and deletes a reset token in one round trip so a
// token can only be redeemed once.
func (s *RedisTokenStore) ConsumeReset(ctx context.Context, tokenHash string) (string, error) {
	val, err := s.client.GetDel(ctx, resetKeyPrefix+tokenHash).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenStore is an in-process token store used when Redis is not
// configured. Tokens do not survive restarts.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryTokenStore creates in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryTokenStore) set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (s *MemoryTokenStore) get(key string, del bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ""
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return ""
	}
	if del {
		delete(s.entries, key)
	}
	return entry.value
}

func (s *MemoryTokenStore) SaveRefresh(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error {
	s.set(refreshKeyPrefix+tokenHash, userID.String(), ttl)
	return nil
}

func (s *MemoryTokenStore) GetRefresh(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	val := s.get(refreshKeyPrefix+tokenHash, false)
	if val == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, nil
	}
	return id, nil
}

func (s *MemoryTokenStore) DeleteRefresh(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, refreshKeyPrefix+tokenHash)
	return nil
}

func (s *MemoryTokenStore) SaveReset(ctx context.Context, tokenHash, utorid string, ttl time.Duration) error {
	s.set(resetKeyPrefix+tokenHash, utorid, ttl)
	return nil
}

func (s *MemoryTokenStore) ConsumeReset(ctx context.Context, tokenHash string) (string, error) {
	return s.get(resetKeyPrefix+tokenHash, true), nil
}

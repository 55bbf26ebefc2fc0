package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mesa-rpg/mesa/internal/session"
)

// DefaultRedisKey is the key the document is stored under.
const DefaultRedisKey = "mesa:session"

// RedisBackend stores the document as a JSON value under a single Redis key.
// Useful when the GM console runs on a box whose disk should stay untouched,
// or to share one session across restarts of multiple hosts.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend creates a Redis backend. An empty key uses DefaultRedisKey.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

// Load fetches and decodes the document value.
func (r *RedisBackend) Load(ctx context.Context) (*session.Document, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var doc session.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return &doc, nil
}

// Save encodes the document and overwrites the key. No expiry: the session
// lives until the GM deletes it.
func (r *RedisBackend) Save(ctx context.Context, doc *session.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

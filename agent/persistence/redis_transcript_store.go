package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/BaSui01/agentsalon/config"
	"github.com/BaSui01/agentsalon/internal/tlsutil"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTranscriptStore is a Redis-based implementation of TranscriptStore.
// Each session is a list of JSON entries; a set indexes the session IDs.
type RedisTranscriptStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTranscriptStore connects to Redis and verifies the connection.
func NewRedisTranscriptStore(cfg config.RedisConfig) (*RedisTranscriptStore, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = config.DefaultRedisConfig().KeyPrefix
	}

	return &RedisTranscriptStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

// Close closes the store
func (s *RedisTranscriptStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisTranscriptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// sessionKey returns the Redis key for a session's entry list
func (s *RedisTranscriptStore) sessionKey(sessionID string) string {
	return s.keyPrefix + "session:" + sessionID
}

// indexKey returns the Redis key for the session ID set
func (s *RedisTranscriptStore) indexKey() string {
	return s.keyPrefix + "sessions"
}

// Append persists a single entry
func (s *RedisTranscriptStore) Append(ctx context.Context, entry *Entry) error {
	if err := prepare(entry, uuid.NewString); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	key := s.sessionKey(entry.SessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.SAdd(ctx, s.indexKey(), entry.SessionID)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Entries retrieves a session's entries in append order
func (s *RedisTranscriptStore) Entries(ctx context.Context, sessionID string) ([]*Entry, error) {
	raw, err := s.client.LRange(ctx, s.sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		// 过期的会话同时从索引中移除
		s.client.SRem(ctx, s.indexKey(), sessionID)
		return nil, ErrNotFound
	}

	entries := make([]*Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Sessions lists session IDs whose transcripts still exist
func (s *RedisTranscriptStore) Sessions(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	slices.Sort(live)
	return live, nil
}

// Delete removes a session
func (s *RedisTranscriptStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.SRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

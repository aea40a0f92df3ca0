package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chat-client/internal/models"
)

// RedisSessionRepo keeps the session in one redis key, for clients sharing a session across hosts.
type RedisSessionRepo struct {
	client *redis.Client
	key    string
}

// NewRedisSessionRepo parses redisURL and pings the server.
func NewRedisSessionRepo(ctx context.Context, redisURL, namespace string) (*RedisSessionRepo, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisSessionRepo{client: client, key: sessionKey(namespace)}, nil
}

func sessionKey(namespace string) string {
	if namespace == "" {
		namespace = "chat-client"
	}
	return fmt.Sprintf("%s:session", namespace)
}

// Load returns the stored session or ErrSessionNotFound.
func (r *RedisSessionRepo) Load(ctx context.Context) (models.StoredSession, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.StoredSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.StoredSession{}, err
	}

	var s models.StoredSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.StoredSession{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Save overwrites the stored session.
func (r *RedisSessionRepo) Save(ctx context.Context, s models.StoredSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, raw, 0).Err()
}

// Delete removes the stored session.
func (r *RedisSessionRepo) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Close closes the redis connection.
func (r *RedisSessionRepo) Close() error {
	return r.client.Close()
}

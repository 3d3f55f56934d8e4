// Package transcript archives conversation histories.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"ragchat/internal/domain"
)

// RedisSink stores each session's full history as one JSON value.
type RedisSink struct {
	client *redisv9.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig configures the Redis transcript sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisSinkWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisSinkWithClient wraps an existing client. A zero ttl keeps transcripts forever.
func NewRedisSinkWithClient(client *redisv9.Client, prefix string, ttl time.Duration) *RedisSink {
	if prefix == "" {
		prefix = "ragchat:transcript:"
	}
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key holding sessionID's transcript.
func (s *RedisSink) Key(sessionID string) string { return s.prefix + sessionID }

func (s *RedisSink) Save(ctx context.Context, sessionID string, history []domain.Message) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal transcript failed: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set transcript failed: %w", err)
	}
	return nil
}

// Load returns a stored transcript; ok is false if none exists.
func (s *RedisSink) Load(ctx context.Context, sessionID string) ([]domain.Message, bool, error) {
	raw, err := s.client.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get transcript failed: %w", err)
	}
	var history []domain.Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, false, fmt.Errorf("unmarshal transcript failed: %w", err)
	}
	return history, true, nil
}

func (s *RedisSink) Close() error { return s.client.Close() }

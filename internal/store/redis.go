package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/seantiz/errand/internal/model"
)

// RedisKeyPrefix namespaces job record keys.
const RedisKeyPrefix = "errand:result:"

// Compile-time interface satisfaction check.
var _ Durable = (*RedisStore)(nil)

// RedisStore implements Durable with one JSON string value per request ID.
// A single SET replaces the value atomically.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. Close closes the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(requestID string) string {
	return RedisKeyPrefix + requestID
}

// Write stores rec under its request ID with no expiry.
func (s *RedisStore) Write(ctx context.Context, rec *model.JobRecord) error {
	if rec == nil {
		return errors.New("job record is nil")
	}
	if err := checkID(rec.RequestID); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.RequestID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Read loads the record for requestID.
func (s *RedisStore) Read(ctx context.Context, requestID string) (*model.JobRecord, error) {
	if err := checkID(requestID); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse job record: %w", err)
	}
	return &rec, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

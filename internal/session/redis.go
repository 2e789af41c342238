package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each (session, key) pair in one hash that expires ttl
// after its last write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) hashKey(sessionID, key string) string {
	return "session:" + sessionID + ":" + key
}

func (s *RedisStore) Load(ctx context.Context, sessionID, key string) (map[string][]byte, error) {
	raw, err := s.client.HGetAll(ctx, s.hashKey(sessionID, key)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for field, value := range raw {
		out[field] = []byte(value)
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID, key, field string, value []byte) error {
	hashKey := s.hashKey(sessionID, key)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hashKey, field, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, hashKey, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Clear(ctx context.Context, sessionID, key string) error {
	return s.client.Del(ctx, s.hashKey(sessionID, key)).Err()
}

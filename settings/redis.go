package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/revchat/models"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "revchat:settings"

// RedisStore keeps settings in a Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisStore{
		client: client,
		key:    key,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context) (models.Settings, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to read settings from Redis: %w", err)
	}
	return models.SettingsFromMap(values), nil
}

func (s *RedisStore) Save(ctx context.Context, settings models.Settings) error {
	values := make(map[string]any)
	for k, v := range settings.Map() {
		values[k] = v
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write settings to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

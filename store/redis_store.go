package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"winnow/editlog"
)

// RedisStore persists edit logs in Redis, one key per task.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore creates a RedisStore around an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func editLogKey(taskId string) string {
	return fmt.Sprintf("%s:context_edits", taskId)
}

func (s *RedisStore) Load(ctx context.Context, taskId string) (*editlog.EditLog, error) {
	if taskId == "" {
		return nil, errors.New("taskId cannot be empty")
	}

	data, err := s.Client.Get(ctx, editLogKey(taskId)).Result()
	if err != nil {
		if err == redis.Nil {
			return editlog.New(), nil
		}
		return nil, fmt.Errorf("failed to get edit log for task %s from Redis: %w", taskId, err)
	}

	log := editlog.New()
	if err := json.Unmarshal([]byte(data), log); err != nil {
		zlog.Warn().Err(err).Str("taskId", taskId).Msg("stored edit log could not be decoded, starting empty")
		return editlog.New(), nil
	}
	return log, nil
}

func (s *RedisStore) Save(ctx context.Context, taskId string, log *editlog.EditLog) error {
	if taskId == "" {
		return errors.New("taskId cannot be empty")
	}

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal edit log for task %s: %w", taskId, err)
	}
	if err := s.Client.Set(ctx, editLogKey(taskId), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist edit log for task %s to Redis: %w", taskId, err)
	}
	return nil
}

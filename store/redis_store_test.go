package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winnow/editlog"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:     "localhost:6379",
		Password: "",
		DB:       1,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	return NewRedisStore(client)
}

func TestRedisStore(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	t.Run("missing record loads as empty log", func(t *testing.T) {
		log, err := s.Load(ctx, "task_"+ksuid.New().String())
		require.NoError(t, err)
		assert.True(t, log.IsEmpty())
	})

	t.Run("round trips a saved log", func(t *testing.T) {
		taskId := "task_" + ksuid.New().String()
		saved := sampleEditLog()
		require.NoError(t, s.Save(ctx, taskId, saved))

		loaded, err := s.Load(ctx, taskId)
		require.NoError(t, err)
		assert.True(t, saved.Equal(loaded))
	})

	t.Run("corrupted record loads as empty log", func(t *testing.T) {
		taskId := "task_" + ksuid.New().String()
		require.NoError(t, s.Client.Set(ctx, editLogKey(taskId), "{not json", 0).Err())

		log, err := s.Load(ctx, taskId)
		require.NoError(t, err)
		assert.True(t, log.IsEmpty())
	})

	t.Run("empty task id is rejected", func(t *testing.T) {
		_, err := s.Load(ctx, "")
		assert.Error(t, err)
		assert.Error(t, s.Save(ctx, "", editlog.New()))
	})
}

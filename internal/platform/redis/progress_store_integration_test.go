//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnwell/microlearn-api/internal/domain"
)

func newIntegrationStore(t *testing.T) *ProgressStore {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	prefix := fmt.Sprintf("microlearn-test:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			_ = client.Del(ctx, keys...).Err()
		}
	})
	return NewProgressStore(client, prefix, nil)
}

func TestRedisProgressStore_RaceConverges(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for _, u := range []domain.ProgressUpdate{
		{Progress: 40},
		{Progress: 10, Completed: true, CompletedAt: &completedAt},
	} {
		wg.Add(1)
		go func(u domain.ProgressUpdate) {
			defer wg.Done()
			_, err := s.Merge(ctx, 7, "v1", u)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	records, err := s.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 40, records[0].Progress)
	assert.True(t, records[0].Completed)
	require.NotNil(t, records[0].CompletedAt)
	assert.True(t, completedAt.Equal(*records[0].CompletedAt))
}

func TestRedisProgressStore_CompletedAtSetOnce(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	_, err := s.Merge(ctx, 9, "intro", domain.ProgressUpdate{Progress: 100, Completed: true, CompletedAt: &first})
	require.NoError(t, err)
	rec, err := s.Merge(ctx, 9, "intro", domain.ProgressUpdate{Progress: 50, Completed: true, CompletedAt: &second})
	require.NoError(t, err)

	assert.Equal(t, 100, rec.Progress)
	require.NotNil(t, rec.CompletedAt)
	assert.True(t, first.Equal(*rec.CompletedAt))
}

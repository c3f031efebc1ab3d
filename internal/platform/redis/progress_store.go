// Package redis implements the progress store on Redis.
//
// Each (user, video) record is a hash; a per-user set indexes the videos a
// user has touched. Merges run as a single Lua script, which Redis executes
// atomically, so concurrent writers for the same key never interleave.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/store"
)

// Hash field names.
const (
	fieldProgress          = "progress"
	fieldWatchedPercentage = "watched_percentage"
	fieldCompleted         = "completed"
	fieldCompletedAt       = "completed_at"
	fieldCreatedAt         = "created_at"
	fieldUpdatedAt         = "updated_at"
)

// mergeScript mirrors domain.MergeProgress.
//
// KEYS[1] record hash, KEYS[2] user index set
// ARGV: progress, watched, completed (0|1), completed_at ("" for none), now, video id
var mergeScript = goredis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'progress', 'watched_percentage', 'completed', 'completed_at', 'created_at')
local progress = tonumber(ARGV[1])
local watched = tonumber(ARGV[2])
local completed = tonumber(ARGV[3])
local completed_at = ARGV[4]
local created_at = ARGV[5]

if cur[5] then
  progress = math.max(progress, tonumber(cur[1]) or 0)
  watched = math.max(watched, tonumber(cur[2]) or 0)
  completed = math.max(completed, tonumber(cur[3]) or 0)
  if cur[4] and cur[4] ~= '' then
    completed_at = cur[4]
  end
  created_at = cur[5]
end

redis.call('HSET', KEYS[1],
  'progress', progress,
  'watched_percentage', watched,
  'completed', completed,
  'completed_at', completed_at,
  'created_at', created_at,
  'updated_at', ARGV[5])
redis.call('SADD', KEYS[2], ARGV[6])

return {progress, watched, completed, completed_at, created_at, ARGV[5]}
`)

// ProgressStore implements store.ProgressStore on Redis.
type ProgressStore struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewProgressStore creates a Redis-backed progress store. Keys are namespaced
// with prefix. If logger is nil, a default logger will be used.
func NewProgressStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *ProgressStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressStore{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_progress_store")),
		now:    time.Now,
	}
}

var _ store.ProgressStore = (*ProgressStore)(nil)

func (s *ProgressStore) recordKey(userID int64, videoID string) string {
	return fmt.Sprintf("%sprogress:%d:%s", s.prefix, userID, videoID)
}

func (s *ProgressStore) indexKey(userID int64) string {
	return fmt.Sprintf("%sprogress-index:%d", s.prefix, userID)
}

// Merge implements store.ProgressStore.Merge.
func (s *ProgressStore) Merge(
	ctx context.Context,
	userID int64,
	videoID string,
	update domain.ProgressUpdate,
) (*domain.ProgressRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateProgressKey(userID, videoID); err != nil {
		return nil, store.NewStoreError("progress", "merge", "invalid key", err)
	}

	now := s.now().UTC()
	in := update.Normalize(now)

	completed := 0
	if in.Completed {
		completed = 1
	}
	completedAt := ""
	if in.CompletedAt != nil {
		completedAt = formatTime(*in.CompletedAt)
	}

	res, err := mergeScript.Run(
		ctx,
		s.client,
		[]string{s.recordKey(userID, videoID), s.indexKey(userID)},
		in.Progress,
		in.WatchedPercentage,
		completed,
		completedAt,
		formatTime(now),
		videoID,
	).Slice()
	if err != nil {
		log.Error("failed to merge progress",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID),
			slog.String("video_id", videoID))
		return nil, store.NewStoreError("progress", "merge", "script failed", MapError(err))
	}

	record, err := decodeScriptResult(userID, videoID, res)
	if err != nil {
		return nil, store.NewStoreError("progress", "merge", "unexpected script result", err)
	}

	log.Debug("progress merged",
		slog.Int64("user_id", userID),
		slog.String("video_id", videoID),
		slog.Int("progress", record.Progress),
		slog.Bool("completed", record.Completed))
	return record, nil
}

// ListByUser implements store.ProgressStore.ListByUser.
func (s *ProgressStore) ListByUser(ctx context.Context, userID int64) ([]domain.ProgressRecord, error) {
	videoIDs, err := s.client.SMembers(ctx, s.indexKey(userID)).Result()
	if err != nil {
		return nil, store.NewStoreError("progress", "list", "index lookup failed", MapError(err))
	}
	sort.Strings(videoIDs)

	records := make([]domain.ProgressRecord, 0, len(videoIDs))
	if len(videoIDs) == 0 {
		return records, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(videoIDs))
	_, err = s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, videoID := range videoIDs {
			cmds[i] = p.HGetAll(ctx, s.recordKey(userID, videoID))
		}
		return nil
	})
	if err != nil {
		return nil, store.NewStoreError("progress", "list", "pipeline failed", MapError(err))
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		record, err := decodeHash(userID, videoIDs[i], fields)
		if err != nil {
			return nil, store.NewStoreError("progress", "list", "corrupt record", err)
		}
		records = append(records, *record)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func decodeScriptResult(userID int64, videoID string, res []interface{}) (*domain.ProgressRecord, error) {
	if len(res) != 6 {
		return nil, fmt.Errorf("expected 6 values, got %d", len(res))
	}
	fields := map[string]string{
		fieldProgress:          fmt.Sprint(res[0]),
		fieldWatchedPercentage: fmt.Sprint(res[1]),
		fieldCompleted:         fmt.Sprint(res[2]),
		fieldCompletedAt:       fmt.Sprint(res[3]),
		fieldCreatedAt:         fmt.Sprint(res[4]),
		fieldUpdatedAt:         fmt.Sprint(res[5]),
	}
	return decodeHash(userID, videoID, fields)
}

func decodeHash(userID int64, videoID string, fields map[string]string) (*domain.ProgressRecord, error) {
	r := domain.ProgressRecord{UserID: userID, VideoID: videoID}

	var err error
	if r.Progress, err = strconv.Atoi(fields[fieldProgress]); err != nil {
		return nil, fmt.Errorf("invalid progress: %w", err)
	}
	if r.WatchedPercentage, err = strconv.Atoi(fields[fieldWatchedPercentage]); err != nil {
		return nil, fmt.Errorf("invalid watched percentage: %w", err)
	}
	r.Completed = fields[fieldCompleted] == "1"

	if v := fields[fieldCompletedAt]; v != "" {
		t, err := parseTime(v)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at: %w", err)
		}
		r.CompletedAt = &t
	}
	if r.CreatedAt, err = parseTime(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	return &r, nil
}

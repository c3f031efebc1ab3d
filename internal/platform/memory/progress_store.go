package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/store"
)

type progressKey struct {
	userID  int64
	videoID string
}

// ProgressStore is an in-memory store.ProgressStore.
type ProgressStore struct {
	mu      sync.Mutex
	records map[progressKey]domain.ProgressRecord
	logger  *slog.Logger
	now     func() time.Time
}

// NewProgressStore creates an empty in-memory progress store.
func NewProgressStore(logger *slog.Logger) *ProgressStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressStore{
		records: make(map[progressKey]domain.ProgressRecord),
		logger:  logger.With(slog.String("component", "memory_progress_store")),
		now:     time.Now,
	}
}

var _ store.ProgressStore = (*ProgressStore)(nil)

// Merge implements store.ProgressStore.Merge.
func (s *ProgressStore) Merge(
	ctx context.Context,
	userID int64,
	videoID string,
	update domain.ProgressUpdate,
) (*domain.ProgressRecord, error) {
	if err := domain.ValidateProgressKey(userID, videoID); err != nil {
		return nil, store.NewStoreError("progress", "merge", "invalid key", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := progressKey{userID: userID, videoID: videoID}

	s.mu.Lock()
	var existing *domain.ProgressRecord
	if r, ok := s.records[key]; ok {
		existing = &r
	}
	merged := domain.MergeProgress(existing, userID, videoID, update, s.now())
	s.records[key] = merged
	s.mu.Unlock()

	logger.FromContextOrDefault(ctx, s.logger).Debug("progress merged",
		slog.Int64("user_id", userID),
		slog.String("video_id", videoID),
		slog.Int("progress", merged.Progress),
		slog.Bool("completed", merged.Completed))

	return &merged, nil
}

// ListByUser implements store.ProgressStore.ListByUser.
func (s *ProgressStore) ListByUser(ctx context.Context, userID int64) ([]domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]domain.ProgressRecord, 0)
	for k, r := range s.records {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out, nil
}

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

// CompletionStore is an in-memory store.CompletionStore.
type CompletionStore struct {
	mu      sync.Mutex
	records map[int64]domain.CompletionRecord
	logger  *slog.Logger
	now     func() time.Time
}

// NewCompletionStore creates an empty in-memory completion store.
func NewCompletionStore(logger *slog.Logger) *CompletionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionStore{
		records: make(map[int64]domain.CompletionRecord),
		logger:  logger.With(slog.String("component", "memory_completion_store")),
		now:     time.Now,
	}
}

var _ store.CompletionStore = (*CompletionStore)(nil)

// Create implements store.CompletionStore.Create.
func (s *CompletionStore) Create(ctx context.Context, record *domain.CompletionRecord) error {
	if err := record.Validate(); err != nil {
		return store.NewStoreError("completion", "create", "invalid record", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.UserID]; ok {
		return store.ErrCompletionExists
	}
	s.records[record.UserID] = cloneCompletion(*record)

	logger.FromContextOrDefault(ctx, s.logger).Info("completion recorded",
		slog.Int64("user_id", record.UserID))
	return nil
}

// GetByUser implements store.CompletionStore.GetByUser.
func (s *CompletionStore) GetByUser(ctx context.Context, userID int64) (*domain.CompletionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		return nil, store.ErrCompletionNotFound
	}
	out := cloneCompletion(r)
	return &out, nil
}

// MarkCertificateGenerated implements store.CompletionStore.MarkCertificateGenerated.
func (s *CompletionStore) MarkCertificateGenerated(
	ctx context.Context,
	userID int64,
	certificateID, certificateURL string,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		return false, store.ErrCompletionNotFound
	}
	if r.CertificateGenerated {
		return false, nil
	}
	r.CertificateGenerated = true
	r.CertificateID = certificateID
	r.CertificateURL = certificateURL
	r.UpdatedAt = s.now().UTC()
	s.records[userID] = r
	return true, nil
}

// ListPendingCertification implements store.CompletionStore.ListPendingCertification.
func (s *CompletionStore) ListPendingCertification(ctx context.Context, limit int) ([]domain.CompletionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]domain.CompletionRecord, 0)
	for _, r := range s.records {
		if r.Confirmed && !r.CertificateGenerated {
			out = append(out, cloneCompletion(r))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	if limit <= 0 {
		return []domain.CompletionRecord{}, nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneCompletion(r domain.CompletionRecord) domain.CompletionRecord {
	r.Snapshot = append([]domain.VideoSnapshot(nil), r.Snapshot...)
	return r
}

package domain

import (
	"strings"
	"time"
)

// Bounds for progress and watched percentage values.
const (
	MinPercent = 0
	MaxPercent = 100
)

// ProgressRecord is the persisted state of one user's interaction with one video.
// It is identified by the (UserID, VideoID) pair.
//
// Progress and WatchedPercentage never decrease, Completed only moves from
// false to true, and CompletedAt is set once and never changed afterwards.
type ProgressRecord struct {
	UserID            int64      `json:"user_id"`
	VideoID           string     `json:"video_id"`
	Progress          int        `json:"progress"`
	WatchedPercentage int        `json:"watched_percentage"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ProgressUpdate is a single progress event reported by a client.
type ProgressUpdate struct {
	Progress          int
	WatchedPercentage int
	Completed         bool
	// CompletedAt is the client-reported completion time. It is only
	// considered when Completed is true; nil means "now".
	CompletedAt *time.Time
}

// ValidateProgressKey checks the identifiers of a progress record.
func ValidateProgressKey(userID int64, videoID string) error {
	if userID <= 0 {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(videoID) == "" {
		return ErrEmptyVideoID
	}
	return nil
}

// ClampPercent limits v to the [MinPercent, MaxPercent] range.
// Out-of-range values are clamped rather than rejected.
func ClampPercent(v int) int {
	if v < MinPercent {
		return MinPercent
	}
	if v > MaxPercent {
		return MaxPercent
	}
	return v
}

// Normalize returns a copy of the update with clamped percentages and a
// resolved completion time. now is used when a completion event carries no
// timestamp; a non-completion event never carries one.
func (u ProgressUpdate) Normalize(now time.Time) ProgressUpdate {
	out := ProgressUpdate{
		Progress:          ClampPercent(u.Progress),
		WatchedPercentage: ClampPercent(u.WatchedPercentage),
		Completed:         u.Completed,
	}
	if u.Completed {
		at := now.UTC()
		if u.CompletedAt != nil && !u.CompletedAt.IsZero() {
			at = u.CompletedAt.UTC()
		}
		out.CompletedAt = &at
	}
	return out
}

// MergeProgress applies an incoming update to the existing record and returns
// the new state. existing may be nil when no record exists yet.
//
// The merge is commutative and idempotent with respect to the monotonic
// fields: numbers take the maximum, completed is the logical OR, and the
// first stored completion time wins. Every store backend must produce the
// same result as this function inside a single atomic write.
func MergeProgress(
	existing *ProgressRecord,
	userID int64,
	videoID string,
	incoming ProgressUpdate,
	now time.Time,
) ProgressRecord {
	in := incoming.Normalize(now)
	now = now.UTC()

	if existing == nil {
		return ProgressRecord{
			UserID:            userID,
			VideoID:           videoID,
			Progress:          in.Progress,
			WatchedPercentage: in.WatchedPercentage,
			Completed:         in.Completed,
			CompletedAt:       in.CompletedAt,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	merged := *existing
	merged.Progress = max(existing.Progress, in.Progress)
	merged.WatchedPercentage = max(existing.WatchedPercentage, in.WatchedPercentage)
	merged.Completed = existing.Completed || in.Completed
	if merged.CompletedAt == nil {
		merged.CompletedAt = in.CompletedAt
	}
	merged.UpdatedAt = now
	return merged
}

// ProgressByVideo indexes records by video ID.
func ProgressByVideo(records []ProgressRecord) map[string]ProgressRecord {
	out := make(map[string]ProgressRecord, len(records))
	for _, r := range records {
		out[r.VideoID] = r
	}
	return out
}

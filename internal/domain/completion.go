package domain

import (
	"fmt"
	"sort"
	"time"
)

// Validation errors for CompletionRecord.
var (
	ErrCompletionNotConfirmed = fmt.Errorf("%w: completion record must be confirmed", ErrValidation)
	ErrEmptyCompletionTime    = fmt.Errorf("%w: completion time cannot be empty", ErrValidation)
)

// VideoSnapshot is the state of one video at the time the course was completed.
type VideoSnapshot struct {
	VideoID           string     `json:"video_id"`
	Progress          int        `json:"progress"`
	WatchedPercentage int        `json:"watched_percentage"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// CompletionRecord is the persisted state of one user's overall completion.
// A user has at most one record. Once confirmed it is immutable except for
// the certificate fields, which are written once by the certification path.
type CompletionRecord struct {
	UserID               int64           `json:"user_id"`
	CompletedAt          time.Time       `json:"completed_at"`
	Snapshot             []VideoSnapshot `json:"snapshot"`
	Confirmed            bool            `json:"confirmed"`
	CertificateGenerated bool            `json:"certificate_generated"`
	CertificateID        string          `json:"certificate_id,omitempty"`
	CertificateURL       string          `json:"certificate_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NewCompletionRecord creates a confirmed completion record for a user.
func NewCompletionRecord(userID int64, snapshot []VideoSnapshot, completedAt time.Time) (*CompletionRecord, error) {
	now := time.Now().UTC()
	rec := &CompletionRecord{
		UserID:      userID,
		CompletedAt: completedAt.UTC(),
		Snapshot:    snapshot,
		Confirmed:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks if the CompletionRecord has valid data.
func (c *CompletionRecord) Validate() error {
	if c.UserID <= 0 {
		return ErrInvalidUserID
	}
	if !c.Confirmed {
		return ErrCompletionNotConfirmed
	}
	if c.CompletedAt.IsZero() {
		return ErrEmptyCompletionTime
	}
	return nil
}

// SnapshotFromRecords builds the per-video snapshot stored on a completion record.
// The result is ordered by video ID.
func SnapshotFromRecords(records []ProgressRecord) []VideoSnapshot {
	out := make([]VideoSnapshot, 0, len(records))
	for _, r := range records {
		out = append(out, VideoSnapshot{
			VideoID:           r.VideoID,
			Progress:          r.Progress,
			WatchedPercentage: r.WatchedPercentage,
			Completed:         r.Completed,
			CompletedAt:       r.CompletedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// MissingVideos returns the required video IDs that are not completed in the
// snapshot, sorted. An empty result means every requirement is met.
func MissingVideos(required []string, snapshot []VideoSnapshot) []string {
	done := make(map[string]bool, len(snapshot))
	for _, s := range snapshot {
		if s.Completed {
			done[s.VideoID] = true
		}
	}

	seen := make(map[string]bool, len(required))
	missing := make([]string, 0)
	for _, id := range required {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !done[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

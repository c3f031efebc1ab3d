package api

import (
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/service/certification"
	"github.com/learnwell/microlearn-api/internal/service/learning"
)

// ProgressRequest defines the payload for POST /api/learning/progress/{videoID}.
// Percentages outside 0..100 are clamped, not rejected.
type ProgressRequest struct {
	Progress          *int       `json:"progress"           validate:"required"`
	WatchedPercentage *int       `json:"watched_percentage"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// ToUpdate converts the request into a progress event. A missing watched
// percentage is reported as zero, which never lowers the stored value.
func (r ProgressRequest) ToUpdate() domain.ProgressUpdate {
	update := domain.ProgressUpdate{
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
	}
	if r.Progress != nil {
		update.Progress = *r.Progress
	}
	if r.WatchedPercentage != nil {
		update.WatchedPercentage = *r.WatchedPercentage
	}
	return update
}

// ProgressResponse is the merged state of one video.
type ProgressResponse struct {
	VideoID           string     `json:"video_id"`
	Progress          int        `json:"progress"`
	WatchedPercentage int        `json:"watched_percentage"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CompletionRecordResponse is the public view of a completion record.
type CompletionRecordResponse struct {
	UserID               int64                  `json:"user_id"`
	CompletedAt          time.Time              `json:"completed_at"`
	Confirmed            bool                   `json:"confirmed"`
	Videos               []domain.VideoSnapshot `json:"videos"`
	CertificateGenerated bool                   `json:"certificate_generated"`
	CertificateID        string                 `json:"certificate_id,omitempty"`
	CertificateURL       string                 `json:"certificate_url,omitempty"`
}

// OverviewResponse is returned by GET /api/learning/progress.
type OverviewResponse struct {
	UserID           int64                     `json:"user_id"`
	AccessLevel      domain.AccessLevel        `json:"access_level"`
	Videos           []ProgressResponse        `json:"videos"`
	Completion       *CompletionRecordResponse `json:"completion,omitempty"`
	RequiredVideoIDs []string                  `json:"required_video_ids"`
	FirstFreeVideoID string                    `json:"first_free_video_id"`
}

// CertificationResponse reports what happened to the certificate request.
type CertificationResponse struct {
	Status         domain.CertificationStatus `json:"status"`
	CertificateID  string                     `json:"certificate_id,omitempty"`
	CertificateURL string                     `json:"certificate_url,omitempty"`
}

// CompletionResponse is returned by POST /api/learning/completion.
type CompletionResponse struct {
	Completion       CompletionRecordResponse `json:"completion"`
	AlreadyCompleted bool                     `json:"already_completed"`
	// Certification carries the certification outcome under the field name
	// existing clients read.
	Certification CertificationResponse `json:"always_food_safe_integration"`
}

func progressToResponse(rec domain.ProgressRecord) ProgressResponse {
	return ProgressResponse{
		VideoID:           rec.VideoID,
		Progress:          rec.Progress,
		WatchedPercentage: rec.WatchedPercentage,
		Completed:         rec.Completed,
		CompletedAt:       rec.CompletedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func completionToResponse(rec *domain.CompletionRecord) CompletionRecordResponse {
	videos := rec.Snapshot
	if videos == nil {
		videos = []domain.VideoSnapshot{}
	}
	return CompletionRecordResponse{
		UserID:               rec.UserID,
		CompletedAt:          rec.CompletedAt,
		Confirmed:            rec.Confirmed,
		Videos:               videos,
		CertificateGenerated: rec.CertificateGenerated,
		CertificateID:        rec.CertificateID,
		CertificateURL:       rec.CertificateURL,
	}
}

func overviewToResponse(o *learning.Overview) OverviewResponse {
	videos := make([]ProgressResponse, 0, len(o.Videos))
	for _, v := range o.Videos {
		videos = append(videos, progressToResponse(v))
	}
	required := o.RequiredVideoIDs
	if required == nil {
		required = []string{}
	}
	resp := OverviewResponse{
		UserID:           o.UserID,
		AccessLevel:      o.AccessLevel,
		Videos:           videos,
		RequiredVideoIDs: required,
		FirstFreeVideoID: o.FirstFreeVideoID,
	}
	if o.Completion != nil {
		c := completionToResponse(o.Completion)
		resp.Completion = &c
	}
	return resp
}

func certificationToResponse(res certification.Result) CertificationResponse {
	return CertificationResponse{
		Status:         res.Status,
		CertificateID:  res.CertificateID,
		CertificateURL: res.CertificateURL,
	}
}

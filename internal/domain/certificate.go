package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CertificationStatus is the outcome of a certification submission as
// reported to clients.
type CertificationStatus string

// Possible certification outcomes.
const (
	CertificationOK            CertificationStatus = "ok"
	CertificationFailed        CertificationStatus = "failed"
	CertificationNotConfigured CertificationStatus = "not_configured"
	CertificationSkipped       CertificationStatus = "skipped"
	CertificationQueued        CertificationStatus = "queued"
)

// certificationNamespace scopes submission keys generated by this service.
var certificationNamespace = uuid.MustParse("6f1c2f7e-8a52-4d0e-9a51-3b7c4de0f2a1")

// CertificationRequest is what is sent to the certification authority for a
// completed course.
type CertificationRequest struct {
	// SubmissionKey identifies the completion. It is stable across retries so
	// the authority can drop duplicates.
	SubmissionKey   string    `json:"submission_key"`
	UserID          int64     `json:"external_user_id"`
	DisplayName     string    `json:"display_name"`
	EmailOrUsername string    `json:"email_or_username"`
	CompletedAt     time.Time `json:"completed_at"`
	VideosCompleted int       `json:"videos_completed"`
}

// Certificate is the authority's answer to a successful submission.
type Certificate struct {
	ID  string `json:"certificate_id"`
	URL string `json:"certificate_url"`
}

// NewCertificationRequest builds the request for a completion record.
func NewCertificationRequest(record *CompletionRecord, profile UserProfile) CertificationRequest {
	completed := 0
	for _, s := range record.Snapshot {
		if s.Completed {
			completed++
		}
	}
	return CertificationRequest{
		SubmissionKey:   SubmissionKey(record.UserID, record.CompletedAt),
		UserID:          record.UserID,
		DisplayName:     profile.DisplayName,
		EmailOrUsername: profile.EmailOrUsername,
		CompletedAt:     record.CompletedAt.UTC(),
		VideosCompleted: completed,
	}
}

// SubmissionKey derives a deterministic key for the completion of userID at
// completedAt.
func SubmissionKey(userID int64, completedAt time.Time) string {
	name := fmt.Sprintf("%d/%d", userID, completedAt.UTC().UnixNano())
	return uuid.NewSHA1(certificationNamespace, []byte(name)).String()
}

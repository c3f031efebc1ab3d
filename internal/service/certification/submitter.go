// Package certification submits completed courses to the external
// certification authority and records the issued certificate.
package certification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/redact"
	"github.com/learnwell/microlearn-api/internal/store"
)

// ErrCertificationUnavailable describes why a submission ended in
// CertificationFailed. It is only ever logged and reported as a status; no
// operation returns it.
var ErrCertificationUnavailable = errors.New("certification unavailable")

// Authority is the external certification service.
type Authority interface {
	// Configured reports whether submissions can be made at all.
	Configured() bool
	// Submit sends the request and returns the issued certificate.
	Submit(ctx context.Context, req domain.CertificationRequest) (domain.Certificate, error)
}

// UserProfileProvider supplies the user details sent with a submission.
type UserProfileProvider interface {
	GetUserProfile(ctx context.Context, userID int64) (domain.UserProfile, error)
}

// Result is the outcome of one submission.
type Result struct {
	Status         domain.CertificationStatus `json:"status"`
	CertificateID  string                     `json:"certificate_id,omitempty"`
	CertificateURL string                     `json:"certificate_url,omitempty"`
}

// Submitter hands completion records to the certification authority.
type Submitter interface {
	// Submit requests a certificate for a confirmed completion record.
	//
	// It never returns an error and never modifies the completion record
	// apart from the certificate fields: every failure (profile lookup,
	// network, rejection, timeout) is logged and reported as
	// CertificationFailed. A record whose certificate was already generated
	// is reported as CertificationSkipped without calling the authority.
	Submit(ctx context.Context, record *domain.CompletionRecord) Result
}

type submitterImpl struct {
	authority   Authority
	profiles    UserProfileProvider
	completions store.CompletionStore
	timeout     time.Duration
	logger      *slog.Logger
}

// NewSubmitter creates a Submitter. timeout bounds the whole submission,
// including retries; zero means no bound beyond the caller's context.
func NewSubmitter(
	authority Authority,
	profiles UserProfileProvider,
	completions store.CompletionStore,
	timeout time.Duration,
	logger *slog.Logger,
) Submitter {
	if authority == nil {
		panic("authority cannot be nil")
	}
	if profiles == nil {
		panic("profiles cannot be nil")
	}
	if completions == nil {
		panic("completions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &submitterImpl{
		authority:   authority,
		profiles:    profiles,
		completions: completions,
		timeout:     timeout,
		logger:      logger.With(slog.String("component", "certification_submitter")),
	}
}

// Submit implements Submitter.Submit.
func (s *submitterImpl) Submit(ctx context.Context, record *domain.CompletionRecord) Result {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if record == nil || !record.Confirmed {
		log.Warn("refusing to certify an unconfirmed completion")
		return Result{Status: domain.CertificationSkipped}
	}
	log = log.With(slog.Int64("user_id", record.UserID))

	if record.CertificateGenerated {
		return Result{
			Status:         domain.CertificationSkipped,
			CertificateID:  record.CertificateID,
			CertificateURL: record.CertificateURL,
		}
	}

	if !s.authority.Configured() {
		log.Info("certification authority not configured, skipping submission")
		return Result{Status: domain.CertificationNotConfigured}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	profile, err := s.profiles.GetUserProfile(ctx, record.UserID)
	if err != nil {
		log.Error("certification failed: could not load user profile",
			slog.String("error", redact.Error(err)),
			slog.String("cause", ErrCertificationUnavailable.Error()))
		return Result{Status: domain.CertificationFailed}
	}

	cert, err := s.authority.Submit(ctx, domain.NewCertificationRequest(record, profile))
	if err != nil {
		log.Error("certification failed: authority call failed",
			slog.String("error", redact.Error(err)),
			slog.String("cause", ErrCertificationUnavailable.Error()))
		return Result{Status: domain.CertificationFailed}
	}

	// The certificate exists at the authority now; failing to record it only
	// means the sweep submits again with the same idempotency key.
	marked, err := s.completions.MarkCertificateGenerated(ctx, record.UserID, cert.ID, cert.URL)
	switch {
	case err != nil:
		log.Error("certificate issued but not recorded",
			slog.String("error", redact.Error(err)),
			slog.String("certificate_id", cert.ID))
	case !marked:
		log.Info("certificate was already recorded by another submission",
			slog.String("certificate_id", cert.ID))
	default:
		log.Info("certificate recorded", slog.String("certificate_id", cert.ID))
	}

	return Result{
		Status:         domain.CertificationOK,
		CertificateID:  cert.ID,
		CertificateURL: cert.URL,
	}
}

package certauthority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/learnwell/microlearn-api/internal/config"
	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
)

const (
	submitPath = "/v1/certificates"

	defaultRetryWait    = 200 * time.Millisecond
	defaultRetryMaxWait = 2 * time.Second
)

// certificateResponse is the body of a successful submission.
type certificateResponse struct {
	CertificateID  string `json:"certificate_id"`
	CertificateURL string `json:"certificate_url"`
}

// errorResponse is the body the authority sends with a failed submission.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// slogRestyLogger routes resty diagnostics through slog.
type slogRestyLogger struct {
	logger *slog.Logger
}

func (l *slogRestyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogRestyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogRestyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Client submits completed courses to the certification authority.
type Client struct {
	http       *resty.Client
	configured bool
	logger     *slog.Logger
}

// NewClient creates an authority client from configuration. A client built
// from an incomplete configuration is valid but reports Configured() == false
// and refuses to submit.
func NewClient(cfg config.CertificationConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "certauthority"))

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(isRetryable).
		SetHeader("X-API-Key", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetLogger(&slogRestyLogger{logger: log})

	return &Client{
		http:       httpClient,
		configured: cfg.Configured(),
		logger:     log,
	}
}

// Configured reports whether the client has a base URL and an API key.
func (c *Client) Configured() bool {
	return c.configured
}

// Submit sends a certification request and returns the issued certificate.
//
// Errors wrap ErrNotConfigured, ErrRejected, ErrUnavailable or
// ErrInvalidResponse. Cancellation of ctx aborts pending retries.
func (c *Client) Submit(ctx context.Context, req domain.CertificationRequest) (domain.Certificate, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if !c.configured {
		return domain.Certificate{}, ErrNotConfigured
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.SubmissionKey).
		SetBody(req).
		SetResult(&certificateResponse{}).
		SetError(&errorResponse{}).
		Post(submitPath)
	if err != nil {
		log.Warn("certification request failed",
			slog.String("error", err.Error()),
			slog.Int64("user_id", req.UserID),
			slog.Duration("elapsed", time.Since(start)))
		if errors.Is(err, context.Canceled) {
			return domain.Certificate{}, err
		}
		return domain.Certificate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), kind: ErrRejected}
		if isRetryableStatus(resp.StatusCode()) {
			apiErr.kind = ErrUnavailable
		}
		if body, ok := resp.Error().(*errorResponse); ok && body != nil {
			apiErr.Message = body.Message
			if apiErr.Message == "" {
				apiErr.Message = body.Error
			}
		}
		log.Warn("certification authority returned an error",
			slog.Int("status", resp.StatusCode()),
			slog.Int64("user_id", req.UserID),
			slog.Int("attempts", resp.Request.Attempt))
		return domain.Certificate{}, apiErr
	}

	result, ok := resp.Result().(*certificateResponse)
	if !ok || result == nil || result.CertificateID == "" {
		return domain.Certificate{}, fmt.Errorf("%w: missing certificate id (status %d)",
			ErrInvalidResponse, resp.StatusCode())
	}

	log.Info("certificate issued",
		slog.Int64("user_id", req.UserID),
		slog.String("certificate_id", result.CertificateID),
		slog.Duration("elapsed", time.Since(start)))
	return domain.Certificate{ID: result.CertificateID, URL: result.CertificateURL}, nil
}

func isRetryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return resp != nil && isRetryableStatus(resp.StatusCode())
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

package certification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/platform/memory"
	"github.com/learnwell/microlearn-api/internal/service/certification"
)

// MockAuthority is a mock implementation of the Authority interface
type MockAuthority struct {
	mock.Mock
	configured bool
}

func (m *MockAuthority) Configured() bool {
	return m.configured
}

func (m *MockAuthority) Submit(ctx context.Context, req domain.CertificationRequest) (domain.Certificate, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Certificate), args.Error(1)
}

type fixture struct {
	authority   *MockAuthority
	directory   *memory.Directory
	completions *memory.CompletionStore
	submitter   certification.Submitter
	record      *domain.CompletionRecord
}

func newFixture(t *testing.T, configured bool) *fixture {
	t.Helper()

	f := &fixture{
		authority:   &MockAuthority{configured: configured},
		directory:   memory.NewDirectory(),
		completions: memory.NewCompletionStore(nil),
	}
	f.directory.SetProfile(domain.UserProfile{UserID: 7, DisplayName: "Ana", EmailOrUsername: "ana@example.com"})

	rec, err := domain.NewCompletionRecord(7, []domain.VideoSnapshot{
		{VideoID: "intro", Progress: 100, Completed: true},
	}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, f.completions.Create(context.Background(), rec))
	f.record = rec

	f.submitter = certification.NewSubmitter(f.authority, f.directory, f.completions, time.Second, nil)
	return f
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t, true)
	f.authority.On("Submit", mock.Anything, mock.MatchedBy(func(req domain.CertificationRequest) bool {
		return req.UserID == 7 && req.EmailOrUsername == "ana@example.com" && req.VideosCompleted == 1
	})).Return(domain.Certificate{ID: "cert-1", URL: "https://certs.example.com/cert-1"}, nil).Once()

	res := f.submitter.Submit(context.Background(), f.record)

	assert.Equal(t, domain.CertificationOK, res.Status)
	assert.Equal(t, "cert-1", res.CertificateID)

	stored, err := f.completions.GetByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, stored.CertificateGenerated)
	assert.Equal(t, "https://certs.example.com/cert-1", stored.CertificateURL)
	f.authority.AssertExpectations(t)
}

func TestSubmit_NetworkFailureKeepsCompletion(t *testing.T) {
	f := newFixture(t, true)
	log, buf := logger.NewTestLogger(t)
	submitter := certification.NewSubmitter(f.authority, f.directory, f.completions, time.Second, log)

	f.authority.On("Submit", mock.Anything, mock.Anything).
		Return(domain.Certificate{}, errors.New("dial tcp: connection refused")).Once()

	res := submitter.Submit(context.Background(), f.record)

	assert.Equal(t, domain.CertificationFailed, res.Status)
	assert.Empty(t, res.CertificateID)

	stored, err := f.completions.GetByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	assert.False(t, stored.CertificateGenerated)
	logger.AssertLogContains(t, buf, "authority call failed")
}

func TestSubmit_NotConfigured(t *testing.T) {
	f := newFixture(t, false)

	res := f.submitter.Submit(context.Background(), f.record)

	assert.Equal(t, domain.CertificationNotConfigured, res.Status)
	f.authority.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmit_MissingProfileFails(t *testing.T) {
	f := newFixture(t, true)
	rec, err := domain.NewCompletionRecord(8, nil, time.Now())
	require.NoError(t, err)

	res := f.submitter.Submit(context.Background(), rec)

	assert.Equal(t, domain.CertificationFailed, res.Status)
	f.authority.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmit_AlreadyGeneratedIsSkipped(t *testing.T) {
	f := newFixture(t, true)
	f.record.CertificateGenerated = true
	f.record.CertificateID = "cert-0"

	res := f.submitter.Submit(context.Background(), f.record)

	assert.Equal(t, domain.CertificationSkipped, res.Status)
	assert.Equal(t, "cert-0", res.CertificateID)
	f.authority.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmit_TimeoutBoundsAuthorityCall(t *testing.T) {
	f := newFixture(t, true)
	submitter := certification.NewSubmitter(f.authority, f.directory, f.completions, 20*time.Millisecond, nil)

	f.authority.On("Submit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(domain.Certificate{}, context.DeadlineExceeded).Once()

	start := time.Now()
	res := submitter.Submit(context.Background(), f.record)

	assert.Equal(t, domain.CertificationFailed, res.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewSubmitter_PanicsOnNilDeps(t *testing.T) {
	completions := memory.NewCompletionStore(nil)
	directory := memory.NewDirectory()
	authority := &MockAuthority{}

	assert.Panics(t, func() { certification.NewSubmitter(nil, directory, completions, 0, nil) })
	assert.Panics(t, func() { certification.NewSubmitter(authority, nil, completions, 0, nil) })
	assert.Panics(t, func() { certification.NewSubmitter(authority, directory, nil, 0, nil) })
}

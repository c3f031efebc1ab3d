package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/learnwell/microlearn-api/internal/api/shared"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/service/learning"
)

// LearningHandler serves the learning progress endpoints.
type LearningHandler struct {
	service learning.Service
	logger  *slog.Logger
}

// NewLearningHandler creates a new LearningHandler.
func NewLearningHandler(service learning.Service, log *slog.Logger) *LearningHandler {
	if service == nil {
		panic("learning service cannot be nil for LearningHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LearningHandler{
		service: service,
		logger:  log.With(slog.String("component", "learning_handler")),
	}
}

// Routes mounts the learning endpoints on r. Callers are expected to put
// them behind the auth middleware.
func (h *LearningHandler) Routes(r chi.Router) {
	r.Get("/progress", h.GetProgress)
	r.Post("/progress/{videoID}", h.SubmitProgress)
	r.Post("/completion", h.AttemptCompletion)
}

// actorFromRequest reads the principal stored by the auth middleware and
// writes a 401 when there is none.
func actorFromRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (learning.Actor, bool) {
	userID, role, ok := shared.GetPrincipal(r.Context())
	if !ok || userID <= 0 {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return learning.Actor{}, false
	}
	return learning.Actor{UserID: userID, Role: role}, true
}

// GetProgress handles GET /api/learning/progress.
func (h *LearningHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}

	overview, err := h.service.GetProgress(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load progress")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, overviewToResponse(overview))
}

// SubmitProgress handles POST /api/learning/progress/{videoID}.
func (h *LearningHandler) SubmitProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}

	videoID := strings.TrimSpace(chi.URLParam(r, "videoID"))
	if videoID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Video ID is required")
		return
	}

	var req ProgressRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			shared.RespondWithError(w, r, http.StatusBadRequest, "Request body is required")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		}
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	record, err := h.service.SubmitProgress(r.Context(), actor, videoID, req.ToUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save progress")
		return
	}

	log.Debug("progress saved",
		slog.Int64("user_id", actor.UserID),
		slog.String("video_id", videoID),
		slog.Int("progress", record.Progress),
		slog.Bool("completed", record.Completed))
	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(*record))
}

// AttemptCompletion handles POST /api/learning/completion.
//
// A repeated attempt answers 200 with the existing record and
// already_completed set. Certification problems never fail the request.
func (h *LearningHandler) AttemptCompletion(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}

	outcome, err := h.service.AttemptCompletion(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete course")
		return
	}

	log.Info("completion attempt finished",
		slog.Int64("user_id", actor.UserID),
		slog.Bool("already_completed", outcome.AlreadyCompleted),
		slog.String("certification", string(outcome.Certification.Status)))

	status := http.StatusCreated
	if outcome.AlreadyCompleted {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, CompletionResponse{
		Completion:       completionToResponse(outcome.Record),
		AlreadyCompleted: outcome.AlreadyCompleted,
		Certification:    certificationToResponse(outcome.Certification),
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prepwise/interview-platform/internal/feedback"
	"github.com/prepwise/interview-platform/internal/store"
	"github.com/prepwise/interview-platform/pkg/logging"
)

type interviewStore interface {
	GetByID(ctx context.Context, id string) (*store.Interview, error)
	ListByUser(ctx context.Context, userID string, limit int32) ([]store.Interview, error)
	Create(ctx context.Context, interview *store.Interview) error
}

type feedbackStore interface {
	GetByID(ctx context.Context, id string) (*feedback.Feedback, error)
	GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*feedback.Feedback, error)
}

// InterviewHandler serves the interview and feedback read/create endpoints.
type InterviewHandler struct {
	interviews interviewStore
	feedback   feedbackStore
	logger     *logging.Logger
}

// NewInterviewHandler builds the handler.
func NewInterviewHandler(interviews interviewStore, fb feedbackStore, logger *logging.Logger) *InterviewHandler {
	if interviews == nil {
		panic("handlers: interview store cannot be nil")
	}
	if fb == nil {
		panic("handlers: feedback store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &InterviewHandler{interviews: interviews, feedback: fb, logger: logger}
}

// GetInterview returns one interview by id.
func (h *InterviewHandler) GetInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	interview, err := h.interviews.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrInterviewNotFound) {
			writeError(w, http.StatusNotFound, "interview not found")
			return
		}
		h.logger.Error("failed to fetch interview", "error", err, "interview_id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch interview")
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

// ListInterviews returns a user's interviews, newest first.
func (h *InterviewHandler) ListInterviews(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = int32(parsed)
	}

	interviews, err := h.interviews.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list interviews", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews})
}

// CreateInterview persists a new interview definition.
func (h *InterviewHandler) CreateInterview(w http.ResponseWriter, r *http.Request) {
	var interview store.Interview
	if err := json.NewDecoder(r.Body).Decode(&interview); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if interview.UserID == "" || interview.Role == "" {
		writeError(w, http.StatusBadRequest, "userId and role are required")
		return
	}

	if err := h.interviews.Create(r.Context(), &interview); err != nil {
		h.logger.Error("failed to create interview", "error", err, "user_id", interview.UserID)
		writeError(w, http.StatusInternalServerError, "failed to create interview")
		return
	}
	writeJSON(w, http.StatusCreated, interview)
}

// GetInterviewFeedback returns the feedback one user received for one
// interview.
func (h *InterviewHandler) GetInterviewFeedback(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	fb, err := h.feedback.GetByInterviewAndUser(r.Context(), interviewID, userID)
	if err != nil {
		if errors.Is(err, store.ErrFeedbackNotFound) {
			writeError(w, http.StatusNotFound, "feedback not found")
			return
		}
		h.logger.Error("failed to fetch feedback", "error", err, "interview_id", interviewID, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to fetch feedback")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// GetFeedback returns one feedback record by id.
func (h *InterviewHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fb, err := h.feedback.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrFeedbackNotFound) {
			writeError(w, http.StatusNotFound, "feedback not found")
			return
		}
		h.logger.Error("failed to fetch feedback", "error", err, "feedback_id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch feedback")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepwise/interview-platform/internal/gateway"
	"github.com/prepwise/interview-platform/internal/observability/metrics"
	"github.com/prepwise/interview-platform/internal/session"
	"github.com/prepwise/interview-platform/internal/store"
	"github.com/prepwise/interview-platform/pkg/logging"
)

type userStore interface {
	GetByID(ctx context.Context, id string) (*store.User, error)
}

// GatewayFactory builds a fresh voice-call client for each session. Each
// controller owns exactly one.
type GatewayFactory func() gateway.Client

// SessionCommand is what the browser sends over the session socket.
type SessionCommand struct {
	Type        string   `json:"type"` // "start", "stop"
	Mode        string   `json:"mode,omitempty"`
	UserName    string   `json:"userName,omitempty"`
	UserID      string   `json:"userId,omitempty"`
	InterviewID string   `json:"interviewId,omitempty"`
	FeedbackID  string   `json:"feedbackId,omitempty"`
	Questions   []string `json:"questions,omitempty"`
}

// SessionFrame is what the server pushes to the browser.
type SessionFrame struct {
	Type        string `json:"type"` // "status", "transcript", "speaking", "notice", "complete", "error"
	Status      string `json:"status,omitempty"`
	Role        string `json:"role,omitempty"`
	Content     string `json:"content,omitempty"`
	Speaking    *bool  `json:"speaking,omitempty"`
	Message     string `json:"message,omitempty"`
	InterviewID string `json:"interviewId,omitempty"`
	FeedbackID  string `json:"feedbackId,omitempty"`
	HasFeedback bool   `json:"hasFeedback,omitempty"`
}

// SessionHandlerConfig wires a SessionHandler.
type SessionHandlerConfig struct {
	Gateways   GatewayFactory
	Feedback   session.FeedbackDispatcher
	Mirror     session.TranscriptMirror
	Metrics    *metrics.SessionMetrics
	Users      userStore
	Interviews interviewStore
	Logger     *logging.Logger

	PublicKey       string
	WorkflowID      string
	AssistantID     string
	CompletionDelay time.Duration
}

// SessionHandler runs call sessions over a WebSocket: one connection drives
// one controller at a time, receiving start/stop commands and pushing status,
// transcript and completion frames back.
type SessionHandler struct {
	gateways   GatewayFactory
	feedback   session.FeedbackDispatcher
	mirror     session.TranscriptMirror
	metrics    *metrics.SessionMetrics
	users      userStore
	interviews interviewStore
	logger     *logging.Logger

	publicKey       string
	workflowID      string
	assistantID     string
	completionDelay time.Duration

	upgrader websocket.Upgrader
}

// NewSessionHandler builds the handler.
func NewSessionHandler(cfg SessionHandlerConfig) *SessionHandler {
	if cfg.Gateways == nil {
		panic("handlers: gateway factory cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SessionHandler{
		gateways:        cfg.Gateways,
		feedback:        cfg.Feedback,
		mirror:          cfg.Mirror,
		metrics:         cfg.Metrics,
		users:           cfg.Users,
		interviews:      cfg.Interviews,
		logger:          cfg.Logger.Component("session_ws"),
		publicKey:       cfg.PublicKey,
		workflowID:      cfg.WorkflowID,
		assistantID:     cfg.AssistantID,
		completionDelay: cfg.CompletionDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API sits behind the app's own origin checks.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleSession upgrades the connection and serves commands until the client
// disconnects.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := &wsSession{conn: conn}
	h.logger.Info("session socket opened", "remote", r.RemoteAddr)

	var ctrl *session.Controller
	defer func() {
		if ctrl != nil {
			_ = ctrl.RequestStop()
			ctrl.Close()
		}
		h.logger.Info("session socket closed", "remote", r.RemoteAddr)
	}()

	for {
		var cmd SessionCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Type {
		case "start":
			next, err := h.startSession(r.Context(), ctrl, sess, cmd)
			if err != nil {
				sess.send(SessionFrame{Type: "error", Message: err.Error()})
				continue
			}
			ctrl = next
		case "stop":
			if ctrl == nil {
				sess.send(SessionFrame{Type: "error", Message: "no active session"})
				continue
			}
			if err := ctrl.RequestStop(); err != nil && !errors.Is(err, session.ErrNoActiveCall) {
				sess.send(SessionFrame{Type: "error", Message: err.Error()})
			}
		default:
			sess.send(SessionFrame{Type: "error", Message: "unknown command"})
		}
	}
}

// startSession replaces the connection's controller. A previous controller
// must have finished first.
func (h *SessionHandler) startSession(ctx context.Context, prev *session.Controller, sess *wsSession, cmd SessionCommand) (*session.Controller, error) {
	if prev != nil {
		if prev.Status() != session.StatusFinished {
			return nil, session.ErrSessionActive
		}
		prev.Close()
	}

	params, err := h.buildParams(ctx, cmd)
	if err != nil {
		return nil, err
	}

	ctrl := session.NewController(session.Config{
		Gateway:         h.gateways(),
		Feedback:        h.feedback,
		Mirror:          h.mirror,
		Observer:        sess,
		Metrics:         h.metrics,
		Logger:          h.logger,
		PublicKey:       h.publicKey,
		WorkflowID:      h.workflowID,
		AssistantID:     h.assistantID,
		CompletionDelay: h.completionDelay,
	})
	if err := ctrl.RequestStart(ctx, params); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

// buildParams fills in what the command left out: the user's display name
// from their profile and the interview's question list from its record.
func (h *SessionHandler) buildParams(ctx context.Context, cmd SessionCommand) (session.StartParams, error) {
	params := session.StartParams{
		UserName:    cmd.UserName,
		UserID:      cmd.UserID,
		InterviewID: cmd.InterviewID,
		FeedbackID:  cmd.FeedbackID,
		Mode:        session.Mode(cmd.Mode),
		Questions:   cmd.Questions,
	}
	if params.Mode == "" {
		params.Mode = session.ModeInterview
	}
	if params.Mode != session.ModeInterview && params.Mode != session.ModeGenerate {
		return params, errors.New("mode must be \"interview\" or \"generate\"")
	}

	if params.UserName == "" && params.UserID != "" && h.users != nil {
		user, err := h.users.GetByID(ctx, params.UserID)
		switch {
		case err == nil:
			params.UserName = user.Name
		case errors.Is(err, store.ErrUserNotFound):
			// Anonymous is fine; the controller fills in a default.
		default:
			h.logger.Warn("failed to hydrate user name", "error", err, "user_id", params.UserID)
		}
	}

	if params.Mode == session.ModeInterview && len(params.Questions) == 0 && params.InterviewID != "" && h.interviews != nil {
		interview, err := h.interviews.GetByID(ctx, params.InterviewID)
		if err != nil {
			if errors.Is(err, store.ErrInterviewNotFound) {
				return params, errors.New("interview not found")
			}
			return params, errors.New("failed to load interview")
		}
		params.Questions = interview.Questions
	}

	return params, nil
}

// wsSession adapts one WebSocket connection to session.Observer. Gorilla
// connections allow a single concurrent writer, so every send goes through
// the mutex.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ session.Observer = (*wsSession)(nil)

func (s *wsSession) send(frame SessionFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(frame)
}

func (s *wsSession) StatusChanged(status session.Status) {
	s.send(SessionFrame{Type: "status", Status: string(status)})
}

func (s *wsSession) UtteranceAdded(u session.Utterance) {
	s.send(SessionFrame{Type: "transcript", Role: u.Role, Content: u.Content})
}

func (s *wsSession) SpeakingChanged(speaking bool) {
	s.send(SessionFrame{Type: "speaking", Speaking: &speaking})
}

func (s *wsSession) Notice(message string) {
	s.send(SessionFrame{Type: "notice", Message: message})
}

func (s *wsSession) SessionCompleted(c session.Completion) {
	s.send(SessionFrame{
		Type:        "complete",
		InterviewID: c.InterviewID,
		FeedbackID:  c.FeedbackID,
		HasFeedback: c.HasFeedback,
		Message:     c.Message,
	})
}

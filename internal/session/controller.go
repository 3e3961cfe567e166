package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepwise/interview-platform/internal/gateway"
	"github.com/prepwise/interview-platform/internal/observability/metrics"
	"github.com/prepwise/interview-platform/pkg/logging"
)

// Status is the lifecycle state of one call session.
type Status string

const (
	StatusInactive   Status = "inactive"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusFinished   Status = "finished"
)

// Mode selects what the call is for: running an interview against a fixed
// question list, or generating questions via a provider workflow.
type Mode string

const (
	ModeInterview Mode = "interview"
	ModeGenerate  Mode = "generate"
)

var (
	ErrSessionActive     = errors.New("session: call already in progress")
	ErrNoActiveCall      = errors.New("session: no call in progress")
	ErrNotConfigured     = errors.New("session: call provider not configured")
	ErrNotFinished       = errors.New("session: session has not finished")
	ErrCompletionPending = errors.New("session: completion signal not yet emitted")
)

// StartParams identify the user and interview a session runs for.
type StartParams struct {
	UserName    string
	UserID      string
	InterviewID string
	FeedbackID  string
	Mode        Mode
	Questions   []string
}

// FeedbackRequest is the read-only transcript handoff to the feedback
// pipeline.
type FeedbackRequest struct {
	InterviewID string
	UserID      string
	FeedbackID  string
	Transcript  []Utterance
}

// FeedbackDispatcher turns a finished transcript into a persisted feedback
// record and returns its id.
type FeedbackDispatcher interface {
	Generate(ctx context.Context, req FeedbackRequest) (string, error)
}

// TranscriptMirror receives transcript snapshots for live display. Advisory:
// mirror failures never affect the session.
type TranscriptMirror interface {
	Save(ctx context.Context, sessionID string, transcript []Utterance) error
	Clear(ctx context.Context, sessionID string) error
}

// Completion is the single terminal signal a session emits.
type Completion struct {
	InterviewID string
	FeedbackID  string
	HasFeedback bool
	Message     string
}

// Observer receives user-facing session updates. All methods are called
// outside the controller's lock; implementations must not call back into the
// controller synchronously from Notice or SessionCompleted.
type Observer interface {
	StatusChanged(status Status)
	UtteranceAdded(u Utterance)
	SpeakingChanged(speaking bool)
	Notice(message string)
	SessionCompleted(c Completion)
}

// Config wires a Controller.
type Config struct {
	Gateway  gateway.Client
	Feedback FeedbackDispatcher
	Mirror   TranscriptMirror
	Observer Observer
	Metrics  *metrics.SessionMetrics
	Logger   *logging.Logger

	// PublicKey and WorkflowID are checked before any start command is
	// issued; their absence is a ConfigurationMissing outcome, not a
	// provider failure discovered later.
	PublicKey  string
	WorkflowID string

	// AssistantID names a provider-hosted interviewer assistant. When set,
	// interview calls reference it instead of sending the inline assistant;
	// the question list travels through the call variables.
	AssistantID string

	// CompletionDelay spaces the completion signal for sessions that skip
	// the feedback step, so consumers can show a closing message.
	CompletionDelay time.Duration
}

// Controller owns one call session: it is the only mutator of the session's
// state and transcript, driven by gateway events delivered one at a time.
type Controller struct {
	gateway  gateway.Client
	feedback FeedbackDispatcher
	mirror   TranscriptMirror
	observer Observer
	metrics  *metrics.SessionMetrics
	logger   *logging.Logger

	publicKey       string
	workflowID      string
	assistantID     string
	completionDelay time.Duration
	sleep           func(time.Duration)

	mu          sync.Mutex
	id          string
	status      Status
	params      StartParams
	transcript  *TranscriptAccumulator
	speaking    bool
	userMessage string
	reason      string
	completed   bool
	signaled    bool
	done        chan Completion
	unsubscribe func()
}

// NewController builds a controller and subscribes it to the gateway's
// events. Call Close to unsubscribe.
func NewController(cfg Config) *Controller {
	if cfg.Gateway == nil {
		panic("session: gateway cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.CompletionDelay <= 0 {
		cfg.CompletionDelay = time.Second
	}

	c := &Controller{
		gateway:         cfg.Gateway,
		feedback:        cfg.Feedback,
		mirror:          cfg.Mirror,
		observer:        cfg.Observer,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger.Component("session"),
		publicKey:       cfg.PublicKey,
		workflowID:      cfg.WorkflowID,
		assistantID:     cfg.AssistantID,
		completionDelay: cfg.CompletionDelay,
		sleep:           time.Sleep,
		id:              uuid.New().String(),
		status:          StatusInactive,
		transcript:      NewTranscriptAccumulator(),
		done:            make(chan Completion, 1),
	}
	c.unsubscribe = cfg.Gateway.Subscribe(c)
	return c
}

// ID returns the session identifier used for transcript mirroring.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Speaking reports the advisory assistant-speaking flag.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// UserMessage returns the current user-facing message, if any.
func (c *Controller) UserMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userMessage
}

// TerminationReason returns the reason recorded when the session finished.
func (c *Controller) TerminationReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Transcript returns a snapshot of the finalized utterances so far.
func (c *Controller) Transcript() []Utterance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Snapshot()
}

// LastMessage returns the content of the most recent finalized utterance.
func (c *Controller) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.transcript.Last(); ok {
		return u.Content
	}
	return ""
}

// Done delivers the session's completion signal. Exactly one value is sent
// per session instance.
func (c *Controller) Done() <-chan Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Close unsubscribes the controller from gateway events.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// RequestStart moves the session from Inactive to Connecting and issues the
// start command. Configuration is checked before any provider traffic.
func (c *Controller) RequestStart(ctx context.Context, params StartParams) error {
	c.mu.Lock()
	if c.status != StatusInactive {
		c.mu.Unlock()
		return ErrSessionActive
	}
	if c.publicKey == "" {
		c.userMessage = msgPublicKeyMissing
		c.mu.Unlock()
		c.notify(func(o Observer) { o.Notice(msgPublicKeyMissing) })
		c.metrics.ObserveError(string(CategoryConfigurationMissing))
		return fmt.Errorf("%w: public key missing", ErrNotConfigured)
	}
	if params.Mode == ModeGenerate && c.workflowID == "" {
		c.userMessage = msgNotConfigured
		c.mu.Unlock()
		c.notify(func(o Observer) { o.Notice(msgNotConfigured) })
		c.metrics.ObserveError(string(CategoryConfigurationMissing))
		return fmt.Errorf("%w: workflow id missing", ErrNotConfigured)
	}

	c.status = StatusConnecting
	c.params = params
	c.userMessage = ""
	c.mu.Unlock()

	c.notify(func(o Observer) { o.StatusChanged(StatusConnecting) })
	c.metrics.ObserveStart(string(params.Mode))
	c.logger.Info("starting call", "session_id", c.ID(), "mode", params.Mode, "interview_id", params.InterviewID)

	if err := c.gateway.Start(ctx, c.buildStartConfig(params)); err != nil {
		cls := Classify(err)
		c.mu.Lock()
		reverted := c.status == StatusConnecting
		if reverted {
			c.status = StatusInactive
			c.userMessage = cls.UserMessage
		}
		c.mu.Unlock()
		// Gateway events may have moved the session on already; only
		// broadcast when this failure is what ended the attempt.
		if reverted {
			c.notify(func(o Observer) {
				o.StatusChanged(StatusInactive)
				o.Notice(cls.UserMessage)
			})
		}
		c.metrics.ObserveError(string(cls.Category))
		return fmt.Errorf("session: start failed: %w", err)
	}
	return nil
}

// RequestStop finishes the session immediately. It does not wait for the
// gateway's own end event; a trailing call-end or error from the provider is
// ignored once the session is terminal.
func (c *Controller) RequestStop() error {
	c.mu.Lock()
	if c.status != StatusConnecting && c.status != StatusActive {
		c.mu.Unlock()
		return ErrNoActiveCall
	}
	after := c.finishLocked("stopped")
	c.mu.Unlock()
	after()

	if err := c.gateway.Stop(); err != nil && !errors.Is(err, gateway.ErrNotConnected) {
		c.logger.Warn("gateway stop failed", "session_id", c.ID(), "error", err)
	}
	return nil
}

// Reset returns a Finished session to Inactive with a fresh transcript. It
// is only valid once the completion signal has been emitted.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusFinished {
		return ErrNotFinished
	}
	if !c.signaled {
		return ErrCompletionPending
	}
	c.id = uuid.New().String()
	c.status = StatusInactive
	c.transcript = NewTranscriptAccumulator()
	c.params = StartParams{}
	c.speaking = false
	c.userMessage = ""
	c.reason = ""
	c.completed = false
	c.signaled = false
	c.done = make(chan Completion, 1)
	return nil
}

// HandleEvent is the only mutator besides RequestStart/RequestStop. Events
// are processed to completion, one at a time.
func (c *Controller) HandleEvent(event gateway.Event) {
	c.mu.Lock()
	if c.status == StatusFinished {
		// Terminal: the provider may emit trailing events after a stop.
		c.mu.Unlock()
		return
	}

	after := func() {}
	switch e := event.(type) {
	case gateway.CallStartEvent:
		if c.status == StatusConnecting {
			c.status = StatusActive
			c.userMessage = ""
			after = func() {
				c.notify(func(o Observer) { o.StatusChanged(StatusActive) })
			}
		}

	case gateway.CallEndEvent:
		after = c.finishLocked(e.Reason)

	case gateway.SpeechStartEvent:
		c.speaking = true
		after = func() {
			c.notify(func(o Observer) { o.SpeakingChanged(true) })
		}

	case gateway.SpeechEndEvent:
		c.speaking = false
		after = func() {
			c.notify(func(o Observer) { o.SpeakingChanged(false) })
		}

	case gateway.MessageEvent:
		after = c.handleMessageLocked(e)

	case gateway.ErrorEvent:
		after = c.handleClassifiedLocked(Classify(e.Raw))
	}
	c.mu.Unlock()
	after()
}

func (c *Controller) handleMessageLocked(e gateway.MessageEvent) func() {
	switch e.Type {
	case gateway.MessageTypeTranscript:
		if e.TranscriptType != gateway.TranscriptFinal {
			// Interim guesses are revisable; never appended.
			return func() {}
		}
		u := Utterance{Role: e.Role, Content: e.Transcript}
		if !c.transcript.Append(u) {
			return func() {}
		}
		snapshot := c.transcript.Snapshot()
		return func() {
			c.notify(func(o Observer) { o.UtteranceAdded(u) })
			c.mirrorTranscript(snapshot)
		}

	case gateway.MessageTypeError:
		var raw any
		if len(e.Error) > 0 {
			if err := json.Unmarshal(e.Error, &raw); err != nil {
				raw = string(e.Error)
			}
		}
		return c.handleClassifiedLocked(Classify(raw))

	case gateway.MessageTypeCallEnd:
		return c.finishLocked("")
	}
	return func() {}
}

func (c *Controller) handleClassifiedLocked(cls ClassifiedError) func() {
	c.metrics.ObserveError(string(cls.Category))

	switch cls.Category {
	case CategoryGracefulEnd:
		// Normal termination reported on the error channel.
		return c.finishLocked("graceful")

	case CategoryPermissionDenied, CategoryConfigurationMissing, CategoryProviderRejected:
		c.status = StatusInactive
		c.speaking = false
		c.userMessage = cls.UserMessage
		sessionID := c.id
		return func() {
			c.logger.Warn("call attempt failed",
				"session_id", sessionID,
				"category", cls.Category,
				"raw", fmt.Sprintf("%v", cls.Raw),
			)
			c.notify(func(o Observer) {
				o.StatusChanged(StatusInactive)
				o.Notice(cls.UserMessage)
			})
		}

	default:
		// Unknown: logged, no state change unless a terminal event follows.
		sessionID := c.id
		return func() {
			c.logger.Warn("unclassified provider error",
				"session_id", sessionID,
				"raw", fmt.Sprintf("%v", cls.Raw),
			)
		}
	}
}

// finishLocked transitions to Finished and, exactly once per session, kicks
// off the completion work. Callers hold c.mu; the returned func runs after
// it is released.
func (c *Controller) finishLocked(reason string) func() {
	if c.status == StatusFinished {
		return func() {}
	}
	c.status = StatusFinished
	c.reason = reason
	c.speaking = false

	if c.completed {
		return func() {}
	}
	c.completed = true

	params := c.params
	transcript := c.transcript.Snapshot()
	sessionID := c.id

	return func() {
		c.metrics.ObserveFinished(reason)
		c.logger.Info("call finished",
			"session_id", sessionID,
			"reason", reason,
			"transcript_len", len(transcript),
		)
		c.notify(func(o Observer) { o.StatusChanged(StatusFinished) })
		go c.complete(params, transcript, sessionID)
	}
}

// complete runs off the event goroutine: it may suspend on the feedback
// pipeline or on the completion delay.
func (c *Controller) complete(params StartParams, transcript []Utterance, sessionID string) {
	defer c.clearMirror(sessionID)

	switch {
	case params.Mode == ModeGenerate:
		c.sleep(c.completionDelay)
		c.emit(Completion{Message: msgCallEnded})

	case c.feedback == nil || len(transcript) == 0 || params.InterviewID == "" || params.UserID == "":
		if params.InterviewID == "" || params.UserID == "" {
			c.logger.Warn("missing ids for feedback, skipping", "session_id", sessionID)
		}
		c.sleep(c.completionDelay)
		c.emit(Completion{InterviewID: params.InterviewID, Message: msgCallEnded})

	default:
		req := FeedbackRequest{
			InterviewID: params.InterviewID,
			UserID:      params.UserID,
			FeedbackID:  params.FeedbackID,
			Transcript:  transcript,
		}
		feedbackID, err := c.feedback.Generate(context.Background(), req)
		if err != nil {
			// The session must still complete; feedback failure cannot
			// leave the state machine stuck.
			c.logger.Error("feedback generation failed", "session_id", sessionID, "error", err)
			c.emit(Completion{InterviewID: params.InterviewID, Message: msgFeedbackFailed})
			return
		}
		c.emit(Completion{
			InterviewID: params.InterviewID,
			FeedbackID:  feedbackID,
			HasFeedback: true,
			Message:     msgInterviewCompleted,
		})
	}
}

func (c *Controller) emit(comp Completion) {
	c.mu.Lock()
	c.userMessage = comp.Message
	c.signaled = true
	done := c.done
	c.mu.Unlock()

	c.metrics.ObserveCompletion(comp.HasFeedback)
	select {
	case done <- comp:
	default:
	}
	c.notify(func(o Observer) { o.SessionCompleted(comp) })
}

func (c *Controller) notify(fn func(Observer)) {
	if c.observer != nil {
		fn(c.observer)
	}
}

func (c *Controller) mirrorTranscript(snapshot []Utterance) {
	if c.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.mirror.Save(ctx, c.ID(), snapshot); err != nil {
		c.logger.Warn("transcript mirror save failed", "error", err)
	}
}

func (c *Controller) clearMirror(sessionID string) {
	if c.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.mirror.Clear(ctx, sessionID); err != nil {
		c.logger.Warn("transcript mirror clear failed", "error", err)
	}
}

func (c *Controller) buildStartConfig(params StartParams) gateway.StartConfig {
	if params.Mode == ModeGenerate {
		userID := params.UserID
		if userID == "" {
			userID = "anonymous"
		}
		return gateway.StartConfig{
			WorkflowID: c.workflowID,
			Variables: map[string]string{
				"username": params.UserName,
				"userid":   userID,
			},
		}
	}

	if c.assistantID != "" {
		return gateway.StartConfig{
			AssistantID: c.assistantID,
			Variables: map[string]string{
				"username":  params.UserName,
				"userid":    params.UserID,
				"questions": formatQuestions(params.Questions),
			},
		}
	}

	assistant := interviewer
	assistant.SystemPrompt = strings.ReplaceAll(
		assistant.SystemPrompt, "{{questions}}", formatQuestions(params.Questions),
	)
	return gateway.StartConfig{
		Assistant: &assistant,
		Variables: map[string]string{
			"username": params.UserName,
			"userid":   params.UserID,
		},
	}
}

func formatQuestions(questions []string) string {
	if len(questions) == 0 {
		questions = defaultQuestions
	}
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, "- "+q)
	}
	return strings.Join(lines, "\n")
}

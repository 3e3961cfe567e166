package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prepwise/interview-platform/pkg/logging"
)

// VapiClient speaks the provider's WebSocket protocol: a start command frame,
// then a stream of event frames until the call ends or Stop is issued.
type VapiClient struct {
	publicKey string
	baseURL   string
	dialer    *websocket.Dialer
	logger    *logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	subMu   sync.Mutex
	nextSub int
	subs    map[int]Handler
}

var _ Client = (*VapiClient)(nil)

// NewVapiClient builds a client for the given provider endpoint. The public
// key authenticates the browser-grade (client-side) API surface.
func NewVapiClient(publicKey, baseURL string, logger *logging.Logger) *VapiClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &VapiClient{
		publicKey: publicKey,
		baseURL:   baseURL,
		dialer:    websocket.DefaultDialer,
		logger:    logger.Component("gateway"),
		subs:      make(map[int]Handler),
	}
}

// startFrame is the first frame sent on a new connection.
type startFrame struct {
	Type           string            `json:"type"` // always "start"
	WorkflowID     string            `json:"workflowId,omitempty"`
	Assistant      *AssistantConfig  `json:"assistant,omitempty"`
	AssistantID    string            `json:"assistantId,omitempty"`
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// eventFrame is one provider-to-client frame. Shapes vary by type; unused
// fields are simply absent.
type eventFrame struct {
	Type    string          `json:"type"`
	Reason  string          `json:"reason,omitempty"`
	Message *messageFrame   `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

type messageFrame struct {
	Type           string          `json:"type"`
	TranscriptType string          `json:"transcriptType,omitempty"`
	Role           string          `json:"role,omitempty"`
	Transcript     string          `json:"transcript,omitempty"`
	Error          json.RawMessage `json:"error,omitempty"`
}

// Start dials the provider and issues the start command.
func (c *VapiClient) Start(ctx context.Context, cfg StartConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("gateway: invalid base URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("publicKey", c.publicKey)
	endpoint.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("gateway: dial failed: %w", err)
	}

	frame := startFrame{
		Type:           "start",
		WorkflowID:     cfg.WorkflowID,
		Assistant:      cfg.Assistant,
		AssistantID:    cfg.AssistantID,
		VariableValues: cfg.Variables,
	}
	if err := conn.WriteJSON(frame); err != nil {
		_ = conn.Close()
		return fmt.Errorf("gateway: start command failed: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Stop sends the stop command and closes the connection. The provider may
// still emit a trailing call-end before the socket drops; subscribers must
// tolerate it.
func (c *VapiClient) Stop() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("gateway: stop command failed: %w", err)
	}
	return conn.Close()
}

// Subscribe registers h for all events from this client.
func (c *VapiClient) Subscribe(h Handler) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = h
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *VapiClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			active := c.conn == conn
			if active {
				c.conn = nil
			}
			c.mu.Unlock()

			// A read error after Stop is just the socket closing under us.
			if !active {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.dispatch(CallEndEvent{})
			} else {
				c.logger.Warn("call connection lost", "error", err)
				c.dispatch(CallEndEvent{Reason: "connection lost"})
			}
			return
		}

		var frame eventFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("undecodable provider frame", "error", err)
			continue
		}
		if event, ok := frame.toEvent(); ok {
			c.dispatch(event)
		} else {
			c.logger.Debug("ignoring unrecognized provider frame", "type", frame.Type)
		}
	}
}

func (f *eventFrame) toEvent() (Event, bool) {
	switch f.Type {
	case "call-start":
		return CallStartEvent{}, true
	case "call-end":
		return CallEndEvent{Reason: f.Reason}, true
	case "speech-start":
		return SpeechStartEvent{}, true
	case "speech-end":
		return SpeechEndEvent{}, true
	case "error":
		var raw any
		if len(f.Error) > 0 {
			_ = json.Unmarshal(f.Error, &raw)
		}
		return ErrorEvent{Raw: raw}, true
	case "message":
		if f.Message == nil {
			return nil, false
		}
		return MessageEvent{
			Type:           MessageEventType(f.Message.Type),
			TranscriptType: f.Message.TranscriptType,
			Role:           f.Message.Role,
			Transcript:     f.Message.Transcript,
			Error:          f.Message.Error,
		}, true
	default:
		return nil, false
	}
}

func (c *VapiClient) dispatch(event Event) {
	c.subMu.Lock()
	handlers := make([]Handler, 0, len(c.subs))
	for _, h := range c.subs {
		handlers = append(handlers, h)
	}
	c.subMu.Unlock()

	for _, h := range handlers {
		h.HandleEvent(event)
	}
}

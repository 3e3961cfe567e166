package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepwise/interview-platform/internal/gateway"
	"github.com/prepwise/interview-platform/pkg/logging"
)

type fakeGateway struct {
	mu       sync.Mutex
	handlers []gateway.Handler
	starts   []gateway.StartConfig
	startErr error
	stops    int
}

func (g *fakeGateway) Start(_ context.Context, cfg gateway.StartConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts = append(g.starts, cfg)
	return g.startErr
}

func (g *fakeGateway) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stops++
	return nil
}

func (g *fakeGateway) Subscribe(h gateway.Handler) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, h)
	return func() {}
}

func (g *fakeGateway) deliver(e gateway.Event) {
	g.mu.Lock()
	handlers := append([]gateway.Handler(nil), g.handlers...)
	g.mu.Unlock()
	for _, h := range handlers {
		h.HandleEvent(e)
	}
}

func newSessionTestHandler(gw *fakeGateway) *SessionHandler {
	return NewSessionHandler(SessionHandlerConfig{
		Gateways:        func() gateway.Client { return gw },
		Logger:          logging.Default(),
		PublicKey:       "pk-test",
		WorkflowID:      "wf-test",
		CompletionDelay: time.Millisecond,
	})
}

func dialSession(t *testing.T, h *SessionHandler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleSession))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial session socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd SessionCommand) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("failed to send command: %v", err)
	}
}

// waitFrame reads frames until one of the wanted type arrives.
func waitFrame(t *testing.T, conn *websocket.Conn, frameType string) SessionFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame SessionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %q frame: %v", frameType, err)
		}
		if frame.Type == frameType {
			return frame
		}
	}
}

func TestSessionSocket_StartDeliversStatusAndTranscript(t *testing.T) {
	gw := &fakeGateway{}
	conn := dialSession(t, newSessionTestHandler(gw))

	sendCommand(t, conn, SessionCommand{Type: "start", Mode: "interview", UserName: "Ada", Questions: []string{"Q1"}})

	frame := waitFrame(t, conn, "status")
	if frame.Status != "connecting" {
		t.Fatalf("expected connecting, got %s", frame.Status)
	}

	gw.deliver(gateway.CallStartEvent{})
	frame = waitFrame(t, conn, "status")
	if frame.Status != "active" {
		t.Fatalf("expected active, got %s", frame.Status)
	}

	gw.deliver(gateway.MessageEvent{
		Type:           gateway.MessageTypeTranscript,
		TranscriptType: gateway.TranscriptFinal,
		Role:           "assistant",
		Transcript:     "Tell me about yourself.",
	})
	frame = waitFrame(t, conn, "transcript")
	if frame.Role != "assistant" || frame.Content != "Tell me about yourself." {
		t.Fatalf("unexpected transcript frame: %#v", frame)
	}
}

func TestSessionSocket_StartWhileActiveRejected(t *testing.T) {
	gw := &fakeGateway{}
	conn := dialSession(t, newSessionTestHandler(gw))

	sendCommand(t, conn, SessionCommand{Type: "start", Mode: "interview"})
	waitFrame(t, conn, "status")

	sendCommand(t, conn, SessionCommand{Type: "start", Mode: "interview"})
	frame := waitFrame(t, conn, "error")
	if !strings.Contains(frame.Message, "already") {
		t.Fatalf("expected session-active error, got %q", frame.Message)
	}
}

func TestSessionSocket_StopEmitsCompletion(t *testing.T) {
	gw := &fakeGateway{}
	conn := dialSession(t, newSessionTestHandler(gw))

	sendCommand(t, conn, SessionCommand{Type: "start", Mode: "interview"})
	waitFrame(t, conn, "status")
	gw.deliver(gateway.CallStartEvent{})

	sendCommand(t, conn, SessionCommand{Type: "stop"})

	frame := waitFrame(t, conn, "status")
	for frame.Status != "finished" {
		frame = waitFrame(t, conn, "status")
	}

	complete := waitFrame(t, conn, "complete")
	if complete.HasFeedback {
		t.Fatal("expected completion without feedback for empty transcript")
	}
}

func TestSessionSocket_StopWithoutSessionReturnsError(t *testing.T) {
	conn := dialSession(t, newSessionTestHandler(&fakeGateway{}))

	sendCommand(t, conn, SessionCommand{Type: "stop"})
	frame := waitFrame(t, conn, "error")
	if frame.Message != "no active session" {
		t.Fatalf("unexpected error message: %q", frame.Message)
	}
}

func TestSessionSocket_UnknownCommand(t *testing.T) {
	conn := dialSession(t, newSessionTestHandler(&fakeGateway{}))

	sendCommand(t, conn, SessionCommand{Type: "bogus"})
	frame := waitFrame(t, conn, "error")
	if frame.Message != "unknown command" {
		t.Fatalf("unexpected error message: %q", frame.Message)
	}
}

func TestSessionSocket_InvalidModeRejected(t *testing.T) {
	conn := dialSession(t, newSessionTestHandler(&fakeGateway{}))

	sendCommand(t, conn, SessionCommand{Type: "start", Mode: "karaoke"})
	frame := waitFrame(t, conn, "error")
	if !strings.Contains(frame.Message, "mode") {
		t.Fatalf("unexpected error message: %q", frame.Message)
	}
}

func TestSessionFrame_SpeakingSerializesExplicitFalse(t *testing.T) {
	speaking := false
	data, err := json.Marshal(SessionFrame{Type: "speaking", Speaking: &speaking})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"speaking":false`) {
		t.Fatalf("expected explicit false, got %s", data)
	}
}

package gateway

import (
	"context"
	"errors"
)

var (
	// ErrStartConfigInvalid indicates the start configuration did not name
	// exactly one call target.
	ErrStartConfigInvalid = errors.New("gateway: exactly one of assistant, assistant id, or workflow must be set")

	// ErrNotConnected indicates a command was issued with no live call.
	ErrNotConnected = errors.New("gateway: no active call")
)

// AssistantConfig is the fixed interviewer configuration used for
// question-driven interview calls.
type AssistantConfig struct {
	Name          string `json:"name"`
	Model         string `json:"model"`
	Voice         string `json:"voice"`
	FirstMessage  string `json:"firstMessage"`
	SystemPrompt  string `json:"systemPrompt"`
	TranscriberID string `json:"transcriber,omitempty"`
}

// StartConfig describes one call. Exactly one call target is supplied per
// call: an inline Assistant, a hosted AssistantID, or a WorkflowID.
type StartConfig struct {
	Assistant   *AssistantConfig
	AssistantID string
	WorkflowID  string

	// Variables always include "username" and "userid".
	Variables map[string]string
}

// Validate enforces the one-of contract.
func (c StartConfig) Validate() error {
	targets := 0
	if c.Assistant != nil {
		targets++
	}
	if c.AssistantID != "" {
		targets++
	}
	if c.WorkflowID != "" {
		targets++
	}
	if targets != 1 {
		return ErrStartConfigInvalid
	}
	return nil
}

// Client is the injectable handle to the real-time call provider. One Client
// drives at most one call at a time.
type Client interface {
	// Start issues the start command. It returns once the provider accepted
	// the command; the call becoming live is reported via CallStartEvent.
	Start(ctx context.Context, cfg StartConfig) error

	// Stop issues the stop command. Safe to call when no call is live.
	Stop() error

	// Subscribe registers a handler for this client's events and returns a
	// function that unregisters it.
	Subscribe(h Handler) (unsubscribe func())
}

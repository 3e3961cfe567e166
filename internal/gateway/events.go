package gateway

import "encoding/json"

// Event is the closed set of notifications a call provider delivers for one
// session. Handlers switch over the concrete types; the compiler keeps the
// set exhaustive.
type Event interface {
	isEvent()
}

// CallStartEvent signals the provider established the call.
type CallStartEvent struct{}

// CallEndEvent signals the provider tore the call down.
type CallEndEvent struct {
	Reason string
}

// MessageEventType discriminates the payloads carried on the message channel.
type MessageEventType string

const (
	MessageTypeTranscript MessageEventType = "transcript"
	MessageTypeError      MessageEventType = "error"
	MessageTypeCallEnd    MessageEventType = "call-end"
)

// TranscriptFinal marks a transcript the provider will not revise.
const TranscriptFinal = "final"

// MessageEvent carries content payloads: transcripts, in-band errors, and
// provider-initiated call teardown.
type MessageEvent struct {
	Type           MessageEventType
	TranscriptType string
	Role           string
	Transcript     string
	Error          json.RawMessage
}

// SpeechStartEvent signals the assistant started speaking. Advisory only.
type SpeechStartEvent struct{}

// SpeechEndEvent signals the assistant stopped speaking. Advisory only.
type SpeechEndEvent struct{}

// ErrorEvent carries a raw provider error. The payload shape is not
// specified by the provider and may be empty.
type ErrorEvent struct {
	Raw any
}

func (CallStartEvent) isEvent()   {}
func (CallEndEvent) isEvent()     {}
func (MessageEvent) isEvent()     {}
func (SpeechStartEvent) isEvent() {}
func (SpeechEndEvent) isEvent()   {}
func (ErrorEvent) isEvent()       {}

// Handler consumes gateway events. Events for one session are delivered one
// at a time; HandleEvent runs to completion before the next delivery.
type Handler interface {
	HandleEvent(event Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(event Event)

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(event Event) { f(event) }

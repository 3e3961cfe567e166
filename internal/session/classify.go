package session

import (
	"encoding/json"
	"strings"
)

// ErrorCategory is the closed set of outcomes the state machine can see for
// a raw provider error.
type ErrorCategory string

const (
	// CategoryGracefulEnd is not a fault: the provider reported a normal
	// hangup on its error channel.
	CategoryGracefulEnd ErrorCategory = "graceful_end"

	// CategoryPermissionDenied means the user must re-authorize a local
	// resource (microphone). Recoverable by retrying.
	CategoryPermissionDenied ErrorCategory = "permission_denied"

	// CategoryConfigurationMissing means a credential or workflow id is
	// absent. Fatal for this attempt; requires an operator fix.
	CategoryConfigurationMissing ErrorCategory = "configuration_missing"

	// CategoryProviderRejected means the provider refused the start command.
	CategoryProviderRejected ErrorCategory = "provider_rejected"

	// CategoryUnknown is logged and otherwise ignored unless a terminal
	// event also arrives.
	CategoryUnknown ErrorCategory = "unknown"
)

// User-facing messages per category. Every terminal path shows exactly one
// of these, never a raw provider payload.
const (
	msgCallEnded           = "The call has ended."
	msgMicrophoneRequired  = "Microphone access is required for the interview. Please allow microphone access and try again."
	msgWorkflowUnavailable = "Interview generation is currently unavailable. The workflow configuration may need to be updated."
	msgStartRejected       = "Failed to start interview generation. Please contact support."
	msgNotConfigured       = "Interview generation is not configured. Please contact support."
	msgCallFailed          = "Call failed. Please try again."
	msgFeedbackFailed      = "Failed to generate feedback."
	msgInterviewCompleted  = "Interview completed! Processing feedback..."
	msgPublicKeyMissing    = "Call provider public key is not configured. Please contact support."
)

// ClassifiedError is the categorized form of a raw provider error payload.
// Derived, never persisted.
type ClassifiedError struct {
	Category    ErrorCategory
	UserMessage string
	Raw         any
}

// Graceful reports whether this outcome is a normal termination rather than
// a fault.
func (e ClassifiedError) Graceful() bool {
	return e.Category == CategoryGracefulEnd
}

// Classify maps a raw, possibly malformed provider error into a categorized
// outcome. The ordering is load-bearing: the provider overloads the same
// error channel for benign hangups and real faults, so the graceful-end
// checks run before everything else.
func Classify(raw any) ClassifiedError {
	if isEmptyPayload(raw) {
		return ClassifiedError{Category: CategoryGracefulEnd, UserMessage: msgCallEnded, Raw: raw}
	}

	text := stringify(raw)
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "ejection", "ejected", "meeting has ended", "meeting ended"):
		return ClassifiedError{Category: CategoryGracefulEnd, UserMessage: msgCallEnded, Raw: raw}

	case containsAny(lower, "permission", "microphone", "getusermedia", "notallowederror"):
		return ClassifiedError{Category: CategoryPermissionDenied, UserMessage: msgMicrophoneRequired, Raw: raw}

	case strings.Contains(lower, "start-method-error") || isStartMethodError(raw):
		msg := msgStartRejected
		if startMethodStatus(raw) == 400 {
			msg = msgWorkflowUnavailable
		}
		return ClassifiedError{Category: CategoryProviderRejected, UserMessage: msg, Raw: raw}

	case containsAny(lower, "not configured", "missing api key", "key is missing"):
		msg := msgNotConfigured
		if m := payloadMessage(raw); m != "" {
			msg = m
		}
		return ClassifiedError{Category: CategoryConfigurationMissing, UserMessage: msg, Raw: raw}

	default:
		msg := payloadMessage(raw)
		if msg == "" {
			msg = msgCallFailed
		}
		return ClassifiedError{Category: CategoryUnknown, UserMessage: msg, Raw: raw}
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// isEmptyPayload treats nil and structurally empty payloads as absent. The
// provider is known to emit {} and null on normal hangups.
func isEmptyPayload(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(v)
		return s == "" || s == "{}" || s == "null"
	case json.RawMessage:
		s := strings.TrimSpace(string(v))
		return s == "" || s == "{}" || s == "null"
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// stringify renders the payload for pattern matching: an explicit message
// field when present, otherwise the structured serialization so nested
// fields still match.
func stringify(raw any) string {
	switch v := raw.(type) {
	case error:
		return v.Error()
	case string:
		return v
	}
	if msg := payloadMessage(raw); msg != "" {
		if data, err := json.Marshal(raw); err == nil {
			// Keep both: phrases can live in either place.
			return msg + " " + string(data)
		}
		return msg
	}
	if data, err := json.Marshal(raw); err == nil {
		return string(data)
	}
	return ""
}

func payloadMessage(raw any) string {
	switch v := raw.(type) {
	case error:
		return v.Error()
	case string:
		return strings.TrimSpace(v)
	}
	m := asMap(raw)
	if m == nil {
		return ""
	}
	for _, key := range []string{"message", "msg", "errorMsg"} {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func asMap(raw any) map[string]any {
	if m, ok := raw.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func isStartMethodError(raw any) bool {
	m := asMap(raw)
	if m == nil {
		return false
	}
	t, _ := m["type"].(string)
	return t == "start-method-error"
}

// startMethodStatus digs the HTTP-like status out of a start-method
// rejection. Returns 0 when absent.
func startMethodStatus(raw any) int {
	m := asMap(raw)
	if m == nil {
		return 0
	}
	inner, ok := m["error"].(map[string]any)
	if !ok {
		return 0
	}
	if status, ok := inner["status"].(float64); ok {
		return int(status)
	}
	return 0
}

package session

import "strings"

// Utterance is one finalized turn of speech converted to text. Immutable
// once appended.
type Utterance struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Utterance roles. The provider only ever attributes these three.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// TranscriptAccumulator is the ordered, append-only log of finalized
// utterances for one session. It is owned by the controller and not safe for
// concurrent use on its own.
type TranscriptAccumulator struct {
	utterances []Utterance
}

// NewTranscriptAccumulator returns an empty accumulator.
func NewTranscriptAccumulator() *TranscriptAccumulator {
	return &TranscriptAccumulator{}
}

// Append adds an utterance to the log. Utterances with an empty role or
// empty content are rejected; the return value reports whether the
// utterance was appended.
func (a *TranscriptAccumulator) Append(u Utterance) bool {
	if strings.TrimSpace(u.Role) == "" || strings.TrimSpace(u.Content) == "" {
		return false
	}
	a.utterances = append(a.utterances, u)
	return true
}

// Len reports the number of appended utterances.
func (a *TranscriptAccumulator) Len() int {
	return len(a.utterances)
}

// Last returns the most recent utterance, if any.
func (a *TranscriptAccumulator) Last() (Utterance, bool) {
	if len(a.utterances) == 0 {
		return Utterance{}, false
	}
	return a.utterances[len(a.utterances)-1], true
}

// Snapshot returns a copy of the full ordered sequence. Callers may hold the
// copy across further appends.
func (a *TranscriptAccumulator) Snapshot() []Utterance {
	out := make([]Utterance, len(a.utterances))
	copy(out, a.utterances)
	return out
}

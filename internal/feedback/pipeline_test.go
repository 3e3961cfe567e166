package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/interview-platform/internal/session"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	lastDoc  string
	response *Generated
	err      error
}

func (g *fakeGenerator) Score(_ context.Context, transcript string) (*Generated, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls += 1
	g.lastDoc = transcript
	if g.err != nil {
		return nil, g.err
	}
	return g.response, nil
}

// fakeStore keeps records by id, mimicking last-write-wins upserts.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*Feedback
	nextID  string
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*Feedback), nextID: "generated-id"}
}

func (s *fakeStore) Put(_ context.Context, id string, fb *Feedback) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if id == "" {
		id = s.nextID
	}
	stored := *fb
	stored.ID = id
	s.records[id] = &stored
	return id, nil
}

func intPtr(v int) *int { return &v }

func transcript() []session.Utterance {
	return []session.Utterance{
		{Role: session.RoleAssistant, Content: "Tell me about yourself"},
		{Role: session.RoleUser, Content: "I build distributed systems"},
	}
}

func fullResponse() *Generated {
	return &Generated{
		TotalScore: intPtr(82),
		CategoryScores: []CategoryScore{
			{Name: "Communication Skills", Score: 85, Comment: "clear"},
			{Name: "Technical Knowledge", Score: 80, Comment: "solid"},
		},
		Strengths:           []string{"Concrete examples", "Calm delivery", "Good structure"},
		AreasForImprovement: []string{"Quantify impact", "Slow down", "Ask questions"},
		FinalAssessment:     "A strong candidate with clear communication.",
	}
}

func TestGenerateHappyPath(t *testing.T) {
	gen := &fakeGenerator{response: fullResponse()}
	store := newFakeStore()
	p := NewPipeline(gen, store, nil, nil)

	id, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		Transcript:  transcript(),
	})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", id)

	stored := store.records[id]
	require.NotNil(t, stored)
	assert.Equal(t, 82, stored.TotalScore)
	assert.Equal(t, "int-1", stored.InterviewID)
	assert.Equal(t, "user-1", stored.UserID)
	assert.NotEmpty(t, stored.CreatedAt)

	assert.Contains(t, gen.lastDoc, "- assistant: Tell me about yourself\n")
	assert.Contains(t, gen.lastDoc, "- user: I build distributed systems\n")
}

func TestGenerateRejectsMissingIDsWithoutScoring(t *testing.T) {
	tests := []struct {
		name        string
		interviewID string
		userID      string
	}{
		{"missing interview id", "", "user-1"},
		{"missing user id", "int-1", ""},
		{"whitespace ids", "  ", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{response: fullResponse()}
			p := NewPipeline(gen, newFakeStore(), nil, nil)

			_, err := p.Generate(context.Background(), session.FeedbackRequest{
				InterviewID: tt.interviewID,
				UserID:      tt.userID,
				Transcript:  transcript(),
			})
			assert.ErrorIs(t, err, ErrMissingIDs)
			assert.Equal(t, 0, gen.calls, "scoring service must not be invoked")
		})
	}
}

func TestGenerateRejectsEmptyTranscript(t *testing.T) {
	gen := &fakeGenerator{response: fullResponse()}
	p := NewPipeline(gen, newFakeStore(), nil, nil)

	_, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
	})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	assert.Equal(t, 0, gen.calls)
}

func TestGenerateRepairsMissingFields(t *testing.T) {
	gen := &fakeGenerator{response: &Generated{
		CategoryScores: []CategoryScore{{Name: "Communication Skills", Score: 70, Comment: "fine"}},
	}}
	store := newFakeStore()
	p := NewPipeline(gen, store, nil, nil)

	id, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		Transcript:  transcript(),
	})
	require.NoError(t, err, "repair substitutes, it never fails")

	stored := store.records[id]
	require.NotNil(t, stored)
	assert.Equal(t, fallbackStrengths, stored.Strengths)
	assert.Equal(t, fallbackImprovements, stored.AreasForImprovement)
	assert.Equal(t, fallbackAssessment, stored.FinalAssessment)
	assert.Equal(t, fallbackTotalScore, stored.TotalScore)
	assert.Len(t, stored.CategoryScores, 1, "present fields pass through untouched")
}

func TestGenerateKeepsZeroTotalScore(t *testing.T) {
	resp := fullResponse()
	resp.TotalScore = intPtr(0)
	gen := &fakeGenerator{response: resp}
	store := newFakeStore()
	p := NewPipeline(gen, store, nil, nil)

	id, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		Transcript:  transcript(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.records[id].TotalScore, "an explicit 0 is not a missing score")
}

func TestGenerateNilResponseFullyRepaired(t *testing.T) {
	gen := &fakeGenerator{response: nil}
	store := newFakeStore()
	p := NewPipeline(gen, store, nil, nil)

	id, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		Transcript:  transcript(),
	})
	require.NoError(t, err)

	stored := store.records[id]
	assert.NotEmpty(t, stored.Strengths)
	assert.NotEmpty(t, stored.AreasForImprovement)
	assert.NotEmpty(t, stored.FinalAssessment)
	assert.NotNil(t, stored.CategoryScores)
}

func TestGenerateUpsertIsIdempotent(t *testing.T) {
	store := newFakeStore()

	first := &fakeGenerator{response: fullResponse()}
	p1 := NewPipeline(first, store, nil, nil)
	id1, err := p1.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		FeedbackID:  "fb-fixed",
		Transcript:  transcript(),
	})
	require.NoError(t, err)
	require.Equal(t, "fb-fixed", id1)

	second := &fakeGenerator{response: &Generated{}}
	p2 := NewPipeline(second, store, nil, nil)
	id2, err := p2.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		FeedbackID:  "fb-fixed",
		Transcript:  transcript(),
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	assert.Len(t, store.records, 1, "same id must overwrite, not duplicate")
	assert.Equal(t, fallbackAssessment, store.records["fb-fixed"].FinalAssessment,
		"record reflects the second call's fallback-applied content")
}

func TestGenerateScoringFailureIsFatal(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	store := newFakeStore()
	p := NewPipeline(gen, store, nil, nil)

	_, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		Transcript:  transcript(),
	})
	require.Error(t, err)
	assert.Empty(t, store.records, "no partial writes on scoring failure")
}

func TestGeneratePersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("table throttled")
	p := NewPipeline(&fakeGenerator{response: fullResponse()}, store, nil, nil)

	_, err := p.Generate(context.Background(), session.FeedbackRequest{
		InterviewID: "int-1",
		UserID:      "user-1",
		Transcript:  transcript(),
	})
	require.Error(t, err)
	assert.Empty(t, store.records)
}

func TestFormatTranscriptPreservesOrder(t *testing.T) {
	doc := FormatTranscript([]session.Utterance{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	})
	assert.Equal(t, "- user: one\n- assistant: two\n- user: three\n", doc)
}

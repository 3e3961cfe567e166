package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prepwise/interview-platform/internal/observability/metrics"
	"github.com/prepwise/interview-platform/internal/session"
	"github.com/prepwise/interview-platform/pkg/logging"
)

var (
	// ErrMissingIDs indicates the request lacked an interview or user id.
	// Rejected before any external call.
	ErrMissingIDs = errors.New("feedback: interview id and user id are required")

	// ErrEmptyTranscript indicates the request carried no utterances.
	ErrEmptyTranscript = errors.New("feedback: transcript is empty")
)

// Deterministic substitutions for fields the scoring service left empty.
// These exist because structured-output mode does not guarantee every field;
// a record with null narrative fields must never be persisted.
var (
	fallbackStrengths = []string{
		"Participated in the interview process",
		"Showed willingness to engage",
	}
	fallbackImprovements = []string{
		"Continue practicing interview skills",
		"Review technical concepts",
	}
)

const (
	fallbackAssessment = "Thank you for participating in this interview. Continue practicing to improve your interview skills."
	fallbackTotalScore = 50
)

// Store persists feedback records. Put with a non-empty id overwrites the
// existing record (idempotent upsert); with an empty id it creates a new
// record and returns its generated id.
type Store interface {
	Put(ctx context.Context, id string, fb *Feedback) (string, error)
}

// Pipeline turns a finished transcript into a validated, persisted
// evaluation exactly once.
type Pipeline struct {
	generator Generator
	store     Store
	logger    *logging.Logger
	metrics   *metrics.FeedbackMetrics
	now       func() time.Time
}

var _ session.FeedbackDispatcher = (*Pipeline)(nil)

// NewPipeline wires a feedback pipeline.
func NewPipeline(generator Generator, store Store, logger *logging.Logger, m *metrics.FeedbackMetrics) *Pipeline {
	if generator == nil {
		panic("feedback: generator cannot be nil")
	}
	if store == nil {
		panic("feedback: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		generator: generator,
		store:     store,
		logger:    logger.Component("feedback"),
		metrics:   m,
		now:       time.Now,
	}
}

// Generate runs the full pipeline: validate the request, score the
// transcript, repair the response, persist. Only the scoring call and the
// store write may fail the operation; validation never throws, it always
// substitutes.
func (p *Pipeline) Generate(ctx context.Context, req session.FeedbackRequest) (string, error) {
	if strings.TrimSpace(req.InterviewID) == "" || strings.TrimSpace(req.UserID) == "" {
		return "", ErrMissingIDs
	}
	if len(req.Transcript) == 0 {
		return "", ErrEmptyTranscript
	}

	doc := FormatTranscript(req.Transcript)

	start := time.Now()
	generated, err := p.generator.Score(ctx, doc)
	p.metrics.ObserveScoringDuration(time.Since(start).Seconds())
	if err != nil {
		p.metrics.ObserveGenerated("scoring_failure")
		return "", fmt.Errorf("feedback: scoring failed: %w", err)
	}

	repaired := p.repair(generated)

	fb := &Feedback{
		InterviewID:         req.InterviewID,
		UserID:              req.UserID,
		TotalScore:          repaired.totalScore,
		CategoryScores:      repaired.categoryScores,
		Strengths:           repaired.strengths,
		AreasForImprovement: repaired.areasForImprovement,
		FinalAssessment:     repaired.finalAssessment,
		CreatedAt:           p.now().UTC().Format(time.RFC3339),
	}

	id, err := p.store.Put(ctx, req.FeedbackID, fb)
	if err != nil {
		p.metrics.ObserveGenerated("persistence_failure")
		return "", fmt.Errorf("feedback: failed to persist feedback: %w", err)
	}

	p.metrics.ObserveGenerated("success")
	p.logger.Info("feedback persisted",
		"feedback_id", id,
		"interview_id", req.InterviewID,
		"total_score", fb.TotalScore,
		"transcript_len", len(req.Transcript),
	)
	return id, nil
}

type repairedFeedback struct {
	totalScore          int
	categoryScores      []CategoryScore
	strengths           []string
	areasForImprovement []string
	finalAssessment     string
}

// repair substitutes deterministic fallbacks for every missing or empty
// field, independently. It runs unconditionally, even on a nominally
// successful response, and never fails.
func (p *Pipeline) repair(g *Generated) repairedFeedback {
	if g == nil {
		g = &Generated{}
	}

	out := repairedFeedback{
		categoryScores:      g.CategoryScores,
		strengths:           g.Strengths,
		areasForImprovement: g.AreasForImprovement,
		finalAssessment:     g.FinalAssessment,
	}

	if g.TotalScore != nil {
		out.totalScore = *g.TotalScore
	} else {
		out.totalScore = fallbackTotalScore
		p.repairedField("totalScore")
	}
	if out.categoryScores == nil {
		out.categoryScores = []CategoryScore{}
		p.repairedField("categoryScores")
	}
	if len(out.strengths) == 0 {
		out.strengths = append([]string(nil), fallbackStrengths...)
		p.repairedField("strengths")
	}
	if len(out.areasForImprovement) == 0 {
		out.areasForImprovement = append([]string(nil), fallbackImprovements...)
		p.repairedField("areasForImprovement")
	}
	if strings.TrimSpace(out.finalAssessment) == "" {
		out.finalAssessment = fallbackAssessment
		p.repairedField("finalAssessment")
	}
	return out
}

func (p *Pipeline) repairedField(field string) {
	p.metrics.ObserveRepairedField(field)
	p.logger.Warn("scoring response missing field, substituting fallback", "field", field)
}

// Package livetranscript mirrors in-flight session transcripts into Redis
// so other surfaces (live view, debugging) can read them without touching
// the session itself. The mirror is advisory: callers treat every error as
// non-fatal.
package livetranscript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/prepwise/interview-platform/internal/session"
)

// DefaultTTL bounds how long an abandoned transcript lingers. Completed
// sessions clear their key explicitly.
const DefaultTTL = 2 * time.Hour

// Mirror stores transcript snapshots keyed by session id. It implements
// session.TranscriptMirror.
type Mirror struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ session.TranscriptMirror = (*Mirror)(nil)

// NewMirror builds a mirror over the provided Redis client.
func NewMirror(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *Mirror {
	if client == nil {
		panic("livetranscript: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("prepwise.internal.livetranscript")
	}
	return &Mirror{
		redis:  client,
		ttl:    ttl,
		tracer: tracer,
	}
}

// Save overwrites the stored snapshot for sessionID.
func (m *Mirror) Save(ctx context.Context, sessionID string, transcript []session.Utterance) error {
	ctx, span := m.tracer.Start(ctx, "livetranscript.save")
	defer span.End()

	data, err := json.Marshal(transcript)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("livetranscript: failed to marshal transcript: %w", err)
	}
	if err := m.redis.Set(ctx, transcriptKey(sessionID), data, m.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("livetranscript: failed to persist transcript: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil when none exists.
func (m *Mirror) Load(ctx context.Context, sessionID string) ([]session.Utterance, error) {
	ctx, span := m.tracer.Start(ctx, "livetranscript.load")
	defer span.End()

	data, err := m.redis.Get(ctx, transcriptKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("livetranscript: failed to load transcript: %w", err)
	}

	var transcript []session.Utterance
	if err := json.Unmarshal(data, &transcript); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("livetranscript: failed to decode transcript: %w", err)
	}
	return transcript, nil
}

// Clear removes the stored snapshot.
func (m *Mirror) Clear(ctx context.Context, sessionID string) error {
	ctx, span := m.tracer.Start(ctx, "livetranscript.clear")
	defer span.End()

	if err := m.redis.Del(ctx, transcriptKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("livetranscript: failed to clear transcript: %w", err)
	}
	return nil
}

func transcriptKey(id string) string {
	return fmt.Sprintf("transcript:%s", id)
}

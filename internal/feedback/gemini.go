package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/prepwise/interview-platform/pkg/logging"
)

// Generator is the opaque scoring service: one transcript document in, one
// structured evaluation out.
type Generator interface {
	Score(ctx context.Context, transcript string) (*Generated, error)
}

// GeminiGenerator implements Generator using Google's Gemini API with a
// JSON response schema. The schema is a contract, not a guarantee: the
// structured-output mode is not guaranteed to populate every field, which is
// why the pipeline's repair pass runs unconditionally.
type GeminiGenerator struct {
	client  *genai.Client
	modelID string
	logger  *logging.Logger
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini-backed scoring client.
func NewGeminiGenerator(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("feedback: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash-001"
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("feedback: failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		modelID: modelID,
		logger:  logger.Component("feedback.gemini"),
	}, nil
}

// feedbackSchema is the fixed output contract for the scoring call.
var feedbackSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"totalScore": {Type: genai.TypeInteger},
		"categoryScores": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":    {Type: genai.TypeString},
					"score":   {Type: genai.TypeInteger},
					"comment": {Type: genai.TypeString},
				},
				Required: []string{"name", "score", "comment"},
			},
		},
		"strengths": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"areasForImprovement": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"finalAssessment": {Type: genai.TypeString},
	},
	Required: []string{"totalScore", "categoryScores", "strengths", "areasForImprovement", "finalAssessment"},
}

// Close releases the underlying API client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Score sends the scoring request and decodes the structured response.
func (g *GeminiGenerator) Score(ctx context.Context, transcript string) (*Generated, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = feedbackSchema
	model.SystemInstruction = genai.NewUserContent(genai.Text(scoringSystemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(scoringPrompt(transcript)))
	if err != nil {
		return nil, fmt.Errorf("feedback: gemini scoring call failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var generated Generated
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return nil, fmt.Errorf("feedback: undecodable scoring response: %w", err)
	}
	return &generated, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("feedback: empty scoring response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("feedback: scoring response carried no text")
	}
	return b.String(), nil
}

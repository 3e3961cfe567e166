package feedback

import (
	"fmt"
	"strings"

	"github.com/prepwise/interview-platform/internal/session"
)

// CategoryNames is the fixed evaluation category set, in report order.
var CategoryNames = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence and Clarity",
}

const scoringSystemPrompt = "You are a professional interviewer with expertise in technical recruitment. " +
	"Provide detailed, actionable feedback that helps candidates improve while recognizing their strengths."

const scoringInstruction = `You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate comprehensively and provide detailed, actionable feedback.

Interview Transcript:
%s

EVALUATION REQUIREMENTS:

1. CATEGORY SCORES (0-100): Score the candidate in these exact categories:
- **Communication Skills**: Clarity of speech, articulation, ability to express ideas coherently
- **Technical Knowledge**: Depth of understanding, accuracy of technical explanations
- **Problem Solving**: Logical thinking, approach to challenges, analytical skills
- **Cultural Fit**: Professional demeanor, enthusiasm, alignment with workplace values
- **Confidence and Clarity**: Self-assurance, clear responses, engagement level

2. STRENGTHS: Identify 3-5 specific positive aspects the candidate demonstrated, with concrete examples from their responses.

3. AREAS FOR IMPROVEMENT: Identify 3-5 specific areas where the candidate can improve, with concrete suggestions.

4. FINAL ASSESSMENT: Provide a comprehensive 2-3 sentence summary covering overall impression, main strengths, key areas for development, and next steps.

5. TOTAL SCORE: Calculate as the average of all category scores.

Be specific, constructive, and balanced in your feedback. Use concrete examples from the transcript where possible.`

// scoringPrompt fills the fixed instruction with the formatted transcript.
func scoringPrompt(transcript string) string {
	return fmt.Sprintf(scoringInstruction, transcript)
}

// FormatTranscript renders the ordered utterances into a single
// evaluator-readable document, preserving role attribution and order.
func FormatTranscript(transcript []session.Utterance) string {
	var b strings.Builder
	for _, u := range transcript {
		b.WriteString("- ")
		b.WriteString(u.Role)
		b.WriteString(": ")
		b.WriteString(u.Content)
		b.WriteString("\n")
	}
	return b.String()
}

package feedback

// CategoryScore is one scored evaluation category.
type CategoryScore struct {
	Name    string `json:"name" dynamodbav:"name"`
	Score   int    `json:"score" dynamodbav:"score"`
	Comment string `json:"comment" dynamodbav:"comment"`
}

// Feedback is the persisted evaluation of one interview transcript. The
// narrative fields are guaranteed non-empty by the pipeline's repair pass.
type Feedback struct {
	ID                  string          `json:"id" dynamodbav:"id"`
	InterviewID         string          `json:"interviewId" dynamodbav:"interviewId"`
	UserID              string          `json:"userId" dynamodbav:"userId"`
	TotalScore          int             `json:"totalScore" dynamodbav:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores" dynamodbav:"categoryScores"`
	Strengths           []string        `json:"strengths" dynamodbav:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement" dynamodbav:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment" dynamodbav:"finalAssessment"`
	CreatedAt           string          `json:"createdAt" dynamodbav:"createdAt"`
}

// Generated is the scoring service's response shape. Fields may be absent;
// the pipeline repairs them before anything is persisted. TotalScore is a
// pointer so a genuine 0 can be told apart from a missing value.
type Generated struct {
	TotalScore          *int            `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/prepwise/interview-platform/pkg/logging"
)

// userCreatedIndex is the GSI used to list a user's interviews newest-first.
const userCreatedIndex = "userId-createdAt-index"

// ErrInterviewNotFound indicates the requested interview id does not exist.
var ErrInterviewNotFound = errors.New("store: interview not found")

// Interview is one mock-interview definition a user can take.
type Interview struct {
	ID         string   `dynamodbav:"id" json:"id"`
	UserID     string   `dynamodbav:"userId" json:"userId"`
	Role       string   `dynamodbav:"role" json:"role"`
	Type       string   `dynamodbav:"type" json:"type"`
	Level      string   `dynamodbav:"level" json:"level"`
	Techstack  []string `dynamodbav:"techstack" json:"techstack"`
	Questions  []string `dynamodbav:"questions" json:"questions"`
	Finalized  bool     `dynamodbav:"finalized" json:"finalized"`
	CoverImage string   `dynamodbav:"coverImage,omitempty" json:"coverImage,omitempty"`
	CreatedAt  string   `dynamodbav:"createdAt" json:"createdAt"`
}

// InterviewStore persists interviews to DynamoDB.
type InterviewStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewInterviewStore builds a store backed by the provided DynamoDB client.
func NewInterviewStore(client dynamoAPI, tableName string, logger *logging.Logger) *InterviewStore {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: interviews table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &InterviewStore{client: client, tableName: tableName, logger: logger}
}

// GetByID fetches one interview.
func (s *InterviewStore) GetByID(ctx context.Context, id string) (*Interview, error) {
	if id == "" {
		return nil, errors.New("store: interview id required")
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to fetch interview: %w", err)
	}
	if out.Item == nil {
		return nil, ErrInterviewNotFound
	}

	var interview Interview
	if err := attributevalue.UnmarshalMap(out.Item, &interview); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal interview: %w", err)
	}
	return &interview, nil
}

// ListByUser returns a user's interviews ordered by creation time
// descending.
func (s *InterviewStore) ListByUser(ctx context.Context, userID string, limit int32) ([]Interview, error) {
	if userID == "" {
		return nil, errors.New("store: user id required")
	}
	if limit <= 0 {
		limit = 20
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(userCreatedIndex),
		KeyConditionExpression: aws.String("userId = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to list interviews: %w", err)
	}

	interviews := make([]Interview, 0, len(out.Items))
	for _, item := range out.Items {
		var interview Interview
		if err := attributevalue.UnmarshalMap(item, &interview); err != nil {
			return nil, fmt.Errorf("store: failed to unmarshal interview: %w", err)
		}
		interviews = append(interviews, interview)
	}
	return interviews, nil
}

// Create persists a new interview, assigning its id and creation time.
func (s *InterviewStore) Create(ctx context.Context, interview *Interview) error {
	if interview == nil {
		return errors.New("store: interview cannot be nil")
	}
	if interview.UserID == "" {
		return errors.New("store: interview user id required")
	}
	if interview.ID == "" {
		interview.ID = uuid.New().String()
	}
	if interview.CreatedAt == "" {
		interview.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	item, err := attributevalue.MarshalMap(interview)
	if err != nil {
		return fmt.Errorf("store: failed to marshal interview: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("store: failed to persist interview: %w", err)
	}
	return nil
}

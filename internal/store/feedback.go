package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/prepwise/interview-platform/internal/feedback"
	"github.com/prepwise/interview-platform/pkg/logging"
)

// interviewUserIndex is the GSI for the composite interview+user lookup.
const interviewUserIndex = "interviewId-userId-index"

// ErrFeedbackNotFound indicates no feedback exists for the lookup.
var ErrFeedbackNotFound = errors.New("store: feedback not found")

// FeedbackStore persists feedback records to DynamoDB. It implements
// feedback.Store.
type FeedbackStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ feedback.Store = (*FeedbackStore)(nil)

// NewFeedbackStore builds a store backed by the provided DynamoDB client.
func NewFeedbackStore(client dynamoAPI, tableName string, logger *logging.Logger) *FeedbackStore {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: feedback table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FeedbackStore{client: client, tableName: tableName, logger: logger}
}

// Put writes the record under id, overwriting any existing record with the
// same id (last-write-wins upsert). With an empty id a new id is generated.
// The resulting id is returned either way.
func (s *FeedbackStore) Put(ctx context.Context, id string, fb *feedback.Feedback) (string, error) {
	if fb == nil {
		return "", errors.New("store: feedback cannot be nil")
	}
	if id == "" {
		id = uuid.New().String()
	}

	record := *fb
	record.ID = id

	item, err := attributevalue.MarshalMap(&record)
	if err != nil {
		return "", fmt.Errorf("store: failed to marshal feedback: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("store: failed to persist feedback: %w", err)
	}
	return id, nil
}

// GetByID fetches one feedback record.
func (s *FeedbackStore) GetByID(ctx context.Context, id string) (*feedback.Feedback, error) {
	if id == "" {
		return nil, errors.New("store: feedback id required")
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to fetch feedback: %w", err)
	}
	if out.Item == nil {
		return nil, ErrFeedbackNotFound
	}

	var fb feedback.Feedback
	if err := attributevalue.UnmarshalMap(out.Item, &fb); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal feedback: %w", err)
	}
	return &fb, nil
}

// GetByInterviewAndUser performs the composite lookup used by the feedback
// page: at most one record per interview+user pair.
func (s *FeedbackStore) GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*feedback.Feedback, error) {
	if interviewID == "" || userID == "" {
		return nil, errors.New("store: interview id and user id required")
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(interviewUserIndex),
		KeyConditionExpression: aws.String("interviewId = :iid AND userId = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":iid": &types.AttributeValueMemberS{Value: interviewID},
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to query feedback: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrFeedbackNotFound
	}

	var fb feedback.Feedback
	if err := attributevalue.UnmarshalMap(out.Items[0], &fb); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal feedback: %w", err)
	}
	return &fb, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/prepwise/interview-platform/pkg/logging"
)

// ErrUserNotFound indicates the requested user id does not exist.
var ErrUserNotFound = errors.New("store: user not found")

// User is the profile record hydrated into session start variables.
type User struct {
	ID        string `dynamodbav:"id" json:"id"`
	Name      string `dynamodbav:"name" json:"name"`
	Email     string `dynamodbav:"email" json:"email"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}

// UserStore reads user profiles from DynamoDB. Account lifecycle is owned
// by the surrounding application; this store is read-only.
type UserStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewUserStore builds a store backed by the provided DynamoDB client.
func NewUserStore(client dynamoAPI, tableName string, logger *logging.Logger) *UserStore {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: users table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &UserStore{client: client, tableName: tableName, logger: logger}
}

// GetByID fetches one user profile.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, errors.New("store: user id required")
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to fetch user: %w", err)
	}
	if out.Item == nil {
		return nil, ErrUserNotFound
	}

	var user User
	if err := attributevalue.UnmarshalMap(out.Item, &user); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal user: %w", err)
	}
	return &user, nil
}

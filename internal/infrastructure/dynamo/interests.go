package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-push-relay/internal/domain"
)

// InterestRepo provides typed DynamoDB operations for the interests table.
type InterestRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewInterestRepo(client *dynamodb.Client, tableName string) *InterestRepo {
	return &InterestRepo{client: client, tableName: tableName}
}

func (r *InterestRepo) Put(ctx context.Context, in *domain.Interest) error {
	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return fmt.Errorf("marshal interest: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *InterestRepo) Get(ctx context.Context, interestID string) (*domain.Interest, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("interest_id", interestID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("interest not found: %w", domain.ErrNotFound)
	}
	var in domain.Interest
	if err := attributevalue.UnmarshalMap(out.Item, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-push-relay/internal/domain"
)

// DeliveryConfigRepo provides typed DynamoDB operations for the single-row
// delivery_config table.
type DeliveryConfigRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeliveryConfigRepo(client *dynamodb.Client, tableName string) *DeliveryConfigRepo {
	return &DeliveryConfigRepo{client: client, tableName: tableName}
}

func (r *DeliveryConfigRepo) Get(ctx context.Context) (*domain.DeliveryConfig, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("config_id", domain.DeliveryConfigID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("delivery config not found: %w", domain.ErrNotFound)
	}
	var c domain.DeliveryConfig
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *DeliveryConfigRepo) Put(ctx context.Context, c *domain.DeliveryConfig) error {
	c.ConfigID = domain.DeliveryConfigID
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal delivery config: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// UpdateToken overwrites only the auth_token attribute.
func (r *DeliveryConfigRepo) UpdateToken(ctx context.Context, token string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"auth_token": token})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("config_id", domain.DeliveryConfigID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"todo-api/config"
	"todo-api/models"
)

// DynamoAPI is the subset of the DynamoDB client the store calls.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Dynamo stores tasks in a DynamoDB table keyed by task_id. The table is
// expected to have TTL enabled on the ttl attribute and a global secondary
// index with partition key user_id and sort key created_time, projecting all
// attributes.
type Dynamo struct {
	client    DynamoAPI
	table     string
	userIndex string
	now       func() time.Time
}

// OpenDynamo resolves AWS credentials and region the standard SDK way and
// points the client at cfg.Endpoint when one is set.
func OpenDynamo(ctx context.Context, cfg config.StoreConfig) (*Dynamo, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamo(client, cfg.TableName, cfg.UserIndex), nil
}

func NewDynamo(client DynamoAPI, table, userIndex string) *Dynamo {
	return &Dynamo{client: client, table: table, userIndex: userIndex, now: time.Now}
}

// WithClock replaces the clock used for expiry checks.
func (d *Dynamo) WithClock(now func() time.Time) *Dynamo {
	d.now = now
	return d
}

func (d *Dynamo) key(taskID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"task_id": &types.AttributeValueMemberS{Value: taskID},
	}
}

func (d *Dynamo) Put(ctx context.Context, task models.Task) error {
	item, err := attributevalue.MarshalMap(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}

func (d *Dynamo) Get(ctx context.Context, taskID string) (models.Task, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(taskID),
	})
	if err != nil {
		return models.Task{}, fmt.Errorf("dynamodb get item: %w", err)
	}
	if len(out.Item) == 0 {
		return models.Task{}, ErrNotFound
	}

	var task models.Task
	if err := attributevalue.UnmarshalMap(out.Item, &task); err != nil {
		return models.Task{}, fmt.Errorf("unmarshal task: %w", err)
	}
	// TTL deletion lags expiry, so an expired item can still be read.
	if task.Expired(d.now()) {
		return models.Task{}, ErrNotFound
	}
	return task, nil
}

// ListByUser queries the user index newest first. Since ttl is always
// created_time plus the task lifetime, live items are selected with a range
// condition on the index sort key, which keeps Limit exact.
func (d *Dynamo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Task, error) {
	cutoff := d.now().Add(-models.TaskLifetime).Unix()
	keyCond := expression.Key("user_id").Equal(expression.Value(userID)).
		And(expression.Key("created_time").GreaterThan(expression.Value(cutoff)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		IndexName:                 aws.String(d.userIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := d.client.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("dynamodb query: %w", err)
	}

	tasks := make([]models.Task, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	return tasks, nil
}

// Update sets the non-nil fields of upd on an existing, unexpired item. The
// write is conditional so a missing id never leaves a partial record behind;
// the failed condition is reported as success.
func (d *Dynamo) Update(ctx context.Context, taskID string, upd models.TaskUpdate) error {
	var (
		set    expression.UpdateBuilder
		hasSet bool
	)
	if upd.Content != nil {
		set = set.Set(expression.Name("content"), expression.Value(*upd.Content))
		hasSet = true
	}
	if upd.IsCompleted != nil {
		set = set.Set(expression.Name("is_completed"), expression.Value(*upd.IsCompleted))
		hasSet = true
	}
	if !hasSet {
		return nil
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("task_id")).
			And(expression.Name("ttl").GreaterThan(expression.Value(d.now().Unix())))).
		Build()
	if err != nil {
		return fmt.Errorf("build update expression: %w", err)
	}

	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table),
		Key:                       d.key(taskID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dynamodb update item: %w", err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, taskID string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(taskID),
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete item: %w", err)
	}
	return nil
}

func (d *Dynamo) Close() error { return nil }

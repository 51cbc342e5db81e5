package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
)

// ListHoldings queries the user's holdings index newest first.
func (s *Store) ListHoldings(ctx context.Context, q storage.HoldingQuery, page models.PageRequest) ([]models.Holding, int, error) {
	var conds []expression.ConditionBuilder
	if q.Type != nil {
		conds = append(conds, expression.Name("type").Equal(expression.Value(string(*q.Type))))
	}
	if q.Status != nil {
		conds = append(conds, expression.Name("status").Equal(expression.Value(string(*q.Status))))
	}

	input, err := indexQuery(s.Tables.Holdings, holdingsByUserIndex, expression.Key("user_id").Equal(expression.Value(q.UserID)), conds)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.queryAll(ctx, input)
	if err != nil {
		return nil, 0, err
	}

	var records []holdingRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal holdings: %w", err)
	}
	start, end := page.Window(len(records))
	out := make([]models.Holding, 0, end-start)
	for _, r := range records[start:end] {
		out = append(out, r.model())
	}
	return out, len(records), nil
}

// ListActiveBorrowsBefore scans for active loans created before cutoff.
func (s *Store) ListActiveBorrowsBefore(ctx context.Context, cutoff time.Time) ([]models.Holding, error) {
	cond := expression.And(
		expression.Name("type").Equal(expression.Value(string(models.BORROWED))),
		expression.Name("status").Equal(expression.Value(string(models.ACTIVE))),
		expression.Name("created_at").LessThan(expression.Value(formatTime(cutoff))),
	)
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build overdue filter: %w", err)
	}

	items, err := s.scanAll(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(s.Tables.Holdings),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}

	var records []holdingRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
	}
	out := make([]models.Holding, len(records))
	for i, r := range records {
		out[i] = r.model()
	}
	return out, nil
}

// ListActions queries a book's action log newest first.
func (s *Store) ListActions(ctx context.Context, q storage.ActionQuery, page models.PageRequest) ([]models.Action, int, error) {
	var conds []expression.ConditionBuilder
	if q.Type != nil {
		conds = append(conds, expression.Name("action_type").Equal(expression.Value(string(*q.Type))))
	}
	if q.UserID != "" {
		conds = append(conds, expression.Name("user_id").Equal(expression.Value(q.UserID)))
	}

	input, err := indexQuery(s.Tables.Actions, actionsByBookIndex, expression.Key("book_id").Equal(expression.Value(q.BookID)), conds)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.queryAll(ctx, input)
	if err != nil {
		return nil, 0, err
	}

	var records []actionRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal actions: %w", err)
	}
	start, end := page.Window(len(records))
	out := make([]models.Action, 0, end-start)
	for _, r := range records[start:end] {
		out = append(out, r.model())
	}
	return out, len(records), nil
}

// indexQuery builds a newest-first query against a created_at sorted index.
func indexQuery(table, index string, key expression.KeyConditionBuilder, filters []expression.ConditionBuilder) (*dynamodb.QueryInput, error) {
	builder := expression.NewBuilder().WithKeyCondition(key)
	if cond, ok := allOf(filters); ok {
		builder = builder.WithFilter(cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query for %s: %w", index, err)
	}
	return &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}, nil
}

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
)

// ListPendingRestocksDueBefore queries the status index for PENDING restocks due before cutoff, oldest first.
func (s *Store) ListPendingRestocksDueBefore(ctx context.Context, cutoff time.Time) ([]models.Restock, error) {
	key := expression.Key("status").Equal(expression.Value(string(models.PENDING))).
		And(expression.Key("due_at").LessThan(expression.Value(formatTime(cutoff))))
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending restock query: %w", err)
	}

	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.Tables.Restocks),
		IndexName:                 aws.String(restocksByStatusIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}

	var records []restockRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal restocks: %w", err)
	}
	out := make([]models.Restock, len(records))
	for i, r := range records {
		out[i] = r.model()
	}
	return out, nil
}

// Package dynamodb implements the storage interfaces on Amazon DynamoDB.
//
// Transactions are optimistic: reads are strongly consistent GetItem calls, writes are
// buffered and committed with a single TransactWriteItems call whose condition
// expressions check the versions that were read. A lost race cancels the whole
// transaction and surfaces as storage.ErrConflict.
//
// Per-user limits cannot be checked through eventually consistent indexes, so every
// user has an item in the members table that summarizes their active borrows and
// purchases and links their wallet. Holding writes update that item under a version check.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/storage"
)

const (
	holdingsByUserIndex   = "user_id-created_at-index"
	actionsByBookIndex    = "book_id-created_at-index"
	movementsByWallet     = "wallet_id-created_at-index"
	restocksByStatusIndex = "status-due_at-index"
	connectionsIndex      = "pk-index"
)

// DynamoDBAPI defines the subset of the DynamoDB client used by the store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Tables names the tables backing a Store.
type Tables struct {
	Books       string
	Members     string
	Holdings    string
	Actions     string
	Wallets     string
	Movements   string
	Restocks    string
	Connections string
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client DynamoDBAPI
	Tables Tables
}

// New creates a new Store.
func New(client DynamoDBAPI, tables Tables) *Store {
	return &Store{
		Client: client,
		Tables: tables,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func keyOf(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// getItem reads one item with a strongly consistent read. It reports false if the item does not exist.
func (s *Store) getItem(ctx context.Context, table string, key map[string]types.AttributeValue, out any) (bool, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get item from %s: %w", table, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal item from %s: %w", table, err)
	}
	return true, nil
}

// queryAll follows LastEvaluatedKey until every page of the query has been read.
func (s *Store) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", aws.ToString(input.TableName), err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// scanAll follows LastEvaluatedKey until the whole table has been scanned.
func (s *Store) scanAll(ctx context.Context, input *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := s.Client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", aws.ToString(input.TableName), err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
